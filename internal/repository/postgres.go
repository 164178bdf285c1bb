package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"tripplanner/internal/model"
	"tripplanner/internal/utils"
)

// ErrPlanNotFound is returned when feedback references an unknown plan
var ErrPlanNotFound = errors.New("plan not found")

// Candidate tables, one per category
const (
	TableFlights    = "flights"
	TableHotels     = "hotels"
	TableActivities = "activities"
)

// CandidateTables lists the candidate tables in fetch order
var CandidateTables = []string{TableFlights, TableHotels, TableActivities}

// CandidateSource retrieves unranked candidates for a destination
type CandidateSource interface {
	FetchCandidates(ctx context.Context, destination string) (*model.CandidateSet, error)
}

// RelaxLimits caps how many rows are taken per category when nothing
// matches the destination
type RelaxLimits struct {
	Flights    int
	Hotels     int
	Activities int
}

// DefaultRelaxLimits mirrors the sample data defaults
var DefaultRelaxLimits = RelaxLimits{Flights: 5, Hotels: 5, Activities: 10}

func (l RelaxLimits) forTable(table string) int {
	switch table {
	case TableFlights:
		return l.Flights
	case TableHotels:
		return l.Hotels
	default:
		return l.Activities
	}
}

// PostgresRepository handles database operations
type PostgresRepository struct {
	db     *sqlx.DB
	limits RelaxLimits
}

// Ensure PostgresRepository implements CandidateSource
var _ CandidateSource = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresRepositoryWithDB(db), nil
}

// NewPostgresRepositoryWithDB wraps an existing connection pool
func NewPostgresRepositoryWithDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, limits: DefaultRelaxLimits}
}

// SetRelaxLimits overrides the per-category fallback sizes
func (r *PostgresRepository) SetRelaxLimits(limits RelaxLimits) {
	r.limits = limits
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// candidateRow is one stored candidate; details holds the display and
// scoring fields as JSONB
type candidateRow struct {
	ID          int64           `db:"id"`
	Destination string          `db:"destination"`
	Details     model.Candidate `db:"details"`
}

func (row candidateRow) toCandidate() model.Candidate {
	c := row.Details.Clone()
	if c == nil {
		c = model.Candidate{}
	}
	if _, ok := c[model.FieldID]; !ok {
		c[model.FieldID] = row.ID
	}
	if _, ok := c[model.FieldDestination]; !ok {
		c[model.FieldDestination] = row.Destination
	}
	return c
}

// FetchCandidates returns all candidates whose destination matches, relaxing
// to the first rows of a table when nothing matches
func (r *PostgresRepository) FetchCandidates(ctx context.Context, destination string) (*model.CandidateSet, error) {
	set := &model.CandidateSet{}
	for _, table := range CandidateTables {
		candidates, err := r.fetchTable(ctx, table, destination)
		if err != nil {
			return nil, err
		}
		switch table {
		case TableFlights:
			set.Flights = candidates
		case TableHotels:
			set.Hotels = candidates
		case TableActivities:
			set.Activities = candidates
		}
	}
	return set, nil
}

func (r *PostgresRepository) fetchTable(ctx context.Context, table, destination string) ([]model.Candidate, error) {
	condition, args, _ := utils.BuildDestinationQuery("destination", destination, 1)
	query := fmt.Sprintf(`SELECT id, destination, details FROM %s WHERE %s ORDER BY id`, table, condition)

	var rows []candidateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}

	if len(rows) == 0 {
		relaxQuery := fmt.Sprintf(`SELECT id, destination, details FROM %s ORDER BY id LIMIT $1`, table)
		if err := r.db.SelectContext(ctx, &rows, relaxQuery, r.limits.forTable(table)); err != nil {
			return nil, fmt.Errorf("failed to fetch fallback %s: %w", table, err)
		}
	}

	candidates := make([]model.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, row.toCandidate())
	}
	return candidates, nil
}

// ImportCandidates inserts candidates into table inside one transaction,
// optionally deleting existing rows first
func (r *PostgresRepository) ImportCandidates(ctx context.Context, table string, candidates []model.Candidate, replace bool) (int, error) {
	if !isCandidateTable(table) {
		return 0, fmt.Errorf("unknown candidate table %q", table)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(`INSERT INTO %s (destination, details) VALUES ($1, $2)`, table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i, c := range candidates {
		dest := c.String(model.FieldDestination)
		details := c.Clone()
		delete(details, model.FieldDestination)
		if _, err := stmt.ExecContext(ctx, dest, details); err != nil {
			return 0, fmt.Errorf("failed to insert %s row %d: %w", table, i, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// BatchUpdateEmbeddings updates embeddings for multiple activities
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errs
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE activities SET embedding = $1, updated_at = NOW() WHERE id = $2`)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errs
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		if _, err := stmt.ExecContext(ctx, vec, item.ActivityID); err != nil {
			errs = append(errs, fmt.Sprintf("activity_id %d: %v", item.ActivityID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}

	return success, errs
}

// PlanLog is one recorded planning request
type PlanLog struct {
	PlanID            string
	Destination       string
	StartDate         string
	EndDate           string
	Travelers         int
	Interests         []string
	FlightID          string
	HotelID           string
	ActivityIDs       []string
	TotalCost         float64
	DescriptionSource string
	ResponseTimeMs    int64
}

// LogPlan records a generated itinerary
func (r *PostgresRepository) LogPlan(ctx context.Context, entry PlanLog) error {
	query := `
		INSERT INTO plan_logs (
			plan_id, destination, start_date, end_date, travelers, interests,
			flight_id, hotel_id, activity_ids, total_cost, description_source, response_time_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.PlanID,
		entry.Destination,
		entry.StartDate,
		entry.EndDate,
		entry.Travelers,
		pq.StringArray(entry.Interests),
		nullIfEmpty(entry.FlightID),
		nullIfEmpty(entry.HotelID),
		pq.StringArray(entry.ActivityIDs),
		entry.TotalCost,
		entry.DescriptionSource,
		entry.ResponseTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to log plan: %w", err)
	}
	return nil
}

// LogFeedback records the traveller's reaction to a plan
func (r *PostgresRepository) LogFeedback(ctx context.Context, planID string, action string) error {
	query := `
		UPDATE plan_logs
		SET feedback_action = $2, feedback_at = NOW()
		WHERE plan_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, planID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	if affected == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func isCandidateTable(table string) bool {
	for _, t := range CandidateTables {
		if t == table {
			return true
		}
	}
	return false
}

func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
