package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"tripplanner/internal/model"
	"tripplanner/internal/utils"
)

// textColumns are never converted to numbers even when they look numeric
var textColumns = map[string]bool{
	model.FieldName:        true,
	model.FieldAirline:     true,
	model.FieldDestination: true,
	model.FieldTags:        true,
}

// CSVSource serves candidates from flights.csv, hotels.csv and
// activities.csv in a data directory. Files are read on every fetch so
// edits are picked up without a restart.
type CSVSource struct {
	dir    string
	limits RelaxLimits
}

// Ensure CSVSource implements CandidateSource
var _ CandidateSource = (*CSVSource)(nil)

// NewCSVSource creates a CSV backed candidate source
func NewCSVSource(dir string, limits RelaxLimits) *CSVSource {
	return &CSVSource{dir: dir, limits: limits}
}

// FetchCandidates implements CandidateSource
func (s *CSVSource) FetchCandidates(ctx context.Context, destination string) (*model.CandidateSet, error) {
	set := &model.CandidateSet{}
	for _, table := range CandidateTables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		all, err := LoadCSV(filepath.Join(s.dir, table+".csv"))
		if err != nil {
			return nil, err
		}
		matched := filterByDestination(all, destination, s.limits.forTable(table))

		switch table {
		case TableFlights:
			set.Flights = matched
		case TableHotels:
			set.Hotels = matched
		case TableActivities:
			set.Activities = matched
		}
	}
	return set, nil
}

// LoadAll reads every category file, keyed by table name
func (s *CSVSource) LoadAll() (map[string][]model.Candidate, error) {
	out := make(map[string][]model.Candidate, len(CandidateTables))
	for _, table := range CandidateTables {
		rows, err := LoadCSV(filepath.Join(s.dir, table+".csv"))
		if err != nil {
			return nil, err
		}
		out[table] = rows
	}
	return out, nil
}

func filterByDestination(all []model.Candidate, destination string, limit int) []model.Candidate {
	matched := make([]model.Candidate, 0)
	for _, c := range all {
		if utils.MatchesDestination(c.String(model.FieldDestination), destination) {
			matched = append(matched, c)
		}
	}
	if len(matched) > 0 {
		return matched
	}

	if limit > len(all) {
		limit = len(all)
	}
	if limit < 0 {
		limit = 0
	}
	return append(matched, all[:limit]...)
}

// LoadCSV reads a header-first CSV file into candidate records. Blank cells
// are left out of the record and numeric cells become float64.
func LoadCSV(path string) ([]model.Candidate, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	candidates, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return candidates, nil
}

// ReadCSV parses CSV content from r
func ReadCSV(r io.Reader) ([]model.Candidate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []model.Candidate{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	candidates := make([]model.Candidate, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) != len(header) {
			log.Warn().Int("line", line).Int("columns", len(record)).Msg("Skipping CSV row with wrong column count")
			continue
		}

		c := make(model.Candidate, len(header))
		for i, column := range header {
			if column == "" {
				continue
			}
			cell := strings.TrimSpace(record[i])
			if cell == "" {
				continue
			}
			c[column] = parseCell(column, cell)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func parseCell(column, cell string) any {
	if textColumns[column] {
		return cell
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
