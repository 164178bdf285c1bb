package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidField is returned when a candidate field holds a value that
// cannot be coerced to the type the scorer needs
var ErrInvalidField = errors.New("invalid candidate field")

// Candidate field names
const (
	FieldID            = "id"
	FieldName          = "name"
	FieldAirline       = "airline"
	FieldDestination   = "destination"
	FieldPrice         = "price"
	FieldPricePerNight = "price_per_night"
	FieldRating        = "rating"
	FieldTags          = "tags"
	FieldScore         = "score"
)

// Defaults for absent candidate fields
const (
	DefaultPrice  = 0.0
	DefaultRating = 3.0
)

// Candidate is one flight, hotel or activity option. Fields vary by category
// and are kept as an open key/value record so display fields pass through.
type Candidate map[string]any

// Number returns the numeric value of field, or def when the field is absent,
// null, blank or NaN. Infinite values are invalid.
func (c Candidate) Number(field string, def float64) (float64, error) {
	raw, ok := c[field]
	if !ok || raw == nil {
		return def, nil
	}
	v, present, err := toFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%v: %v", ErrInvalidField, field, raw, err)
	}
	if !present || math.IsNaN(v) {
		return def, nil
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%v: not a finite number", ErrInvalidField, field, raw)
	}
	return v, nil
}

// Price returns the candidate's price (flights, activities)
func (c Candidate) Price() (float64, error) {
	return c.Number(FieldPrice, DefaultPrice)
}

// PricePerNight returns the nightly rate (hotels)
func (c Candidate) PricePerNight() (float64, error) {
	return c.Number(FieldPricePerNight, DefaultPrice)
}

// Rating returns the candidate's rating (hotels, activities)
func (c Candidate) Rating() (float64, error) {
	return c.Number(FieldRating, DefaultRating)
}

// Tags returns the free-text tag string, empty when absent
func (c Candidate) Tags() string {
	switch v := c[FieldTags].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// String returns a display field as text, empty when absent
func (c Candidate) String(field string) string {
	v, ok := c[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy of the record
func (c Candidate) Clone() Candidate {
	if c == nil {
		return nil
	}
	out := make(Candidate, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer interface
func (c Candidate) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(map[string]any(c))
}

// Scan implements sql.Scanner interface
func (c *Candidate) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported candidate column type %T", value)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = Candidate(m)
	return nil
}

// toFloat coerces JSON and Go numeric kinds and numeric strings. present is
// false for blank strings.
func toFloat(raw any) (v float64, present bool, err error) {
	switch n := raw.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int8:
		return float64(n), true, nil
	case int16:
		return float64(n), true, nil
	case int32:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case uint:
		return float64(n), true, nil
	case uint8:
		return float64(n), true, nil
	case uint16:
		return float64(n), true, nil
	case uint32:
		return float64(n), true, nil
	case uint64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil, err
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, err
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported type %T", raw)
	}
}

// ScoredCandidate pairs an unmodified candidate record with its computed
// desirability score
type ScoredCandidate struct {
	Record Candidate
	Score  float64
}

// Price returns the record's price, defaulting when absent
func (s ScoredCandidate) Price() float64 {
	p, _ := s.Record.Price()
	return p
}

// MarshalJSON encodes the record's fields with an added score field
func (s ScoredCandidate) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Record)+1)
	for k, v := range s.Record {
		out[k] = v
	}
	out[FieldScore] = s.Score
	return json.Marshal(out)
}

// UnmarshalJSON splits the score field back out of the record
func (s *ScoredCandidate) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if raw, ok := m[FieldScore]; ok {
		score, _, err := toFloat(raw)
		if err != nil {
			return fmt.Errorf("%w: score: %v", ErrInvalidField, err)
		}
		s.Score = score
		delete(m, FieldScore)
	}
	s.Record = Candidate(m)
	return nil
}

// CandidateSet groups unranked candidates by category
type CandidateSet struct {
	Flights    []Candidate `json:"flights"`
	Hotels     []Candidate `json:"hotels"`
	Activities []Candidate `json:"activities"`
}

// Counts returns the number of candidates per category
func (s *CandidateSet) Counts() map[string]int {
	return map[string]int{
		"flights":    len(s.Flights),
		"hotels":     len(s.Hotels),
		"activities": len(s.Activities),
	}
}

// RankedOptions holds each category's candidates sorted best-first
type RankedOptions struct {
	Flights    []ScoredCandidate `json:"flights"`
	Hotels     []ScoredCandidate `json:"hotels"`
	Activities []ScoredCandidate `json:"activities"`
}
