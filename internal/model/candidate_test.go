package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidate_NumberDefaults(t *testing.T) {
	tests := []struct {
		name   string
		record Candidate
		want   float64
	}{
		{name: "absent", record: Candidate{}, want: 3},
		{name: "null", record: Candidate{"rating": nil}, want: 3},
		{name: "blank string", record: Candidate{"rating": "  "}, want: 3},
		{name: "NaN", record: Candidate{"rating": math.NaN()}, want: 3},
		{name: "float", record: Candidate{"rating": 4.5}, want: 4.5},
		{name: "int", record: Candidate{"rating": 4}, want: 4},
		{name: "numeric string", record: Candidate{"rating": " 4.2 "}, want: 4.2},
		{name: "json number", record: Candidate{"rating": json.Number("2")}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.record.Rating()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidate_NumberInvalid(t *testing.T) {
	_, err := Candidate{"price": "cheap"}.Price()
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = Candidate{"price": []int{1}}.Price()
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestCandidate_NumberRejectsInfinity(t *testing.T) {
	for _, raw := range []any{"Inf", "-Infinity", "+inf", "1e400", math.Inf(1), math.Inf(-1)} {
		_, err := Candidate{"price": raw}.Price()
		assert.ErrorIs(t, err, ErrInvalidField, "price %v", raw)
	}
}

func TestCandidate_Tags(t *testing.T) {
	assert.Equal(t, "", Candidate{}.Tags())
	assert.Equal(t, "beach,food", Candidate{"tags": "beach,food"}.Tags())
	assert.Equal(t, "beach,food", Candidate{"tags": []any{"beach", "food"}}.Tags())
}

func TestScoredCandidate_JSON(t *testing.T) {
	record := Candidate{"name": "Fort Aguada", "price": 50.0}
	scored := ScoredCandidate{Record: record, Score: 4.95}

	data, err := json.Marshal(scored)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, 4.95, flat["score"])
	assert.Equal(t, "Fort Aguada", flat["name"])
	_, mutated := record["score"]
	assert.False(t, mutated, "marshalling must not write score into the record")

	var back ScoredCandidate
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 4.95, back.Score)
	assert.NotContains(t, back.Record, "score")
}

func TestCandidate_Scan(t *testing.T) {
	var c Candidate
	require.NoError(t, c.Scan([]byte(`{"airline":"IndiGo","price":4200}`)))
	assert.Equal(t, "IndiGo", c.String("airline"))
	price, err := c.Price()
	require.NoError(t, err)
	assert.Equal(t, 4200.0, price)

	require.NoError(t, c.Scan(nil))
	assert.Nil(t, c)
}
