package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner/internal/metrics"
	"tripplanner/internal/model"
)

// fakeAIClient is a scripted AIClient
type fakeAIClient struct {
	mu         sync.Mutex
	enabled    bool
	content    string
	chunks     []string
	streamErr  error // returned after all chunks are sent
	err        error
	embeddings [][]float32
	calls      int
	requests   []ChatCompletionRequest
	texts      []string
}

func (f *fakeAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := &ChatCompletionResponse{}
	resp.Choices = append(resp.Choices, struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}{Message: ChatMessage{Role: "assistant", Content: f.content}})
	return resp, nil
}

func (f *fakeAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(&StreamChunk{Content: c}); err != nil {
			return err
		}
	}
	return f.streamErr
}

func (f *fakeAIClient) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.texts = append(f.texts, texts...)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.embeddings, nil
}

func (f *fakeAIClient) IsEnabled() bool { return f.enabled }

func sampleNarrationInput() NarrationInput {
	return NarrationInput{
		Trip: model.TripParams{
			Destination: "Goa",
			StartDate:   "2025-12-01",
			EndDate:     "2025-12-02",
			Budget:      50000,
			Travelers:   2,
			Interests:   []string{"beach"},
		},
		Flight: &model.ScoredCandidate{Record: model.Candidate{"airline": "IndiGo", "price": 4500.0}},
		Hotel:  &model.ScoredCandidate{Record: model.Candidate{"name": "Sea View", "rating": 4.5}},
		DailyPlan: []model.DayPlan{
			{Day: 1, Activities: []model.ScoredCandidate{
				{Record: model.Candidate{"name": "Beach day"}},
				{Record: model.Candidate{"name": "Spice farm"}},
			}},
			{Day: 2, Activities: []model.ScoredCandidate{}},
		},
	}
}

func TestTemplateNarrator_Render(t *testing.T) {
	n := NewTemplateNarrator("₹")
	got := n.Render(sampleNarrationInput())

	want := strings.Join([]string{
		"Trip to Goa from 2025-12-01 to 2025-12-02.",
		"Flight: IndiGo - ₹4500.",
		"Hotel: Sea View (Rating 4.5)",
		"Day 1: Beach day, Spice farm",
		"Day 2: ",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestTemplateNarrator_MissingSelections(t *testing.T) {
	in := sampleNarrationInput()
	in.Flight = nil
	in.Hotel = nil
	in.DailyPlan = nil

	got := NewTemplateNarrator("₹").Render(in)
	assert.Contains(t, got, "Flight: not available.")
	assert.Contains(t, got, "Hotel: not available.")
}

func TestBuildNarrationPrompt(t *testing.T) {
	prompt := BuildNarrationPrompt(sampleNarrationInput())
	assert.Contains(t, prompt, "Destination: Goa")
	assert.Contains(t, prompt, "Travelers: 2")
	assert.Contains(t, prompt, "Interests: beach")
	assert.Contains(t, prompt, "Selected Flight: IndiGo 4500")
	assert.Contains(t, prompt, "Selected Hotel: Sea View (rating 4.5)")
	assert.Contains(t, prompt, "- Day 1: Beach day, Spice farm")
	assert.Contains(t, prompt, "- Day 2: free day")
}

func TestGenerativeNarrator_JSONResponse(t *testing.T) {
	client := &fakeAIClient{enabled: true, content: "```json\n{\"description\": \"Sun, sand and spice.\"}\n```"}
	n := NewGenerativeNarrator(client)

	text, err := n.Narrate(context.Background(), sampleNarrationInput())
	require.NoError(t, err)
	assert.Equal(t, "Sun, sand and spice.", text)

	require.Len(t, client.requests, 1)
	require.NotNil(t, client.requests[0].ResponseFormat)
	assert.Equal(t, "json_object", client.requests[0].ResponseFormat.Type)
}

func TestGenerativeNarrator_PlainProse(t *testing.T) {
	client := &fakeAIClient{enabled: true, content: "  A relaxed beach escape.  "}
	text, err := NewGenerativeNarrator(client).Narrate(context.Background(), sampleNarrationInput())
	require.NoError(t, err)
	assert.Equal(t, "A relaxed beach escape.", text)
}

func TestGenerativeNarrator_EmptyObject(t *testing.T) {
	client := &fakeAIClient{enabled: true, content: `{"summary": ""}`}
	_, err := NewGenerativeNarrator(client).Narrate(context.Background(), sampleNarrationInput())
	assert.ErrorIs(t, err, ErrEmptyNarration)
}

func TestGenerativeNarrator_Disabled(t *testing.T) {
	_, err := NewGenerativeNarrator(nil).Narrate(context.Background(), sampleNarrationInput())
	assert.ErrorIs(t, err, ErrNarratorDisabled)

	_, err = NewGenerativeNarrator(&fakeAIClient{}).Narrate(context.Background(), sampleNarrationInput())
	assert.ErrorIs(t, err, ErrNarratorDisabled)
}

func TestGenerativeNarrator_Stream(t *testing.T) {
	client := &fakeAIClient{enabled: true, chunks: []string{"Sun ", "", "and sea."}}
	var got []string

	text, err := NewGenerativeNarrator(client).NarrateStream(context.Background(), sampleNarrationInput(), func(s string) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Sun and sea.", text)
	assert.Equal(t, []string{"Sun ", "and sea."}, got)
}

func TestGenerativeNarrator_BreakerOpens(t *testing.T) {
	client := &fakeAIClient{enabled: true, err: errors.New("upstream 503")}
	n := NewGenerativeNarrator(client)

	for i := 0; i < 3; i++ {
		_, err := n.Narrate(context.Background(), sampleNarrationInput())
		require.Error(t, err)
	}

	_, err := n.Narrate(context.Background(), sampleNarrationInput())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, client.calls)
}

func TestGenerativeNarrator_CancellationDoesNotTrip(t *testing.T) {
	client := &fakeAIClient{enabled: true, content: "ok"}
	n := NewGenerativeNarrator(client)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_, err := n.Narrate(ctx, sampleNarrationInput())
		assert.ErrorIs(t, err, context.Canceled)
	}

	text, err := n.Narrate(context.Background(), sampleNarrationInput())
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestFallbackNarrator(t *testing.T) {
	template := NewTemplateNarrator("₹")

	t.Run("uses primary when it succeeds", func(t *testing.T) {
		m := metrics.New()
		n := NewFallbackNarrator(NewGenerativeNarrator(&fakeAIClient{enabled: true, content: "Lovely trip."}), template, m)

		got := n.Describe(context.Background(), sampleNarrationInput(), nil)
		assert.Equal(t, Narration{Text: "Lovely trip.", Source: NarrationGenerative}, got)
	})

	t.Run("falls back on failure", func(t *testing.T) {
		n := NewFallbackNarrator(NewGenerativeNarrator(&fakeAIClient{enabled: true, err: errors.New("timeout")}), template, nil)

		got := n.Describe(context.Background(), sampleNarrationInput(), nil)
		assert.Equal(t, NarrationTemplate, got.Source)
		assert.Equal(t, template.Render(sampleNarrationInput()), got.Text)
	})

	t.Run("falls back when disabled", func(t *testing.T) {
		n := NewFallbackNarrator(NewGenerativeNarrator(nil), template, nil)
		got := n.Describe(context.Background(), sampleNarrationInput(), nil)
		assert.Equal(t, NarrationTemplate, got.Source)
	})

	t.Run("falls back on cancelled context without calling primary", func(t *testing.T) {
		client := &fakeAIClient{enabled: true, content: "never"}
		n := NewFallbackNarrator(NewGenerativeNarrator(client), template, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got := n.Describe(ctx, sampleNarrationInput(), nil)
		assert.Equal(t, NarrationTemplate, got.Source)
		assert.NotEmpty(t, got.Text)
		assert.Equal(t, 0, client.calls)
	})

	t.Run("streams when a callback is given", func(t *testing.T) {
		client := &fakeAIClient{enabled: true, chunks: []string{"Hello ", "Goa"}}
		n := NewFallbackNarrator(NewGenerativeNarrator(client), template, nil)

		var streamed strings.Builder
		got := n.Describe(context.Background(), sampleNarrationInput(), func(s string) error {
			streamed.WriteString(s)
			return nil
		})
		assert.Equal(t, "Hello Goa", got.Text)
		assert.Equal(t, "Hello Goa", streamed.String())
		assert.Nil(t, client.requests[0].ResponseFormat)
	})

	t.Run("nil primary always uses template", func(t *testing.T) {
		got := NewFallbackNarrator(nil, nil, nil).Describe(context.Background(), sampleNarrationInput(), nil)
		assert.Equal(t, NarrationTemplate, got.Source)
		assert.Contains(t, got.Text, "Flight: IndiGo - 4500.")
	})
}
