package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, parts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GenerateContentResponse), args.Error(1)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

func newTestGemini(gen generator) *GeminiExtractor {
	return &GeminiExtractor{
		model:   gen,
		timeout: time.Second,
		now:     fixedClock(mapNow),
	}
}

func TestGeminiExtractor_Success(t *testing.T) {
	gen := &MockGenerator{}
	reply := "Sure! ```json\n" + `{"action":"search_flights","filters":{"origin":"Lviv","destination":null,"flight_id":12},"fields":["number"],"limit":5,"sort":{"by":"departure_time","order":"asc"},"errors":[]}` + "\n```"
	gen.On("GenerateContent", mock.Anything, mock.Anything).Return(textResponse(reply), nil).Once()

	in, err := newTestGemini(gen).Extract(context.Background(), "flights from lviv", "en")

	require.NoError(t, err)
	assert.Equal(t, ActionSearchFlights, in.Action)
	assert.Equal(t, map[string]string{"origin": "Lviv", "flight_id": "12"}, in.Filters)
	assert.Equal(t, []string{"number"}, in.Fields)
	assert.Equal(t, 5, in.Limit)
	assert.Equal(t, Sort{By: "departure_time", Order: "asc"}, in.Sort)
	assert.Equal(t, "flights from lviv", in.Prompt)
	gen.AssertExpectations(t)
}

func TestGeminiExtractor_UnsupportedActionBecomesUnknown(t *testing.T) {
	gen := &MockGenerator{}
	gen.On("GenerateContent", mock.Anything, mock.Anything).
		Return(textResponse(`{"action":"delete_everything","filters":{}}`), nil).Once()

	in, err := newTestGemini(gen).Extract(context.Background(), "delete it all", "en")

	require.NoError(t, err)
	assert.Equal(t, ActionUnknown, in.Action)
	assert.NotEmpty(t, in.Errors)
	assert.Equal(t, DefaultLimit, in.Limit)
}

func TestGeminiExtractor_UnknownWithoutReason(t *testing.T) {
	gen := &MockGenerator{}
	gen.On("GenerateContent", mock.Anything, mock.Anything).
		Return(textResponse(`{"action":"unknown"}`), nil).Once()

	in, err := newTestGemini(gen).Extract(context.Background(), "hi", "en")

	require.NoError(t, err)
	assert.Equal(t, ActionUnknown, in.Action)
	assert.Equal(t, []string{"Could not infer intent"}, in.Errors)
}

func TestGeminiExtractor_Failures(t *testing.T) {
	testCases := []struct {
		name string
		resp *genai.GenerateContentResponse
		err  error
	}{
		{"transport error", nil, errors.New("connection reset")},
		{"no candidates", &genai.GenerateContentResponse{}, nil},
		{"no json", textResponse("I cannot help with that"), nil},
		{"malformed json", textResponse(`{"action": "search_flights", "filters": {`), nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &MockGenerator{}
			if tc.resp == nil {
				gen.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, tc.err).Once()
			} else {
				gen.On("GenerateContent", mock.Anything, mock.Anything).Return(tc.resp, nil).Once()
			}

			in, err := newTestGemini(gen).Extract(context.Background(), "flights", "en")

			assert.Nil(t, in)
			var extractionErr *domain.ExtractionError
			assert.ErrorAs(t, err, &extractionErr)
		})
	}
}

type slowGenerator struct{}

func (slowGenerator) GenerateContent(ctx context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGeminiExtractor_Timeout(t *testing.T) {
	g := &GeminiExtractor{model: slowGenerator{}, timeout: 20 * time.Millisecond, now: time.Now}

	start := time.Now()
	_, err := g.Extract(context.Background(), "flights", "en")

	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGeminiExtractor_StreamUnsupported(t *testing.T) {
	err := newTestGemini(&MockGenerator{}).Stream(context.Background(), "hi", func(string) error { return nil })
	var extractionErr *domain.ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}

// chunkIterator yields its chunks, then blocks until ctx is done when stall is
// set.
type chunkIterator struct {
	ctx    context.Context
	chunks []string
	stall  bool
}

func (it *chunkIterator) Next() (*genai.GenerateContentResponse, error) {
	if len(it.chunks) > 0 {
		chunk := it.chunks[0]
		it.chunks = it.chunks[1:]
		return textResponse(chunk), nil
	}
	if it.stall {
		<-it.ctx.Done()
		return nil, it.ctx.Err()
	}
	return nil, iterator.Done
}

func streamOf(chunks []string, stall bool) streamFunc {
	return func(ctx context.Context, _ ...genai.Part) responseIterator {
		return &chunkIterator{ctx: ctx, chunks: chunks, stall: stall}
	}
}

func TestGeminiExtractor_StreamChunks(t *testing.T) {
	g := &GeminiExtractor{stream: streamOf([]string{"Hello", "", " there"}, false), timeout: time.Second, now: time.Now}

	var got []string
	err := g.Stream(context.Background(), "hi", func(chunk string) error {
		got = append(got, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " there"}, got)
}

func TestGeminiExtractor_StreamTimeout(t *testing.T) {
	g := &GeminiExtractor{stream: streamOf([]string{"partial"}, true), timeout: 20 * time.Millisecond, now: time.Now}

	var got []string
	start := time.Now()
	err := g.Stream(context.Background(), "hi", func(chunk string) error {
		got = append(got, chunk)
		return nil
	})

	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"partial"}, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGeminiExtractor_StreamCallbackError(t *testing.T) {
	g := &GeminiExtractor{stream: streamOf([]string{"a", "b"}, false), timeout: time.Second, now: time.Now}
	sendErr := errors.New("connection closed")

	err := g.Stream(context.Background(), "hi", func(string) error { return sendErr })

	assert.ErrorIs(t, err, sendErr)
}
