package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const extractionInstructions = `You convert travel questions into a JSON object. Return ONLY the JSON object, no prose.

Schema:
{
  "action": one of "search_flights", "search_countries_from_origin", "search_airlines_from_airport",
            "search_tickets", "search_available_tickets", "search_booked_tickets", "unknown",
  "filters": {"origin": string, "destination": string, "date": "YYYY-MM-DD", "flight_id": string},
  "fields": [string],
  "limit": integer,
  "sort": {"by": string or null, "order": "asc" or "desc"},
  "errors": [string]
}

Rules:
1. Omit filters you cannot infer.
2. Use "unknown" with a short reason in "errors" when the question is not about flights, tickets, countries or airlines.
3. Today is %s. The user writes in %q.

Question: %s`

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type responseIterator interface {
	Next() (*genai.GenerateContentResponse, error)
}

type streamFunc func(ctx context.Context, parts ...genai.Part) responseIterator

// GeminiExtractor asks a Gemini model for the intent. Every failure is
// returned as *domain.ExtractionError.
type GeminiExtractor struct {
	model   generator
	stream  streamFunc
	timeout time.Duration
	now     func() time.Time
	closer  func() error
}

func NewGeminiExtractor(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	return &GeminiExtractor{
		model:   model,
		stream:  modelStream(model),
		timeout: timeout,
		now:     time.Now,
		closer:  client.Close,
	}, nil
}

func modelStream(model *genai.GenerativeModel) streamFunc {
	return func(ctx context.Context, parts ...genai.Part) responseIterator {
		return model.GenerateContentStream(ctx, parts...)
	}
}

func (g *GeminiExtractor) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

func (g *GeminiExtractor) Extract(ctx context.Context, prompt, lang string) (*Intent, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	instruction := fmt.Sprintf(extractionInstructions, g.now().Format(DateLayout), lang, prompt)
	resp, err := g.model.GenerateContent(ctx, genai.Text(instruction))
	if err != nil {
		return nil, &domain.ExtractionError{Err: err}
	}

	text := responseText(resp)
	if text == "" {
		return nil, &domain.ExtractionError{Err: errors.New("empty model response")}
	}

	in, err := decodeIntent(text)
	if err != nil {
		return nil, &domain.ExtractionError{Err: err}
	}
	in.Prompt = prompt
	return in, nil
}

// Stream sends prompt to the model and hands each text chunk to fn as it
// arrives. The whole stream shares the extraction timeout.
func (g *GeminiExtractor) Stream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	if g.stream == nil {
		return &domain.ExtractionError{Err: errors.New("model does not support streaming")}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	it := g.stream(ctx, genai.Text(prompt))
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return &domain.ExtractionError{Err: err}
		}
		if chunk := responseText(resp); chunk != "" {
			if err := fn(chunk); err != nil {
				return err
			}
		}
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	return sb.String()
}

type rawIntent struct {
	Action  string         `json:"action"`
	Filters map[string]any `json:"filters"`
	Fields  []string       `json:"fields"`
	Limit   json.Number    `json:"limit"`
	Sort    *Sort          `json:"sort"`
	Errors  []string       `json:"errors"`
}

// decodeIntent reads the first JSON object in text. Models often wrap the
// object in prose or code fences.
func decodeIntent(text string) (*Intent, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, errors.New("no JSON object in model response")
	}

	var raw rawIntent
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	in := &Intent{
		Action:  strings.TrimSpace(raw.Action),
		Filters: make(map[string]string, len(raw.Filters)),
		Fields:  raw.Fields,
		Limit:   DefaultLimit,
		Errors:  raw.Errors,
	}
	for k, v := range raw.Filters {
		switch val := v.(type) {
		case nil:
		case string:
			if val != "" {
				in.Filters[k] = val
			}
		default:
			in.Filters[k] = fmt.Sprint(val)
		}
	}
	if raw.Limit != "" {
		if f, err := strconv.ParseFloat(raw.Limit.String(), 64); err == nil {
			in.Limit = int(f)
		}
	}
	if raw.Sort != nil {
		in.Sort = *raw.Sort
	}
	if in.Fields == nil {
		in.Fields = []string{}
	}
	if in.Errors == nil {
		in.Errors = []string{}
	}

	if !IsKnownAction(in.Action) {
		if in.Action != ActionUnknown {
			in.Errors = append(in.Errors, fmt.Sprintf("Unsupported action %q", in.Action))
		}
		in.Action = ActionUnknown
		if len(in.Errors) == 0 {
			in.Errors = []string{"Could not infer intent"}
		}
	}
	return in, nil
}

var (
	_ Extractor = (*GeminiExtractor)(nil)
	_ Streamer  = (*GeminiExtractor)(nil)
)
