package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/intent"
	"github.com/Domenick1991/airbooking/internal/monitoring"
	"go.uber.org/zap"
)

type AssistantUseCase interface {
	Query(ctx context.Context, prompt, lang string) (Envelope, error)
	RunAction(ctx context.Context, action string, params intent.QueryParams, lang string) (any, error)
}

type Service struct {
	extractor intent.Extractor
	mapper    *intent.Mapper
	executor  *Executor
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(extractor intent.Extractor, mapper *intent.Mapper, executor *Executor, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		extractor: extractor,
		mapper:    mapper,
		executor:  executor,
		now:       func() time.Time { return time.Now().In(loc) },
		logger:    logger,
	}
}

// Query answers a free-form prompt. An empty prompt is a *domain.ValidationError
// and an oracle failure a *domain.ExtractionError; an unrecognised prompt is
// not an error but an error envelope.
func (s *Service) Query(ctx context.Context, prompt, lang string) (Envelope, error) {
	if strings.TrimSpace(prompt) == "" {
		return Envelope{}, &domain.ValidationError{Field: "prompt", Message: "Empty prompt"}
	}
	if lang == "" {
		lang = intent.DetectLanguage(prompt)
	}

	started := time.Now()
	in, err := s.extractor.Extract(ctx, prompt, lang)
	if err != nil {
		monitoring.TrackExtraction("error", time.Since(started))
		s.logger.Error("intent extraction failed", zap.Error(err))
		return Envelope{}, err
	}
	monitoring.TrackExtraction("ok", time.Since(started))
	in.Prompt = prompt

	action, params := s.mapper.Map(in, s.now())
	s.logger.Info("mapped action",
		zap.String("action", action),
		zap.Any("filters", params.Filters),
		zap.Int("limit", params.Limit),
	)

	if action == intent.ActionUnknown {
		monitoring.TrackQuery(action, StatusError)
		return Unknown(lang, in.Errors), nil
	}

	res, err := s.executor.Execute(ctx, action, params)
	if err != nil {
		return Envelope{}, fmt.Errorf("execute %s: %w", action, err)
	}

	env := Shape(lang, res)
	monitoring.TrackQuery(action, env.Status)
	return env, nil
}

// RunAction executes an explicit action, as sent by chat tool calls. Empty
// results come back as a Refusal.
func (s *Service) RunAction(ctx context.Context, action string, params intent.QueryParams, lang string) (any, error) {
	if !intent.IsKnownAction(action) {
		return nil, &domain.ValidationError{Field: "action", Message: fmt.Sprintf("unsupported action %q", action)}
	}
	params = s.mapper.Normalise(action, params)

	res, err := s.executor.Execute(ctx, action, params)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", action, err)
	}

	env := Shape(lang, res)
	monitoring.TrackQuery(action, env.Status)
	return Wrap(categoryOf(action), env.Data, res.Len() == 0), nil
}

var _ AssistantUseCase = (*Service)(nil)
