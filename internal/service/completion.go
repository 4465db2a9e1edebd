package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/llm"
	"github.com/kitbuilder587/fantasy-tales/internal/metrics"
)

// CompletionService - серверная часть: story -> reply через upstream LLM.
type CompletionService interface {
	Complete(ctx context.Context, story string) (string, error)
}

type CompletionDeps struct {
	LLM      llm.Client
	Provider string
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	// Persona пустая - берём StorytellerPersona
	Persona string
	// MaxConcurrency 0 - без ограничения
	MaxConcurrency int64
}

type completionService struct {
	llm      llm.Client
	provider string
	persona  string
	logger   *zap.Logger
	metrics  *metrics.Metrics
	sem      *semaphore.Weighted
}

func NewCompletionService(deps CompletionDeps) CompletionService {
	if deps.Persona == "" {
		deps.Persona = domain.StorytellerPersona
	}
	if deps.Provider == "" {
		deps.Provider = "unknown"
	}

	s := &completionService{
		llm:      deps.LLM,
		provider: deps.Provider,
		persona:  deps.Persona,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
	if deps.MaxConcurrency > 0 {
		s.sem = semaphore.NewWeighted(deps.MaxConcurrency)
	}
	return s
}

func (s *completionService) Complete(ctx context.Context, story string) (string, error) {
	if story == "" {
		s.logger.Warn("completion request without story")
		return "", domain.ErrEmptyStory
	}

	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.logger.Warn("gave up waiting for upstream slot", zap.Error(err))
			return "", fmt.Errorf("acquire upstream slot: %w", err)
		}
		defer s.sem.Release(1)
	}

	start := time.Now()
	reply, err := s.llm.CompleteWithSystem(ctx, s.persona, story)
	elapsed := time.Since(start)

	if err != nil {
		s.record(statusOf(err), elapsed)
		if errors.Is(err, llm.ErrEmptyResponse) {
			s.logger.Error("no choices returned from upstream",
				zap.String("provider", s.provider),
				zap.Duration("elapsed", elapsed),
			)
		} else {
			s.logger.Error("upstream completion failed",
				zap.String("provider", s.provider),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		}
		return "", fmt.Errorf("complete story: %w", err)
	}

	s.record("success", elapsed)
	s.logger.Info("story completed",
		zap.String("provider", s.provider),
		zap.Int("prompt_length", len(story)),
		zap.Int("reply_length", len(reply)),
		zap.Duration("elapsed", elapsed),
	)
	return reply, nil
}

func (s *completionService) record(status string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordLLMRequest(s.provider, status, elapsed)
	}
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		return "empty"
	case errors.Is(err, llm.ErrAuthFailed):
		return "auth"
	case errors.Is(err, llm.ErrRateLimit):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}
	return "error"
}
