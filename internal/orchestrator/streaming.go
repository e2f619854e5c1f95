package orchestrator

import (
	"context"
	"time"

	"github.com/zimalabs/genflow/pkg/models"
)

// GenerateStreaming runs one generation, emitting events to the callback as
// the invocation progresses: a start event, zero or more content fragments, a
// files event when files were produced, and a terminal complete or error
// event. The cache is never consulted on the streaming path; fragment timing
// is part of the contract.
func (o *Orchestrator) GenerateStreaming(ctx context.Context, req *models.GenerationRequest, emit func(models.StreamEvent)) error {
	start := time.Now()

	p, err := o.prepare(req)
	if err != nil {
		emit(models.StreamEvent{
			Type:    models.StreamError,
			Message: err.Error(),
		})
		return err
	}

	emit(models.StreamEvent{
		Type:        models.StreamStart,
		RequestID:   p.requestID,
		Model:       p.model,
		Complexity:  p.complexity,
		ContextTier: p.tier,
	})

	go o.pool.WarmSession(context.Background(), req.SessionID, o.preamble.SystemPreamble())

	result := o.invoke(ctx, p, req.SessionID, func(fragment string) {
		emit(models.StreamEvent{
			Type: models.StreamContent,
			Text: fragment,
		})
	})
	result.Duration = time.Since(start)

	if !result.Success {
		msg := result.Message
		if len(result.Errors) > 0 {
			msg = result.Errors[len(result.Errors)-1]
		}
		emit(models.StreamEvent{
			Type:    models.StreamError,
			Message: msg,
		})
		return nil
	}

	if len(result.Files) > 0 {
		emit(models.StreamEvent{
			Type:  models.StreamFiles,
			Files: result.Files,
		})
	}

	emit(models.StreamEvent{
		Type:       models.StreamComplete,
		RequestID:  result.RequestID,
		Model:      result.Model,
		Output:     result.Output,
		Usage:      &result.Usage,
		Files:      result.Files,
		DurationMs: result.Duration.Milliseconds(),
	})
	return nil
}
