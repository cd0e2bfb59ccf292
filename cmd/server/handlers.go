package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/task"
)

// registerBuiltinHandlers binds the diagnostic task types every deployment
// carries. Domain-specific handlers register alongside these during startup.
func registerBuiltinHandlers(registry *task.Registry, logger *slog.Logger) error {
	if err := registry.Register("echo", echoHandler,
		task.WithValidator(validJSONPayload),
		task.WithDigest(func(result json.RawMessage) *domain.Digest {
			return &domain.Digest{Summary: fmt.Sprintf("echoed %d bytes", len(result))}
		}),
	); err != nil {
		return err
	}

	if err := registry.Register("sleep", sleepHandler,
		task.WithValidator(validSleepPayload),
	); err != nil {
		return err
	}

	logger.Debug("builtin handlers registered")
	return nil
}

// echoHandler returns its payload unchanged. Useful for end-to-end checks of
// the submit/result round trip.
func echoHandler(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return payload, nil
}

type sleepPayload struct {
	Duration string `json:"duration"`
}

// sleepHandler blocks for the requested duration, cooperating with
// cancellation. Useful for exercising timeouts, cancels, and worker pool
// behavior against a live server.
func sleepHandler(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var p sleepPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, task.MarkPermanent(err)
	}
	d, err := time.ParseDuration(p.Duration)
	if err != nil {
		return nil, task.MarkPermanent(err)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return json.RawMessage(fmt.Sprintf(`{"slept":%q}`, d)), nil
	}
}

func validJSONPayload(payload json.RawMessage) error {
	if len(payload) == 0 {
		return errors.New("payload is required")
	}
	if !json.Valid(payload) {
		return errors.New("payload must be valid JSON")
	}
	return nil
}

func validSleepPayload(payload json.RawMessage) error {
	var p sleepPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	d, err := time.ParseDuration(p.Duration)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return errors.New("duration cannot be negative")
	}
	return nil
}
