package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskboard/internal/domain"
)

func noopHandler(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("scan", noopHandler))

	fn, err := r.Resolve("scan")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	assert.True(t, r.Registered("scan"))
	assert.False(t, r.Registered("index"))
	assert.ElementsMatch(t, []string{"scan"}, r.Types())
}

func TestRegistry_ResolveUnknownType(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Resolve("reason")
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Contains(t, err.Error(), "reason")
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("scan", noopHandler))

	err := r.Register("scan", noopHandler)
	assert.ErrorIs(t, err, ErrDuplicateHandler)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.ErrorIs(t, r.Register("", noopHandler), domain.ErrValidation)
	assert.ErrorIs(t, r.Register("scan", nil), domain.ErrValidation)
}

func TestRegistry_ValidatePayload(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("scan", noopHandler, WithValidator(func(payload json.RawMessage) error {
		var body struct {
			Target string `json:"target"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		if body.Target == "" {
			return errors.New("target is required")
		}
		return nil
	})))

	assert.NoError(t, r.ValidatePayload("scan", json.RawMessage(`{"target":"src/"}`)))

	err := r.ValidatePayload("scan", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "target is required")

	assert.ErrorIs(t, r.ValidatePayload("index", nil), ErrHandlerNotFound)
}

func TestRegistry_ValidatePayloadWithoutValidator(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("scan", noopHandler))
	assert.NoError(t, r.ValidatePayload("scan", json.RawMessage(`"anything"`)))
}
