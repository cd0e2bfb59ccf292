package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/phrazzld/taskboard/internal/domain"
)

// HandlerFunc performs the actual analysis or reasoning work for one task
// type. The context carries the cooperative cancellation signal: handlers
// must check ctx at reasonable intervals and return promptly once it is
// done. Handlers must be idempotent, because crash recovery and retries may
// invoke them again with the same payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// ValidatorFunc checks at submit time that a payload is well-formed for a
// task type, so malformed work is rejected synchronously and never enters
// the queue.
type ValidatorFunc func(payload json.RawMessage) error

// DigestFunc derives a compact summary from a completed task's result. It
// runs once, at completion time.
type DigestFunc func(result json.RawMessage) *domain.Digest

// registration bundles a handler with its optional payload validator and
// digest step.
type registration struct {
	handler  HandlerFunc
	validate ValidatorFunc
	digest   DigestFunc
}

// RegisterOption customizes a handler registration.
type RegisterOption func(*registration)

// WithValidator attaches a payload validator consulted by submit.
func WithValidator(fn ValidatorFunc) RegisterOption {
	return func(r *registration) {
		r.validate = fn
	}
}

// WithDigest attaches a digest step run once when a task completes.
func WithDigest(fn DigestFunc) RegisterOption {
	return func(r *registration) {
		r.digest = fn
	}
}

// Registry maps task-type names to handler functions. It is a pure lookup
// table with no execution logic.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*registration
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]*registration),
	}
}

// Register binds a handler to a task type. Registering the same type twice
// fails with ErrDuplicateHandler.
func (r *Registry) Register(taskType string, fn HandlerFunc, opts ...RegisterOption) error {
	if taskType == "" {
		return fmt.Errorf("%w: task type cannot be empty", domain.ErrValidation)
	}
	if fn == nil {
		return fmt.Errorf("%w: handler cannot be nil", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[taskType]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, taskType)
	}

	reg := &registration{handler: fn}
	for _, opt := range opts {
		opt(reg)
	}
	r.handlers[taskType] = reg
	return nil
}

// Resolve returns the handler bound to a task type, or ErrHandlerNotFound.
func (r *Registry) Resolve(taskType string) (HandlerFunc, error) {
	reg, err := r.resolve(taskType)
	if err != nil {
		return nil, err
	}
	return reg.handler, nil
}

// Registered reports whether a handler is bound to the task type.
func (r *Registry) Registered(taskType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[taskType]
	return exists
}

// Types returns the registered task-type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for taskType := range r.handlers {
		types = append(types, taskType)
	}
	return types
}

// ValidatePayload runs the type's payload validator, if one was registered.
func (r *Registry) ValidatePayload(taskType string, payload json.RawMessage) error {
	reg, err := r.resolve(taskType)
	if err != nil {
		return err
	}
	if reg.validate == nil {
		return nil
	}
	if err := reg.validate(payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func (r *Registry) resolve(taskType string) (*registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, exists := r.handlers[taskType]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotFound, taskType)
	}
	return reg, nil
}
