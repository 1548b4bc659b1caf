package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/crewdesk/bridge-api/internal/models"
	"github.com/google/uuid"
)

// Result is the executor's outcome. Tool-level failure travels inside the
// payload; it is never an HTTP failure at the gateway.
type Result struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Invocation carries everything a tool handler may act on.
type Invocation struct {
	Tool    string
	OwnerID uuid.UUID
	Role    string
	Args    map[string]any
	Scopes  []string
}

// Executor dispatches a named tool on behalf of an authenticated key.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) Result
}

// Handler implements one tool.
type Handler func(ctx context.Context, inv Invocation) (any, error)

type registration struct {
	handler       Handler
	requiredScope string
}

// Registry maps tool names to handlers with a per-tool required scope.
// It is an owned map behind a mutex, not process-wide state.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registration)}
}

// Register adds a tool. An empty requiredScope means any valid key may
// invoke it.
func (r *Registry) Register(name, requiredScope string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = registration{handler: handler, requiredScope: requiredScope}
}

func (r *Registry) Execute(ctx context.Context, inv Invocation) Result {
	r.mu.RLock()
	reg, ok := r.tools[inv.Tool]
	r.mu.RUnlock()

	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("unknown tool: %s", inv.Tool)}
	}

	if reg.requiredScope != "" && !hasScope(inv.Scopes, reg.requiredScope) {
		return Result{Success: false, Error: fmt.Sprintf("missing required scope: %s", reg.requiredScope)}
	}

	value, err := reg.handler(ctx, inv)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Result: value}
}

func hasScope(scopes []string, required string) bool {
	for _, s := range scopes {
		if s == required || s == models.ScopeAdmin {
			return true
		}
	}
	return false
}
