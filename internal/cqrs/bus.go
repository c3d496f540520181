package cqrs

import (
	"context"
	"fmt"
	"sync"

	"github.com/saaskit/authcore/internal/reqctx"
)

// Command is a request to change one aggregate.
// CorrelationID links the command to the causal chain that produced it;
// saga-issued commands carry the id of a foreign originating request.
type Command interface {
	Name() string
	CorrelationID() string
}

// HandlerFunc executes one named command
type HandlerFunc func(ctx context.Context, cmd Command) error

// Bus maps command names to handlers, one handler per command.
// Dispatch re-enters the request scope of the command's correlation id
// before invoking the handler, so code running "on behalf of" the
// original request (repositories, event publication) observes the right
// id even when the dispatch happens outside the original call stack.
// The actor already present in ctx is preserved.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func New() *Bus {
	return &Bus{handlers: map[string]HandlerFunc{}}
}

func (b *Bus) Register(commandName string, h HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[commandName]; exists {
		return fmt.Errorf("handler for command %q registered already", commandName)
	}
	b.handlers[commandName] = h
	return nil
}

func (b *Bus) Dispatch(ctx context.Context, cmd Command) error {
	b.mu.RLock()
	handler, ok := b.handlers[cmd.Name()]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no handler for command %q", cmd.Name())
	}

	if cid := cmd.CorrelationID(); cid != "" && cid != reqctx.RequestID(ctx) {
		ctx = reqctx.WithRequestID(ctx, cid)
	}

	return handler(ctx, cmd)
}
