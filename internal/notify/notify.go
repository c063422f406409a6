// Package notify collects the transient user-facing notices produced by the
// managers. Front doors drain them after each action and show them once.
package notify

import (
	"context"
	"sync"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"   yaml:"level"`
	Message string `json:"message" yaml:"message"`
}

type Notifier struct {
	mu      sync.Mutex
	pending []Notice
}

func New() *Notifier {
	return &Notifier{}
}

func (n *Notifier) push(ctx context.Context, lvl Level, msg string) {
	if n == nil || msg == "" {
		return
	}
	logging.FromContext(ctx).Debug("notice", "level", string(lvl), "message", msg)
	n.mu.Lock()
	n.pending = append(n.pending, Notice{Level: lvl, Message: msg})
	n.mu.Unlock()
}

func (n *Notifier) Success(ctx context.Context, msg string) { n.push(ctx, LevelSuccess, msg) }
func (n *Notifier) Info(ctx context.Context, msg string)    { n.push(ctx, LevelInfo, msg) }
func (n *Notifier) Error(ctx context.Context, msg string)   { n.push(ctx, LevelError, msg) }

// Drain returns the pending notices and forgets them.
func (n *Notifier) Drain() []Notice {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	return out
}

// Peek returns the pending notices without consuming them.
func (n *Notifier) Peek() []Notice {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.pending))
	copy(out, n.pending)
	return out
}
