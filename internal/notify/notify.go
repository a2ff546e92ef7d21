// Package notify delivers user-visible outcome messages.
//
// Notices are fire-and-forget: stores report what happened and never branch
// on whether a message was shown. The HTTP layer attaches a Collector to each
// request context and returns whatever was collected alongside the response.
package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Notice levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notice is one message shown to the shopper
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Notifier reports outcomes of store operations
type Notifier interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// Collector accumulates notices for a single request
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) add(n Notice) {
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
}

// Notices returns the collected notices in emission order. It never returns nil.
func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

type ctxKeyCollector struct{}

// WithCollector returns a context carrying a fresh Collector
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, ctxKeyCollector{}, c), c
}

// FromContext returns the request Collector, or nil outside a request
func FromContext(ctx context.Context) *Collector {
	c, _ := ctx.Value(ctxKeyCollector{}).(*Collector)
	return c
}

// LogNotifier logs every notice and hands it to the request Collector, if any
type LogNotifier struct {
	log logrus.FieldLogger
}

// NewLogNotifier creates the default notifier
func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Success implements Notifier
func (n *LogNotifier) Success(ctx context.Context, msg string) {
	n.emit(ctx, Notice{Level: LevelSuccess, Message: msg})
}

// Error implements Notifier
func (n *LogNotifier) Error(ctx context.Context, msg string) {
	n.emit(ctx, Notice{Level: LevelError, Message: msg})
}

func (n *LogNotifier) emit(ctx context.Context, notice Notice) {
	n.log.WithField("level", notice.Level).Debug(notice.Message)
	if c := FromContext(ctx); c != nil {
		c.add(notice)
	}
}
