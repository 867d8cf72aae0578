// Package session carries the per-request state of the renewal pipeline:
// a request id, a logger tagged with that id, and the size limits the caller
// imposes. Nothing in the core keeps state across sessions.
package session

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
)

// DefaultMaxFileSize mirrors the 16MB upload cap of the renewal form
const DefaultMaxFileSize = 16 * 1024 * 1024

// Limits bounds the inputs a session accepts
type Limits struct {
	MaxFileSize int64
}

// Session is created once per request and passed explicitly to every component
type Session struct {
	ID        string
	Logger    *log.Logger
	Limits    Limits
	StartedAt time.Time
}

// New creates a session whose logger inherits base and tags every entry with
// the request id. A nil base logs nowhere.
func New(base *log.Logger, limits Limits) *Session {
	id := uuid.New().String()
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = DefaultMaxFileSize
	}

	logger := Discard()
	if base != nil {
		child := *base
		child.Context = log.NewContext(append([]byte(nil), base.Context...)).Str("request_id", id).Value()
		logger = &child
	}

	return &Session{
		ID:        id,
		Logger:    logger,
		Limits:    limits,
		StartedAt: time.Now(),
	}
}

// Background returns a session with a discarding logger and default limits
func Background() *Session {
	return New(nil, Limits{})
}

// Elapsed returns the time since the session started
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session carried by ctx, or a background session
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return Background()
}

// NewLogger builds the process logger. Level names follow config.LogLevel.
func NewLogger(level string, w io.Writer) *log.Logger {
	return &log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: time.RFC3339,
		Writer:     &log.IOWriter{Writer: w},
	}
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return &log.Logger{
		Level:  log.ErrorLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}
