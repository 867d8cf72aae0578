package session

import (
	"bytes"
	"context"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TagsLoggerWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger("debug", &buf)

	s := New(base, Limits{MaxFileSize: 1024})
	require.NotNil(t, s.Logger)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, int64(1024), s.Limits.MaxFileSize)

	s.Logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), s.ID)
	assert.Contains(t, buf.String(), "hello")
}

func TestNew_KeepsBaseContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger("info", &buf)
	base.Context = log.NewContext(nil).Str("service", "pdf-renew").Value()
	baseContext := string(base.Context)

	s := New(base, Limits{})
	s.Logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"service":"pdf-renew"`)
	assert.Contains(t, buf.String(), `"request_id":"`+s.ID+`"`)
	assert.Equal(t, baseContext, string(base.Context))
}

func TestNew_DefaultsAndIsolation(t *testing.T) {
	a := Background()
	b := Background()

	assert.NotEqual(t, a.ID, b.ID, "sessions must not share ids")
	assert.Equal(t, int64(DefaultMaxFileSize), a.Limits.MaxFileSize)
	assert.GreaterOrEqual(t, a.Elapsed().Nanoseconds(), int64(0))
}

func TestNew_DoesNotMutateBase(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger("info", &buf)

	_ = New(base, Limits{})
	assert.Empty(t, base.Context)
}

func TestFromContext(t *testing.T) {
	s := New(NewLogger("info", &bytes.Buffer{}), Limits{MaxFileSize: 10})
	ctx := NewContext(context.Background(), s)

	assert.Same(t, s, FromContext(ctx))

	bg := FromContext(context.Background())
	require.NotNil(t, bg)
	assert.NotEqual(t, s.ID, bg.ID)
	assert.Equal(t, int64(DefaultMaxFileSize), bg.Limits.MaxFileSize)
}
