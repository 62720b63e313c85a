package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_NilReturnsDiscard(t *testing.T) {
	l := Default(nil)
	assert.NotNil(t, l)
	assert.False(t, l.Enabled(t.Context(), slog.LevelError))
}

func TestDefault_KeepsLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	assert.Same(t, l, Default(l))
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	New(&buf, false).Warn("warned")
	assert.Contains(t, buf.String(), "msg=warned")

	New(&buf, true).Debug("shown", "k", "v")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "k=v")
}
