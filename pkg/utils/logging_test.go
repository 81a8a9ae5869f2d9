package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")

	l, err := NewLogger("debug", path)
	require.NoError(t, err)

	l.Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewLogger_Level(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")

	l, err := NewLogger("warn", path)
	require.NoError(t, err)

	l.Info("quiet")
	l.Warn("loud")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger("chatty", "")
	assert.Error(t, err)

	l := MustLogger("chatty", "")
	assert.NotNil(t, l)
}
