package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_chat_relay/internal/config"
)

func TestNew_ConsoleAndFile(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "relay.log")

	l, err := New(config.LogConfig{Level: "debug", File: file, MaxSize: 1}, &buf)
	require.NoError(t, err)

	log.Debug().Str("session_id", "abc").Msg("hello")
	require.NoError(t, l.Close())

	assert.Contains(t, buf.String(), `"session_id":"abc"`)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNew_LevelFallback(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "bogus"}, &buf)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}
