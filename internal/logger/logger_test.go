package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		" WARN ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range tests {
		SetLevel(in)
		assert.Equal(t, want, Logger.GetLevel(), "level %q", in)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	entry := Component("quota")
	SetLevel("error")
	entry.Warn("suppressed")
	assert.Zero(t, buf.Len())

	SetLevel("info")
	entry.WithField("scope", "day").Warn("Quota exhausted")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "quota", line["component"])
	assert.Equal(t, "day", line["scope"])
	assert.Equal(t, "Quota exhausted", line["msg"])
}
