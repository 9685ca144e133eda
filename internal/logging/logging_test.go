package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	var buf bytes.Buffer
	require.NoError(t, Setup("warn", &buf))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	logrus.Info("hidden")
	logrus.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetup_DefaultLevel(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	require.NoError(t, Setup("", &bytes.Buffer{}))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestSetup_InvalidLevel(t *testing.T) {
	assert.Error(t, Setup("loud", &bytes.Buffer{}))
}
