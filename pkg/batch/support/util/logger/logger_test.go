package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "json")
	t.Cleanup(func() { SetLogLevel("INFO") })

	SetLogLevel("WARN")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "shown 2", entry["msg"])
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "json")

	SetLogLevel("verbose")
	Debugf("debug line")
	Infof("info line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.Contains(t, out, "info line")
}

func TestFatalf_Exits(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "json")
	code := 0
	exitFunc = func(c int) { code = c }
	t.Cleanup(func() { exitFunc = os.Exit })

	Fatalf("boom: %s", "db")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "boom: db")
}
