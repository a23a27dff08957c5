package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, msg bytes.Buffer
	SetOutput(&out, &msg)
	SetColor(false)
	SetQuietMode(false)
	t.Cleanup(func() {
		SetOutput(stdoutDefault, stderrDefault)
		SetQuietMode(false)
	})
	return &out, &msg
}

var (
	stdoutDefault = stdout
	stderrDefault = stderr
)

func TestPrintJSONKeepsMessagesOffStdout(t *testing.T) {
	out, msg := capture(t)

	PrintInfo("Keyword", "咖啡")
	require.NoError(t, PrintJSON(map[string]interface{}{"status": "success", "url": "a&b"}, false))

	assert.Equal(t, "{\"status\":\"success\",\"url\":\"a&b\"}\n", out.String())
	assert.Equal(t, "Keyword: 咖啡\n", msg.String())
}

func TestPrintJSONPretty(t *testing.T) {
	out, _ := capture(t)

	require.NoError(t, PrintJSON(map[string]int{"count": 2}, true))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", out.String())
}

func TestQuietModeKeepsErrors(t *testing.T) {
	_, msg := capture(t)
	SetQuietMode(true)

	PrintSuccess("done")
	PrintWarning("careful")
	PrintError("Failed", "boom")

	assert.Equal(t, "Failed: boom\n", msg.String())
}

func TestColorize(t *testing.T) {
	capture(t)

	assert.Equal(t, "plain", Red("plain"))
	SetColor(true)
	defer SetColor(false)
	assert.Equal(t, "\033[31mplain\033[0m", Red("plain"))
}
