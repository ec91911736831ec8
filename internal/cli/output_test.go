package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flatkv/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(CodeInvalidQuery, "invalid query", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "invalid query", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		NoColor: true,
	}

	err := formatter.Error(CodeRejected, "record rejected", map[string]string{"id": "a"})
	require.NoError(t, err)
	assert.Equal(t, "Error [E002]: record rejected\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
		NoColor: true,
	}

	err := formatter.Error(CodeRejected, "record rejected", "MISSING_VALUE")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E002]")
	assert.Contains(t, buf.String(), "Details: MISSING_VALUE")
}

func TestOutputFormatter_TextEntries(t *testing.T) {
	pt, err := ir.NewContainer("pt", []ir.Entry{ir.NewScalar("x", "1"), ir.NewScalar("y", "2")})
	require.NoError(t, err)
	entries := []ir.Entry{
		ir.NewScalar("name", "ada"),
		ir.NewJSON("prefs", ir.NewObject(ir.O("theme", ir.String("dark")))),
		pt,
	}

	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, NoColor: true}
	require.NoError(t, formatter.Entries(entries))

	want := "name=ada\n" +
		"prefs={\"theme\":\"dark\"} (json)\n" +
		"pt (container)\n" +
		"  x=1\n" +
		"  y=2\n"
	assert.Equal(t, want, buf.String())
}

func TestOutputFormatter_TextEntriesColor(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, formatter.Entries([]ir.Entry{ir.NewScalar("a", "1")}))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "=1")
}

func TestOutputFormatter_JSONEntries(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, formatter.Entries([]ir.Entry{
		ir.NewScalar("a", "<b>"),
		ir.NewJSON("n", ir.Int(5)),
	}))

	// HTML characters are not escaped.
	assert.Contains(t, buf.String(), `"<b>"`)

	var resp struct {
		Status string           `json:"status"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "scalar", resp.Data[0]["kind"])
	assert.Equal(t, "json", resp.Data[1]["kind"])
	assert.Equal(t, float64(5), resp.Data[1]["value"])
}

func TestOutputFormatter_Status(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, NoColor: true}
	require.NoError(t, formatter.Status("stored a", StoreResult{ID: "a", Stored: true}))
	assert.Equal(t, "✓ stored a\n", buf.String())

	buf.Reset()
	formatter.Format = "json"
	require.NoError(t, formatter.Status("stored a", StoreResult{ID: "a", Stored: true}))
	assert.JSONEq(t, `{"status":"ok","data":{"id":"a","stored":true}}`, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "seed.yaml")

			assert.Empty(t, buf.String())
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "Processing seed.yaml")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestExitError(t *testing.T) {
	base := errors.New("disk full")

	err := WrapExitError(ExitCommandError, "failed to open database", base)
	assert.Equal(t, "failed to open database: disk full", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitFailure, "nothing matched"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))

	assert.Equal(t, ExitFailure, GetExitCode(base))
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}
