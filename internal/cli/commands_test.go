package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func decodeResponse(t *testing.T, stdout string) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout: %s", stdout)
	return resp
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "patchbay.db")
}

func TestCLI_ApplyLogUndoRedo(t *testing.T) {
	db := tempDB(t)

	// Apply the initial patch.
	stdout, _, err := execute(t, "--db", db, "--format", "json", "apply", "testdata/patches/add_blocks.cue")
	require.NoError(t, err)
	resp := decodeResponse(t, stdout)
	require.Equal(t, "ok", resp["status"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(1), data["revision"])
	assert.Equal(t, "initial patch", data["label"])

	// The log shows one revision, currently checked out.
	stdout, _, err = execute(t, "--db", db, "--format", "json", "log")
	require.NoError(t, err)
	resp = decodeResponse(t, stdout)
	data = resp["data"].(map[string]any)
	assert.Equal(t, float64(1), data["current_revision"])
	require.Len(t, data["revisions"], 1)

	// Show reflects the applied document.
	stdout, _, err = execute(t, "--db", db, "--format", "json", "show")
	require.NoError(t, err)
	resp = decodeResponse(t, stdout)
	doc := resp["data"].(map[string]any)["document"].(map[string]any)
	assert.Len(t, doc["blocks"], 2)
	assert.Len(t, doc["connections"], 1)
	assert.Equal(t, "osc1", doc["time_root"])

	// Undo steps back to the empty root; redo retraces.
	stdout, _, err = execute(t, "--db", db, "--format", "json", "undo")
	require.NoError(t, err)
	resp = decodeResponse(t, stdout)
	data = resp["data"].(map[string]any)
	assert.Equal(t, float64(0), data["current_revision"])
	assert.Equal(t, true, data["can_redo"])

	stdout, _, err = execute(t, "--db", db, "--format", "json", "redo")
	require.NoError(t, err)
	resp = decodeResponse(t, stdout)
	assert.Equal(t, float64(1), resp["data"].(map[string]any)["current_revision"])

	// A follow-up removal patch commits as revision 2.
	stdout, _, err = execute(t, "--db", db, "--format", "json", "apply", "testdata/patches/remove_osc.cue")
	require.NoError(t, err)
	resp = decodeResponse(t, stdout)
	assert.Equal(t, float64(2), resp["data"].(map[string]any)["revision"])

	stdout, _, err = execute(t, "--db", db, "--format", "json", "show")
	require.NoError(t, err)
	resp = decodeResponse(t, stdout)
	doc = resp["data"].(map[string]any)["document"].(map[string]any)
	assert.Len(t, doc["blocks"], 1)
	assert.Empty(t, doc["connections"])
	assert.Equal(t, "", doc["time_root"])
}

func TestCLI_ApplyDuplicateRejected(t *testing.T) {
	db := tempDB(t)

	_, _, err := execute(t, "--db", db, "apply", "testdata/patches/add_blocks.cue")
	require.NoError(t, err)

	stdout, _, err := execute(t, "--db", db, "--format", "json", "apply", "testdata/patches/add_blocks.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, stdout)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, ErrCodeRejected, resp["error"].(map[string]any)["code"])

	// The rejected patch recorded nothing.
	stdout, _, err = execute(t, "--db", db, "--format", "json", "log")
	require.NoError(t, err)
	resp = decodeResponse(t, stdout)
	require.Len(t, resp["data"].(map[string]any)["revisions"], 1)
}

func TestCLI_ValidateDoesNotPersist(t *testing.T) {
	db := tempDB(t)

	stdout, _, err := execute(t, "--db", db, "--format", "json", "validate", "testdata/patches/add_blocks.cue")
	require.NoError(t, err)
	resp := decodeResponse(t, stdout)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["data"].(map[string]any)["valid"])

	// Validation left no revisions behind.
	stdout, _, err = execute(t, "--db", db, "--format", "json", "log")
	require.NoError(t, err)
	resp = decodeResponse(t, stdout)
	assert.Equal(t, float64(0), resp["data"].(map[string]any)["current_revision"])
	assert.Empty(t, resp["data"].(map[string]any)["revisions"])
}

func TestCLI_ValidateReportsRejection(t *testing.T) {
	db := tempDB(t)

	// Removing from an empty document cannot succeed.
	_, _, err := execute(t, "--db", db, "validate", "testdata/patches/remove_osc.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCLI_UndoAtRoot(t *testing.T) {
	db := tempDB(t)

	stdout, _, err := execute(t, "--db", db, "--format", "json", "undo")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, stdout)
	assert.Equal(t, ErrCodeNoHistory, resp["error"].(map[string]any)["code"])
}

func TestCLI_InvalidFormatRejected(t *testing.T) {
	_, _, err := execute(t, "--format", "yaml", "log")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestCLI_MissingPatchFile(t *testing.T) {
	db := tempDB(t)

	_, _, err := execute(t, "--db", db, "apply", "testdata/patches/nope.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
