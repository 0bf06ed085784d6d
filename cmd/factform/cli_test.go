package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dlovans/factform/internal/config"
)

const testDictionary = `
facts:
  - path: /isMarried
    type: boolean
  - path: /spouseName
    type: string
`

const testPage = `<html><body><main>
  <fg-set path="/isMarried" inputtype="boolean" id="married">
    <input type="radio" name="married" value="true" id="married-yes">
    <input type="radio" name="married" value="false" id="married-no">
  </fg-set>
  <fg-set path="/spouseName" inputtype="text" condition="/isMarried" operator="isTrue" id="spouse">
    <input type="text" id="spouse-name">
  </fg-set>
</main></body></html>`

// setupCLI points the globals at a fresh page and dictionary.
func setupCLI(t *testing.T, page string) string {
	t.Helper()
	dir := t.TempDir()
	cfg = config.DefaultConfig()
	cfg.Page = filepath.Join(dir, "form.html")
	cfg.Dictionary = filepath.Join(dir, "facts.yaml")
	require.NoError(t, os.WriteFile(cfg.Page, []byte(page), 0644))
	require.NoError(t, os.WriteFile(cfg.Dictionary, []byte(testDictionary), 0644))
	logger = zap.NewNop()

	factsFile, lintJSON, playJSON, playQueries = "", false, false, nil
	return dir
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	return cmd, out
}

func TestRenderMarksHiddenFields(t *testing.T) {
	setupCLI(t, testPage)
	cmd, out := newTestCmd()

	require.NoError(t, runRender(cmd, nil))
	assert.Contains(t, out.String(), `id="spouse-name"`)
	assert.Contains(t, out.String(), `hidden`)
}

func TestOpenFormNeedsDictionary(t *testing.T) {
	setupCLI(t, testPage)
	cfg.Dictionary = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := openForm()
	assert.Error(t, err)
}

func TestLintCleanPage(t *testing.T) {
	setupCLI(t, testPage)
	cmd, out := newTestCmd()

	require.NoError(t, runLint(cmd, nil))
	assert.Contains(t, out.String(), "No issues found")
}

func TestLintReportsErrors(t *testing.T) {
	setupCLI(t, `<main><fg-set path="/isMarried" inputtype="boolean" condition="/isMarried" operator="isMaybe"><input type="checkbox"></fg-set></main>`)
	cmd, out := newTestCmd()

	err := runLint(cmd, nil)
	assert.ErrorIs(t, err, errLintFailed)
	assert.Contains(t, out.String(), "unknown operator 'isMaybe'")
	assert.Contains(t, out.String(), "[rule: unknown-operator]")
}

func TestLintKnowsConfiguredOperators(t *testing.T) {
	setupCLI(t, `<main><fg-set path="/isMarried" inputtype="boolean"><input type="checkbox"></fg-set>
<div condition="/isMarried" operator="isMaybe">maybe</div></main>`)
	cfg.Operators["isMaybe"] = "!complete"
	lintJSON = true
	cmd, out := newTestCmd()

	require.NoError(t, runLint(cmd, nil))
	var res struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.Valid)
}

func TestPlayScript(t *testing.T) {
	dir := setupCLI(t, testPage)
	script := filepath.Join(dir, "married.yaml")
	require.NoError(t, os.WriteFile(script, []byte(`
name: married
steps:
  - expect:
      hidden: [spouse]
  - action: check
    target: married-yes
    expect:
      visible: [spouse]
      facts: {/isMarried: "true"}
`), 0644))
	playQueries = []string{"facts./isMarried"}
	cmd, out := newTestCmd()

	require.NoError(t, runPlay(cmd, []string{script}))
	assert.Contains(t, out.String(), "✓ married: 2 steps")
	assert.Contains(t, out.String(), "facts./isMarried = true")
}

func TestPlayReportsFailures(t *testing.T) {
	dir := setupCLI(t, testPage)
	script := filepath.Join(dir, "wrong.yaml")
	require.NoError(t, os.WriteFile(script, []byte(`
steps:
  - expect:
      visible: [spouse]
`), 0644))
	cmd, out := newTestCmd()

	err := runPlay(cmd, []string{script})
	assert.ErrorIs(t, err, errPlayFailed)
	assert.Contains(t, out.String(), "✗ "+script)
	assert.Contains(t, out.String(), "step 1:")
}
