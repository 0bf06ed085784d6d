package playback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlovans/factform/pkg/dom"
	"github.com/dlovans/factform/pkg/factgraph"
	"github.com/dlovans/factform/pkg/form"
)

const dictionary = `
facts:
  - path: /isMarried
    type: boolean
  - path: /spouseName
    type: string
  - path: /dependents
    type: int
    placeholder: "0"
  - path: /jobs
    type: collection
  - path: /jobs/*/income
    type: dollar
`

const page = `<html><body><main id="main-content">
  <fg-set path="/isMarried" inputtype="boolean" id="married">
    <input type="radio" name="married" value="true" id="married-yes">
    <input type="radio" name="married" value="false" id="married-no">
  </fg-set>
  <fg-set path="/spouseName" inputtype="text" condition="/isMarried" operator="isTrue" id="spouse">
    <input type="text" id="spouse-name">
  </fg-set>
  <fg-set path="/dependents" inputtype="int" optional><input type="text" id="deps"></fg-set>
  <fg-collection path="/jobs" itemlabel="Job">
    <fg-set path="/jobs/*/income" inputtype="dollar" optional><input type="text" id="income-*"></fg-set>
  </fg-collection>
  <fg-show path="/spouseName" id="show-spouse"></fg-show>
  <fg-show path="/dependents" id="show-deps"></fg-show>
  <fg-reset><button type="button" id="reset">Start over</button></fg-reset>
</main></body></html>`

func newTestForm(t *testing.T) *form.Form {
	t.Helper()
	dict, err := factgraph.ParseDictionary([]byte(dictionary))
	require.NoError(t, err)
	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	next := 0
	f := form.New(doc, factgraph.New(dict), form.Options{
		IDs: func() string {
			next++
			return fmt.Sprintf("id%d", next)
		},
		NewStore: func() form.Store { return factgraph.New(dict) },
		LoadStore: func(s string) (form.Store, error) {
			return factgraph.Deserialize(dict, s)
		},
	})
	f.Mount()
	return f
}

const marriedScript = `
name: married filer changes their mind
steps:
  - expect:
      hidden: [spouse]
      incomplete: [/dependents]
      text: {show-deps: "0 [Placeholder value]"}
  - action: check
    target: married-yes
    expect:
      facts: {/isMarried: "true"}
      visible: [spouse]
  - action: type
    target: spouse-name
    value: Sam
  - action: blur
    expect:
      facts: {/spouseName: Sam}
      text: {show-spouse: Sam}
  - action: check
    target: married-no
    expect:
      absent: [/spouseName]
      hidden: [spouse]
      values: {spouse-name: ""}
      text: {show-spouse: "[Fact has no value]"}
  - action: continue
    expect:
      proceed: true
      query:
        facts./isMarried: "false"
        facts./spouseName: ""
`

func TestMarriedScript(t *testing.T) {
	s, err := ParseScript([]byte(marriedScript))
	require.NoError(t, err)

	report, err := New(newTestForm(t), nil).Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Steps)
	assert.Empty(t, report.Failures)
	assert.True(t, report.Passed())
}

const jobsScript = `
name: jobs
steps:
  - action: add
    path: /jobs
  - action: add
    path: /jobs
  - action: type
    target: income-id2
    value: lots
  - action: blur
    expect:
      errors: {/jobs/#id2/income: "\"lots\" is not a dollar amount"}
  - action: type
    target: income-id2
    value: "1,200"
  - action: tab
    expect:
      errors: {/jobs/#id2/income: ""}
      facts: {/jobs/#id2/income: "1200.00"}
  - action: remove
    path: /jobs
    index: 0
    expect:
      items: {/jobs: 1}
      query:
        collections./jobs.#: "1"
        collections./jobs.0: id2
  - action: click
    target: reset
    expect:
      items: {/jobs: 0}
      absent: [/jobs/#id2/income]
`

func TestJobsScript(t *testing.T) {
	s, err := ParseScript([]byte(jobsScript))
	require.NoError(t, err)

	report, err := New(newTestForm(t), nil).Run(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
}

func TestFailuresAreReported(t *testing.T) {
	s, err := ParseScript([]byte(`
steps:
  - action: continue
    expect:
      proceed: true
      facts: {/isMarried: "true"}
      visible: [spouse]
`))
	require.NoError(t, err)

	report, err := New(newTestForm(t), nil).Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, report.Passed())
	assert.Equal(t, []Failure{
		{Step: 1, Message: `fact /isMarried: want "true", has no value`},
		{Step: 1, Message: "#spouse: want visible"},
		{Step: 1, Message: "proceed: want true, got false"},
	}, report.Failures)
}

func TestUnperformableStepStopsTheRun(t *testing.T) {
	s := &Script{Steps: []Step{
		{Action: ActionCheck, Target: "married-yes"},
		{Action: ActionClick, Target: "nowhere"},
		{Action: ActionCheck, Target: "married-no"},
	}}
	f := newTestForm(t)

	report, err := New(f, nil).Run(context.Background(), s)
	assert.ErrorIs(t, err, ErrNoElement)
	assert.ErrorContains(t, err, "step 2 (click)")
	assert.Equal(t, 1, report.Steps)
	assert.True(t, dom.Checked(f.Document().ByID("married-yes")))

	_, err = New(f, nil).Run(context.Background(), &Script{Steps: []Step{{Action: ActionRemove, Path: "/jobs"}}})
	assert.ErrorContains(t, err, "has no item 0")
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(newTestForm(t), nil).Run(ctx, &Script{Steps: []Step{{Action: ActionBlur}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadStepRestoresSerializedGraph(t *testing.T) {
	s := &Script{Steps: []Step{{
		Action: ActionLoad,
		Value:  `{"facts":{"/isMarried":"true","/spouseName":"Kim"},"collections":{}}`,
		Expect: &Expect{
			Values:  map[string]string{"spouse-name": "Kim"},
			Visible: []string{"spouse"},
		},
	}}}
	report, err := New(newTestForm(t), nil).Run(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
}

func TestParseScriptValidatesSteps(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "unknown action", yaml: "steps: [{action: dance}]", wantErr: `step 1: unknown action "dance"`},
		{name: "missing target", yaml: "steps: [{action: type, value: x}]", wantErr: "type needs a target"},
		{name: "missing path", yaml: "steps: [{action: blur}, {action: add}]", wantErr: "step 2: add needs a collection path"},
		{name: "empty step", yaml: "steps: [{}]", wantErr: "neither an action nor expectations"},
		{name: "bad yaml", yaml: "steps: [", wantErr: "failed to parse script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "married.yaml")
	require.NoError(t, os.WriteFile(path, []byte(marriedScript), 0644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, "married filer changes their mind", s.Name)
	assert.Len(t, s.Steps, 6)

	_, err = LoadScript(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read script")
}
