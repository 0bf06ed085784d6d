package factgraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlovans/factform/pkg/factpath"
)

const testDictionary = `
facts:
  - path: /isMarried
    type: boolean
  - path: /filingStatus
    type: enum
    options: [single, marriedFilingJointly, headOfHousehold]
  - path: /name
    type: string
  - path: /dependents
    type: int
    placeholder: "0"
  - path: /jobs
    type: collection
  - path: /jobs/*/income
    type: dollar
  - path: /jobs/*/startDate
    type: date
  - path: /jobs/*/employer
    type: string
`

func newTestGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	dict, err := ParseDictionary([]byte(testDictionary))
	require.NoError(t, err)
	return New(dict, opts...)
}

func p(s string) factpath.Path { return factpath.MustParse(s) }

func TestSetAndGetByType(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddToCollection(p("/jobs"), "a"))

	tests := []struct {
		path string
		raw  string
		want string
	}{
		{"/isMarried", "true", "true"},
		{"/isMarried", "false", "false"},
		{"/filingStatus", "single", "single"},
		{"/name", "Ada Lovelace", "Ada Lovelace"},
		{"/dependents", " 3 ", "3"},
		{"/jobs/#a/income", "1234.5", "1234.50"},
		{"/jobs/#a/income", "$52,000", "52000.00"},
		{"/jobs/#a/startDate", "2024-3-05", "2024-03-05"},
		{"/jobs/#a/startDate", "2024-03-05", "2024-03-05"},
	}

	for _, tt := range tests {
		t.Run(tt.path+"="+tt.raw, func(t *testing.T) {
			require.NoError(t, g.Set(p(tt.path), tt.raw))
			r := g.Get(p(tt.path))
			assert.True(t, r.HasValue)
			assert.True(t, r.Complete)
			assert.Equal(t, tt.want, r.String())
		})
	}
}

func TestSetRejectsBadInput(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddToCollection(p("/jobs"), "a"))

	tests := []struct {
		path string
		raw  string
	}{
		{"/isMarried", "yes"},
		{"/filingStatus", "married"},
		{"/dependents", "two"},
		{"/jobs/#a/income", "12.345"},
		{"/jobs/#a/income", "lots"},
		{"/jobs/#a/startDate", "2024-3-"},
		{"/jobs/#a/startDate", "2024--05"},
		{"/jobs/#a/startDate", "2023-2-29"},
		{"/jobs/#a/startDate", "24-3-05"},
	}

	for _, tt := range tests {
		t.Run(tt.path+"="+tt.raw, func(t *testing.T) {
			err := g.Set(p(tt.path), tt.raw)
			var ve *ValueError
			require.True(t, errors.As(err, &ve), "want ValueError, got %v", err)
			assert.Equal(t, tt.path, ve.Path)
			assert.Equal(t, tt.raw, ve.Raw)
		})
	}
}

func TestSetStructuralErrors(t *testing.T) {
	g := newTestGraph(t)

	assert.ErrorIs(t, g.Set(p("/jobs/*/income"), "1"), ErrAbstractPath)
	assert.ErrorIs(t, g.Set(p("/nope"), "1"), ErrUnknownFact)
	assert.ErrorIs(t, g.Set(p("/jobs/#ghost/income"), "1"), ErrUnknownItem)
	assert.ErrorIs(t, g.AddToCollection(p("/name"), "x"), ErrNotCollection)
}

func TestPlaceholderIsIncomplete(t *testing.T) {
	g := newTestGraph(t)

	r := g.Get(p("/dependents"))
	assert.True(t, r.HasValue)
	assert.False(t, r.Complete)
	assert.Equal(t, "0", r.String())

	require.NoError(t, g.Set(p("/dependents"), "2"))
	assert.True(t, g.Get(p("/dependents")).Complete)

	g.Delete(p("/dependents"))
	assert.False(t, g.Get(p("/dependents")).Complete)
}

func TestGetAbsentAndAbstract(t *testing.T) {
	g := newTestGraph(t)
	assert.Equal(t, Result{}, g.Get(p("/isMarried")))
	assert.Equal(t, Result{}, g.Get(p("/jobs/*/income")))
	assert.Equal(t, Result{}, g.Get(p("/unknown")))
}

func TestDeleteItemRemovesSubtree(t *testing.T) {
	g := newTestGraph(t)
	jobs := p("/jobs")
	require.NoError(t, g.AddToCollection(jobs, "a"))
	require.NoError(t, g.AddToCollection(jobs, "b"))
	require.NoError(t, g.Set(p("/jobs/#a/income"), "10"))
	require.NoError(t, g.Set(p("/jobs/#b/income"), "20"))

	g.Delete(p("/jobs/#a"))

	if diff := cmp.Diff([]string{"b"}, g.CollectionIDs(jobs)); diff != "" {
		t.Errorf("CollectionIDs mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, g.Get(p("/jobs/#a/income")).HasValue)
	assert.Equal(t, "20.00", g.Get(p("/jobs/#b/income")).String())

	// deleting twice is a no-op
	g.Delete(p("/jobs/#a"))
	assert.Equal(t, []string{"b"}, g.CollectionIDs(jobs))
}

func TestAddToCollectionRejectsDuplicates(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddToCollection(p("/jobs"), "a"))
	assert.Error(t, g.AddToCollection(p("/jobs"), "a"))
	assert.Error(t, g.AddToCollection(p("/jobs"), ""))
}

func TestValuesExpandsWildcards(t *testing.T) {
	g := newTestGraph(t)
	jobs := p("/jobs")
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddToCollection(jobs, id))
	}
	require.NoError(t, g.Set(p("/jobs/#a/employer"), "Acme"))
	require.NoError(t, g.Set(p("/jobs/#c/employer"), "Globex"))

	results := g.Values(p("/jobs/*/employer"))
	require.Len(t, results, 3)

	var got []string
	for _, r := range results {
		if r.HasValue {
			got = append(got, r.String())
		}
	}
	assert.Equal(t, []string{"Acme", "Globex"}, got)

	assert.Len(t, g.Values(p("/isMarried")), 1)
}

func TestSerializeRoundTrip(t *testing.T) {
	var persisted string
	g := newTestGraph(t, WithPersister(PersisterFunc(func(s string) error {
		persisted = s
		return nil
	})))
	require.NoError(t, g.AddToCollection(p("/jobs"), "a"))
	require.NoError(t, g.AddToCollection(p("/jobs"), "b"))
	require.NoError(t, g.Set(p("/jobs/#b/startDate"), "2024-3-05"))
	require.NoError(t, g.Set(p("/isMarried"), "true"))
	require.NoError(t, g.Save())
	require.NotEmpty(t, persisted)

	restored, err := Deserialize(g.Dictionary(), persisted)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, restored.CollectionIDs(p("/jobs")))
	assert.Equal(t, "2024-03-05", restored.Get(p("/jobs/#b/startDate")).String())
	b, ok := restored.Get(p("/isMarried")).Bool()
	assert.True(t, ok)
	assert.True(t, b)
	assert.False(t, restored.Get(p("/dependents")).Complete)
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	g := newTestGraph(t)
	_, err := Deserialize(g.Dictionary(), "{not json")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Deserialize(g.Dictionary(), `{"facts":{"/jobs/#x/income":"1"}}`)
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestDictionaryValidation(t *testing.T) {
	tests := map[string]string{
		"unknown type":        "facts:\n  - path: /a\n    type: blob\n",
		"enum without option": "facts:\n  - path: /a\n    type: enum\n",
		"orphan wildcard":     "facts:\n  - path: /jobs/*/x\n    type: int\n",
		"bad placeholder":     "facts:\n  - path: /a\n    type: int\n    placeholder: many\n",
		"duplicate":           "facts:\n  - path: /a\n    type: int\n  - path: /a\n    type: int\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDictionary([]byte(doc))
			assert.Error(t, err)
		})
	}
}
