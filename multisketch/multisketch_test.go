package multisketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiflotfy/sketchkit/cms"
	"github.com/seiflotfy/sketchkit/engine"
)

func newTestBundle(t *testing.T, seed uint64) *Bundle {
	t.Helper()
	b, err := New(
		&engine.CMSArgs{Variant: cms.Linear, Width: 1024, Depth: 8, Seed: seed},
		&engine.HHArgs{Width: 64, MaxKeyLen: 16, Seed: seed},
		&engine.HLLArgs{P: 10, Seed: seed},
	)
	require.NoError(t, err)
	return b
}

func TestBundleAddUpdatesAllThree(t *testing.T) {
	b := newTestBundle(t, 1)
	b.Add([]byte("a"), 3)
	b.Add([]byte("b"))

	assert.EqualValues(t, 3, b.CMS.Query([]byte("a")))
	assert.EqualValues(t, 2, b.HLL.NAdded())
	assert.NotEmpty(t, b.HH.Query(2), "expected at least one heavy hitter")
}

func TestBundleMergeRequiresMatchingShape(t *testing.T) {
	full := newTestBundle(t, 1)
	partial, err := New(nil, nil, &engine.HLLArgs{P: 10, Seed: 1})
	require.NoError(t, err)

	err = full.Merge(partial)
	assert.Error(t, err, "merge across differing bundle shapes should fail")
}

func TestBundleSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := newTestBundle(t, 42)
	b.Add([]byte("x"), 5)
	b.Add([]byte("y"), 1)
	b.AddRecord()

	require.NoError(t, b.Save(dir))
	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, b.CMS.Query([]byte("x")), loaded.CMS.Query([]byte("x")))
	assert.Equal(t, b.HLL.NAdded(), loaded.HLL.NAdded())
	assert.Equal(t, b.HH.NAdded(), loaded.HH.NAdded())
}
