package flowdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func testChannels() []Channel {
	return []Channel{
		{Name: "FSC-A"},
		{Name: "FL1-H", Marker: "CD3"},
		{Name: "FL2-H", Marker: "CD4"},
	}
}

func TestResolveChannels(t *testing.T) {
	t.Parallel()
	src := NewMemorySource(testChannels(), nil)

	t.Run("by marker", func(t *testing.T) {
		names, err := src.ResolveChannels([]string{"CD3", "CD4"})
		require.NoError(t, err)
		assert.Equal(t, []string{"FL1-H", "FL2-H"}, names)
	})

	t.Run("by channel name", func(t *testing.T) {
		names, err := src.ResolveChannels([]string{"FSC-A"})
		require.NoError(t, err)
		assert.Equal(t, []string{"FSC-A"}, names)
	})

	t.Run("case-insensitive fallback", func(t *testing.T) {
		names, err := src.ResolveChannels([]string{"cd3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"FL1-H"}, names)
	})

	t.Run("unknown dimension fails", func(t *testing.T) {
		_, err := src.ResolveChannels([]string{"CD19"})
		assert.ErrorContains(t, err, "CD19")
	})
}

func TestFrameColumn(t *testing.T) {
	t.Parallel()
	f := &Frame{
		Channels: []string{"a", "b"},
		Events:   [][]float64{{1, 2}, {3, 4}},
	}

	col, err := f.Column("b")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, col)

	_, err = f.Column("c")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()

	assert.False(t, store.Exists("/lymph", "cd3"))
	store.Put("/lymph", "cd3", Result{Keys: []string{"s1"}, Values: []cty.Value{cty.True}})
	assert.True(t, store.Exists("/lymph", "cd3"))

	res, ok := store.Get("/lymph", "cd3")
	require.True(t, ok)
	assert.Equal(t, []string{"s1"}, res.Keys)
}

func TestLoadDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("s2.csv", "FL1-H:CD3,FL2-H:CD4\n1.5,2\n3,4\n")
	write("s1.csv", "FL1-H:CD3,FL2-H:CD4\n5,6\n")
	write("phenotype.csv", "sample,Tissue\ns1,blood\ns2,spleen\n")

	src, err := LoadDir(dir)
	require.NoError(t, err)

	samples := src.Samples()
	require.Len(t, samples, 2)
	// Sorted file order keeps loads deterministic.
	assert.Equal(t, []string{"s1", "s2"}, samples.IDs())
	assert.Equal(t, "blood", samples[0].Phenotype["Tissue"])
	assert.Equal(t, "spleen", samples[1].Phenotype["Tissue"])

	col, err := samples[1].Frame.Column("FL1-H")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 3}, col)

	names, err := src.ResolveChannels([]string{"CD4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"FL2-H"}, names)
}
