package partition

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cytograph/internal/flowdata"
)

func collection(n int) flowdata.Collection {
	col := make(flowdata.Collection, n)
	for i := range col {
		col[i] = &flowdata.Sample{ID: "s" + strconv.Itoa(i+1)}
	}
	return col
}

func TestSplit_PerSample(t *testing.T) {
	t.Parallel()

	groups, err := Split(collection(3), "", false)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	for i, g := range groups {
		assert.Equal(t, "s"+strconv.Itoa(i+1), g.Key)
		assert.Len(t, g.Samples, 1)
	}
}

func TestSplit_Collapsed(t *testing.T) {
	t.Parallel()

	groups, err := Split(collection(4), "", true)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "all", groups[0].Key)
	assert.Len(t, groups[0].Samples, 4)
}

func TestSplit_ChunksOfN(t *testing.T) {
	t.Parallel()

	groups, err := Split(collection(5), "2", false)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].Samples, 2)
	assert.Len(t, groups[1].Samples, 2)
	assert.Len(t, groups[2].Samples, 1)

	// Original order is preserved across chunks.
	assert.Equal(t, []string{"s1", "s2"}, groups[0].Samples.IDs())
	assert.Equal(t, []string{"s3", "s4"}, groups[1].Samples.IDs())
	assert.Equal(t, []string{"s5"}, groups[2].Samples.IDs())
}

func TestSplit_SingleSampleAlwaysOneGroup(t *testing.T) {
	t.Parallel()

	for _, n := range []string{"1", "2", "100"} {
		groups, err := Split(collection(1), n, false)
		require.NoError(t, err)
		assert.Len(t, groups, 1, "N=%s", n)
	}
}

func TestSplit_NonPositiveChunkFails(t *testing.T) {
	t.Parallel()

	_, err := Split(collection(3), "0", false)
	assert.Error(t, err)
}

func TestSplit_StudyVariables(t *testing.T) {
	t.Parallel()

	col := flowdata.Collection{
		{ID: "s1", Phenotype: map[string]string{"Tissue": "blood", "Donor": "d1"}},
		{ID: "s2", Phenotype: map[string]string{"Tissue": "spleen", "Donor": "d1"}},
		{ID: "s3", Phenotype: map[string]string{"Tissue": "blood", "Donor": "d1"}},
	}

	groups, err := Split(col, "Tissue:Donor", true)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "blood:d1", groups[0].Key)
	assert.Equal(t, []string{"s1", "s3"}, groups[0].Samples.IDs())
	assert.Equal(t, "spleen:d1", groups[1].Key)
	assert.Equal(t, []string{"s2"}, groups[1].Samples.IDs())
}

func TestSplit_MissingStudyVariableFails(t *testing.T) {
	t.Parallel()

	col := flowdata.Collection{{ID: "s1", Phenotype: map[string]string{}}}
	_, err := Split(col, "Tissue", false)
	assert.ErrorContains(t, err, "Tissue")
}
