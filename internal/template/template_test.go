package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AliasWithDelimiterFails(t *testing.T) {
	t.Parallel()

	_, err := Validate([]Row{{Alias: "cd3/cd4", Parent: "root", Method: "threshold"}})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "alias", verr.Field)
	assert.Equal(t, 1, verr.Row)
}

func TestValidate_CollapseCoercion(t *testing.T) {
	t.Parallel()

	t.Run("empty means false", func(t *testing.T) {
		rows, err := Validate([]Row{{Alias: "a", Collapse: ""}})
		require.NoError(t, err)
		assert.False(t, rows[0].CollapseVal)
	})

	t.Run("TRUE parses", func(t *testing.T) {
		rows, err := Validate([]Row{{Alias: "a", Collapse: "TRUE"}})
		require.NoError(t, err)
		assert.True(t, rows[0].CollapseVal)
	})

	t.Run("garbage fails", func(t *testing.T) {
		_, err := Validate([]Row{{Alias: "a", Collapse: "maybe"}})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "collapseDataForGating", verr.Field)
	})
}

func TestValidate_WildcardExpandsAliases(t *testing.T) {
	t.Parallel()

	rows, err := Validate([]Row{{Alias: "cd4, cd8 ,dn", Pattern: "*"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].MultiOutput)
	assert.Equal(t, []string{"cd4", "cd8", "dn"}, rows[0].Aliases)
}

func TestValidate_SingleOutputKeepsOneAlias(t *testing.T) {
	t.Parallel()

	rows, err := Validate([]Row{{Alias: " cd3 ", Pattern: "cd3+"}})
	require.NoError(t, err)
	assert.False(t, rows[0].MultiOutput)
	assert.Equal(t, []string{"cd3"}, rows[0].Aliases)
}

const sampleCSV = `alias,pop,parent,dims,gating_method,gating_args,collapseDataForGating,groupBy,preprocessing_method,preprocessing_args
cd3,cd3+,root,CD3,threshold,K=3,,,,
AB,AB+,cd3,"CD4,CD8",boolGate,cd4&cd8,TRUE,Tissue:Donor,,
`

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	rows, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "cd3", rows[0].Alias)
	assert.Equal(t, "root", rows[0].Parent)
	assert.Equal(t, "threshold", rows[0].Method)
	assert.Equal(t, "K=3", rows[0].Args)

	assert.Equal(t, "CD4,CD8", rows[1].Dims)
	assert.Equal(t, "boolGate", rows[1].Method)
	assert.Equal(t, "Tissue:Donor", rows[1].GroupBy)
	assert.Equal(t, "TRUE", rows[1].Collapse)
}

func TestLoadCSV_MissingColumn(t *testing.T) {
	t.Parallel()

	_, err := LoadCSV(strings.NewReader("alias,pop,parent\ncd3,cd3+,root\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}
