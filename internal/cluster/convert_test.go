package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestConvertRoundTrip(t *testing.T) {
	t.Parallel()

	val := cty.ObjectVal(map[string]cty.Value{
		"threshold": cty.NumberFloatVal(2.5),
		"channel":   cty.StringVal("FL1-H"),
		"positive":  cty.True,
		"refs":      cty.TupleVal([]cty.Value{cty.StringVal("/cd3"), cty.StringVal("/cd4")}),
	})

	raw, err := ToInterface(val)
	require.NoError(t, err)

	back, err := FromInterface(raw)
	require.NoError(t, err)
	assert.True(t, val.RawEquals(back))
}

func TestArgsToInterface(t *testing.T) {
	t.Parallel()

	out, err := ArgsToInterface(map[string]cty.Value{
		"K":    cty.NumberIntVal(3),
		"name": cty.StringVal("cd3"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, out["K"])
	assert.Equal(t, "cd3", out["name"])
}

func TestFromInterface_Null(t *testing.T) {
	t.Parallel()

	val, err := FromInterface(nil)
	require.NoError(t, err)
	assert.True(t, val.IsNull())
}
