package grin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeaturesHasWithWithout(t *testing.T) {
	f := FeaturesOf(FeatureVertexProperty, FeatureVertexPropertyName)

	assert.True(t, f.Has(FeatureVertexProperty))
	assert.False(t, f.Has(FeatureEdgeProperty))

	f = f.With(FeatureEdgeProperty).Without(FeatureVertexPropertyName)
	assert.Equal(t, []Feature{FeatureVertexProperty, FeatureEdgeProperty}, f.List())
	assert.Equal(t, "vertex_property,edge_property", f.String())
	assert.Equal(t, "none", Features(0).String())
}

func TestFeaturesValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       Features
		wantErr bool
	}{
		{"empty", 0, false},
		{"int64 ids", FeaturesOf(FeatureVertexOriginalIDInt64), false},
		{"both id kinds", FeaturesOf(FeatureVertexOriginalIDInt64, FeatureVertexOriginalIDString), true},
		{"name without property", FeaturesOf(FeatureEdgePropertyName), true},
		{"pointer without property", FeaturesOf(FeatureConstValuePtr), true},
		{"pointer with edge property", FeaturesOf(FeatureConstValuePtr, FeatureEdgeProperty), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFeaturesEffective(t *testing.T) {
	supported := AllFeatures.Without(FeatureConstValuePtr)

	eff := AllFeatures.Effective(supported, Int64)
	assert.True(t, eff.Has(FeatureVertexOriginalIDInt64))
	assert.False(t, eff.Has(FeatureVertexOriginalIDString))
	assert.False(t, eff.Has(FeatureConstValuePtr))
	require.NoError(t, eff.Validate())

	eff = AllFeatures.Effective(AllFeatures, Undefined)
	assert.False(t, eff.Has(FeatureVertexOriginalIDInt64))
	assert.False(t, eff.Has(FeatureVertexOriginalIDString))
	assert.True(t, eff.Has(FeatureConstValuePtr))

	requested := FeaturesOf(FeatureVertexPropertyName, FeatureConstValuePtr, FeatureVertexOriginalIDString)
	eff = requested.Effective(AllFeatures, String)
	assert.Equal(t, FeaturesOf(FeatureVertexOriginalIDString), eff)
}

func TestParseFeatures(t *testing.T) {
	f, err := ParseFeatures([]string{"vertex_property", " Vertex_Property_Name ", ""})
	require.NoError(t, err)
	assert.Equal(t, FeaturesOf(FeatureVertexProperty, FeatureVertexPropertyName), f)

	f, err = ParseFeatures([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, AllFeatures, f)

	_, err = ParseFeatures([]string{"teleport", "vertex_property", "warp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport, warp")
}
