package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeWeights(t *testing.T) {
	variants := []Variant{
		{Weight: 1.0},
		{FlipH: true, Weight: 1.0},
		{FlipV: true, Weight: 1.0},
	}
	norm := NormalizeWeights(variants)
	sum := 0.0
	for _, v := range norm {
		sum += v.Weight
	}
	require.InDelta(t, 1.0, sum, 1e-12)
	require.InDelta(t, 1.0/3, norm[0].Weight, 1e-12)

	// Arbitrary positive weights normalize to 1 too
	norm = NormalizeWeights([]Variant{{Weight: 0.2}, {Weight: 5.0}, {Weight: 1.7}})
	sum = 0.0
	for _, v := range norm {
		sum += v.Weight
	}
	require.InDelta(t, 1.0, sum, 1e-12)
}

func TestActiveVariants(t *testing.T) {
	// Identity only
	variants := ActiveVariants(false, false)
	require.Len(t, variants, 1)
	require.False(t, variants[0].FlipH)
	require.False(t, variants[0].FlipV)
	require.Equal(t, 1.0, variants[0].Weight)

	// Order is fixed: identity, hflip, vflip
	variants = ActiveVariants(true, true)
	require.Len(t, variants, 3)
	require.Equal(t, "identity", variants[0].Name())
	require.Equal(t, "hflip", variants[1].Name())
	require.Equal(t, "vflip", variants[2].Name())
	for _, v := range variants {
		require.InDelta(t, 1.0/3, v.Weight, 1e-12)
	}

	variants = ActiveVariants(false, true)
	require.Len(t, variants, 2)
	require.Equal(t, "vflip", variants[1].Name())
	require.InDelta(t, 0.5, variants[0].Weight, 1e-12)
}

func TestFlattenClasses(t *testing.T) {
	config := ModelConfig{
		Width:         1312,
		Height:        1312,
		NumPostImages: 1,
		ClassGroups: []ClassGroup{
			{Name: "damage", Classes: []string{"building", "road"}},
			{Name: "flood", Classes: []string{"flood_building", "flood_road"}},
		},
	}
	require.Equal(t, []string{"building", "road", "flood_building", "flood_road"}, config.FlattenClasses())
	require.NoError(t, config.Validate())

	config.NumPostImages = 3
	require.Error(t, config.Validate())
	config.NumPostImages = 0
	config.ClassGroups = nil
	require.Error(t, config.Validate())
}

func TestIsPostConditioned(t *testing.T) {
	require.True(t, IsPostConditioned("flood"))
	require.True(t, IsPostConditioned("flood_building"))
	require.True(t, IsPostConditioned("flood_road"))
	require.False(t, IsPostConditioned("building"))
	require.False(t, IsPostConditioned("road"))
}
