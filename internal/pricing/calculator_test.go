package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func planterConfig() *Config {
	return &Config{
		BasePrice:    100,
		MinimumPrice: floatPtr(0),
		Dimensions: map[string]DimensionRule{
			"width": {Min: 50, Max: 200, Default: 100, Step: 10, Multiplier: 1.0, Visible: true, Editable: true},
		},
		Options: map[string]OptionRule{
			"lacquer": {Available: true, Price: 50},
		},
		Colors: ColorRule{
			Enabled:       true,
			PriceModifier: 0.4,
			Options: []ColorOption{
				{Name: "Walnut", Value: "walnut", PriceAdjustment: 75, Available: true},
				{Name: "Ash Grey", Value: "ash", PriceAdjustment: 0, Available: false},
			},
		},
	}
}

func TestCalculateSizeAdjustment(t *testing.T) {
	cfg := planterConfig()
	b, err := Quote(cfg, RawConfig{Dimensions: map[string]any{"width": 150.0}})
	require.NoError(t, err)
	require.Equal(t, 50.0, b.SizeAdjustment)
	require.Equal(t, 150.0, b.WoodPrice)
	require.Equal(t, 150.0, b.TotalPrice)
}

func TestCalculateWithOption(t *testing.T) {
	cfg := planterConfig()
	b, err := Quote(cfg, RawConfig{
		Dimensions: map[string]any{"width": 150.0},
		Options:    map[string]bool{"lacquer": true},
	})
	require.NoError(t, err)
	require.Equal(t, 50.0, b.OptionsCost)
	require.Equal(t, 50.0, b.Options["lacquer"])
	require.Equal(t, 200.0, b.TotalPrice)
}

func TestCalculateWithColor(t *testing.T) {
	cfg := planterConfig()
	b, err := Quote(cfg, RawConfig{
		Dimensions: map[string]any{"width": 150.0},
		Color:      "walnut",
	})
	require.NoError(t, err)
	// 40% of the wood price after size, plus the walnut flat adjustment.
	require.Equal(t, 135.0, b.ColorCost)
	require.Equal(t, 285.0, b.TotalPrice)
}

func TestCalculateFloorHasNoEffectAboveBase(t *testing.T) {
	cfg := &Config{
		BasePrice:    200,
		MinimumPrice: floatPtr(160),
		Dimensions: map[string]DimensionRule{
			"width": {Min: 50, Max: 200, Default: 100, Step: 10, Multiplier: 1.0},
		},
	}
	b, err := Quote(cfg, RawConfig{})
	require.NoError(t, err)
	require.Equal(t, 0.0, b.SizeAdjustment)
	require.Equal(t, 200.0, b.TotalPrice)
}

func TestCalculateFloorAppliesToWoodPriceOnly(t *testing.T) {
	cfg := &Config{
		BasePrice:    100,
		MinimumPrice: floatPtr(90),
		Dimensions: map[string]DimensionRule{
			"width": {Min: 50, Max: 200, Default: 100, Step: 10, Multiplier: 1.0},
		},
		Options: map[string]OptionRule{
			"handrail": {Available: true, Price: 30},
		},
	}
	b, err := Quote(cfg, RawConfig{
		Dimensions: map[string]any{"width": 50.0},
		Options:    map[string]bool{"handrail": true},
	})
	require.NoError(t, err)
	require.Equal(t, -50.0, b.SizeAdjustment)
	require.Equal(t, 90.0, b.WoodPrice)
	// Options land on top of the floored wood price, never below it.
	require.Equal(t, 120.0, b.TotalPrice)
}

func TestCalculateDefaultFloorRatio(t *testing.T) {
	cfg := &Config{
		BasePrice:  100,
		Dimensions: map[string]DimensionRule{"width": {Min: 10, Max: 100, Default: 50, Step: 1, Multiplier: 2}},
	}
	b, err := Quote(cfg, RawConfig{Dimensions: map[string]any{"width": 10.0}})
	require.NoError(t, err)
	// Unset minimum price falls back to 80% of base.
	require.Equal(t, 80.0, b.WoodPrice)
}

func TestCalculateUnavailableOptionIgnored(t *testing.T) {
	cfg := planterConfig()
	cfg.Options["wax"] = OptionRule{Available: false, Price: 500}
	b, err := Quote(cfg, RawConfig{Options: map[string]bool{"wax": true}})
	require.NoError(t, err)
	require.Equal(t, 0.0, b.OptionsCost)
	require.NotContains(t, b.Options, "wax")
}

func TestCalculateColorDisabled(t *testing.T) {
	cfg := planterConfig()
	cfg.Colors.Enabled = false
	b, err := Quote(cfg, RawConfig{Color: "walnut"})
	require.NoError(t, err)
	require.Equal(t, 0.0, b.ColorCost)
}

func TestCalculateNaturalColorExempt(t *testing.T) {
	cfg := planterConfig()
	for _, color := range []string{"", "natural", "none"} {
		b, err := Quote(cfg, RawConfig{Color: color})
		require.NoError(t, err)
		require.Equal(t, 0.0, b.ColorCost, "color %q must not incur the modifier", color)
	}
}

func TestCalculateNeverNegative(t *testing.T) {
	cfg := &Config{
		BasePrice:    10,
		MinimumPrice: floatPtr(0),
		Dimensions: map[string]DimensionRule{
			"width": {Min: 0, Max: 1000, Default: 0, Step: 1, Multiplier: -5},
		},
	}
	b, err := Quote(cfg, RawConfig{Dimensions: map[string]any{"width": 1000.0}})
	require.NoError(t, err)
	require.Equal(t, 0.0, b.TotalPrice)
}

func TestCalculateDefaultNeutrality(t *testing.T) {
	cfg := planterConfig()
	b, err := Quote(cfg, RawConfig{})
	require.NoError(t, err)
	require.Equal(t, 0.0, b.SizeAdjustment)
	require.Equal(t, 0.0, b.OptionsCost)
	require.Equal(t, 0.0, b.ColorCost)
	require.Equal(t, 100.0, b.TotalPrice)
}

func TestCalculateSumInvariant(t *testing.T) {
	cfg := planterConfig()
	requests := []RawConfig{
		{},
		{Dimensions: map[string]any{"width": 137.0}},
		{Dimensions: map[string]any{"width": 62.5}, Options: map[string]bool{"lacquer": true}},
		{Dimensions: map[string]any{"width": 199.9}, Options: map[string]bool{"lacquer": true}, Color: "walnut"},
		{Color: "walnut"},
	}
	for _, raw := range requests {
		b, err := Quote(cfg, raw)
		require.NoError(t, err)
		require.Equal(t, b.TotalPrice, Round2(b.WoodPrice+b.OptionsCost+b.ColorCost))
		require.GreaterOrEqual(t, b.WoodPrice, cfg.FloorPrice())
	}
}

func TestCalculateDeterministic(t *testing.T) {
	cfg := planterConfig()
	normalized, err := Validate(cfg, RawConfig{
		Dimensions: map[string]any{"width": 173.3},
		Options:    map[string]bool{"lacquer": true},
		Color:      "walnut",
	})
	require.NoError(t, err)
	first, err := Calculate(cfg, normalized)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := Calculate(cfg, normalized)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestCalculateInvalidConfig(t *testing.T) {
	_, err := Calculate(nil, NormalizedConfig{})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = Calculate(&Config{BasePrice: -1, Dimensions: map[string]DimensionRule{}}, NormalizedConfig{})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = Calculate(&Config{BasePrice: 100}, NormalizedConfig{})
	require.ErrorIs(t, err, ErrInvalidProduct)
}
