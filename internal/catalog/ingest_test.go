package catalog_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/treeline-dev/backend-treeline/internal/catalog"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

func ruleFixture() pricing.Config {
	return pricing.Config{
		BasePrice: 100,
		Dimensions: map[string]pricing.DimensionRule{
			"width": {Min: 50, Max: 200, Default: 100, Step: 10, Multiplier: 1},
		},
		Options: map[string]pricing.OptionRule{
			"lacquer": {Available: true, Price: 50},
		},
	}
}

func TestNormalizeRulesMigratesLegacyLength(t *testing.T) {
	cfg := ruleFixture()
	cfg.Dimensions["length"] = pricing.DimensionRule{Min: 30, Max: 90, Default: 60, Step: 5, Multiplier: 2}

	require.NoError(t, catalog.NormalizeRules(&cfg, true, zerolog.Nop()))

	require.NotContains(t, cfg.Dimensions, "length")
	require.Contains(t, cfg.Dimensions, "depth")
	require.InDelta(t, 60.0, cfg.Dimensions["depth"].Default, 1e-9)
}

func TestNormalizeRulesLegacyLengthNeverOverwritesDepth(t *testing.T) {
	cfg := ruleFixture()
	cfg.Dimensions["depth"] = pricing.DimensionRule{Min: 10, Max: 50, Default: 20, Step: 5, Multiplier: 1}
	cfg.Dimensions["length"] = pricing.DimensionRule{Min: 30, Max: 90, Default: 60, Step: 5, Multiplier: 2}

	require.NoError(t, catalog.NormalizeRules(&cfg, true, zerolog.Nop()))

	require.InDelta(t, 20.0, cfg.Dimensions["depth"].Default, 1e-9)
	require.NotContains(t, cfg.Dimensions, "length")
}

func TestNormalizeRulesStrictRejectsUnknownKeys(t *testing.T) {
	cfg := ruleFixture()
	cfg.Dimensions["girth"] = pricing.DimensionRule{Min: 1, Max: 2, Default: 1, Step: 1}
	cfg.Options["gold-plating"] = pricing.OptionRule{Available: true, Price: 500}

	err := catalog.NormalizeRules(&cfg, true, zerolog.Nop())
	require.Error(t, err)
	var ruleErr *catalog.RuleError
	require.ErrorAs(t, err, &ruleErr)
	require.Len(t, ruleErr.Problems, 2)
}

func TestNormalizeRulesLenientDropsUnknownKeys(t *testing.T) {
	cfg := ruleFixture()
	cfg.Dimensions["girth"] = pricing.DimensionRule{Min: 1, Max: 2, Default: 1, Step: 1}
	cfg.Options["gold-plating"] = pricing.OptionRule{Available: true, Price: 500}

	require.NoError(t, catalog.NormalizeRules(&cfg, false, zerolog.Nop()))

	require.NotContains(t, cfg.Dimensions, "girth")
	require.NotContains(t, cfg.Options, "gold-plating")
	require.Contains(t, cfg.Dimensions, "width")
	require.Contains(t, cfg.Options, "lacquer")
}

func TestValidateRulesBounds(t *testing.T) {
	cfg := ruleFixture()
	cfg.Dimensions["width"] = pricing.DimensionRule{Min: 200, Max: 50, Default: 300, Step: 0, Multiplier: 1}

	err := catalog.ValidateRules(&cfg)
	require.Error(t, err)
	var ruleErr *catalog.RuleError
	require.ErrorAs(t, err, &ruleErr)
	// min>max, default out of range, non-positive step
	require.Len(t, ruleErr.Problems, 3)
}

func TestValidateRulesFloorAboveDefaultPrice(t *testing.T) {
	cfg := ruleFixture()
	floor := 150.0
	cfg.MinimumPrice = &floor

	err := catalog.ValidateRules(&cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "minimum price")
}

func TestValidateRulesDuplicateColorValues(t *testing.T) {
	cfg := ruleFixture()
	cfg.Colors = pricing.ColorRule{
		Enabled:       true,
		PriceModifier: 0.4,
		Options: []pricing.ColorOption{
			{Name: "Walnut", Value: "walnut", Available: true},
			{Name: "Dark Walnut", Value: "walnut", Available: true},
			{Name: "Blank", Value: "", Available: true},
		},
	}

	err := catalog.ValidateRules(&cfg)
	require.Error(t, err)
	var ruleErr *catalog.RuleError
	require.ErrorAs(t, err, &ruleErr)
	require.Len(t, ruleErr.Problems, 2)
}

func TestValidateRulesAcceptsHealthyConfig(t *testing.T) {
	cfg := ruleFixture()
	floor := 80.0
	cfg.MinimumPrice = &floor
	require.NoError(t, catalog.ValidateRules(&cfg))
}
