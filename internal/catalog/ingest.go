package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

// The rule schema is a closed set. Products only ever declare these dimension
// and option keys; anything else is either a legacy alias or junk data.
var (
	knownDimensions = map[string]struct{}{
		"width":  {},
		"height": {},
		"depth":  {},
	}
	// Old seed data called the depth axis "length".
	legacyDimensions = map[string]string{
		"length": "depth",
	}
	knownOptions = map[string]struct{}{
		"lacquer":  {},
		"handrail": {},
		"wax":      {},
	}
)

// RuleError collects every problem found in a pricing rule set so an admin
// gets one response listing all of them instead of fixing issues one at a time.
type RuleError struct {
	Problems []string
}

func (e *RuleError) Error() string {
	return "invalid pricing rules: " + strings.Join(e.Problems, "; ")
}

func (e *RuleError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// NormalizeRules migrates legacy dimension keys and handles unknown keys
// according to mode. In strict mode (admin writes) an unknown key is an error;
// in lenient mode (rows loaded from storage) it is logged and dropped so one
// stale row cannot take a product page down.
func NormalizeRules(cfg *pricing.Config, strict bool, log zerolog.Logger) error {
	if cfg == nil {
		return pricing.ErrInvalidProduct
	}
	ruleErr := &RuleError{}

	for legacy, canonical := range legacyDimensions {
		rule, ok := cfg.Dimensions[legacy]
		if !ok {
			continue
		}
		if _, exists := cfg.Dimensions[canonical]; !exists {
			cfg.Dimensions[canonical] = rule
		}
		delete(cfg.Dimensions, legacy)
	}

	for _, key := range sortedKeys(cfg.Dimensions) {
		if _, ok := knownDimensions[key]; ok {
			continue
		}
		if strict {
			ruleErr.add("unknown dimension %q", key)
			continue
		}
		log.Warn().Str("dimension", key).Msg("dropping unknown dimension rule")
		delete(cfg.Dimensions, key)
	}

	for _, key := range sortedOptionRuleKeys(cfg.Options) {
		if _, ok := knownOptions[key]; ok {
			continue
		}
		if strict {
			ruleErr.add("unknown option %q", key)
			continue
		}
		log.Warn().Str("option", key).Msg("dropping unknown option rule")
		delete(cfg.Options, key)
	}

	if len(ruleErr.Problems) > 0 {
		return ruleErr
	}
	return nil
}

// ValidateRules checks the internal consistency of a rule set before it is
// accepted for storage. It assumes NormalizeRules already ran in strict mode.
func ValidateRules(cfg *pricing.Config) error {
	if err := cfg.Check(); err != nil {
		return err
	}
	ruleErr := &RuleError{}

	for _, key := range sortedKeys(cfg.Dimensions) {
		rule := cfg.Dimensions[key]
		if rule.Min > rule.Max {
			ruleErr.add("dimension %q: min %g exceeds max %g", key, rule.Min, rule.Max)
		}
		if rule.Default < rule.Min || rule.Default > rule.Max {
			ruleErr.add("dimension %q: default %g outside [%g, %g]", key, rule.Default, rule.Min, rule.Max)
		}
		if rule.Step <= 0 {
			ruleErr.add("dimension %q: step must be positive", key)
		}
	}

	for _, key := range sortedOptionRuleKeys(cfg.Options) {
		if cfg.Options[key].Price < 0 {
			ruleErr.add("option %q: price must not be negative", key)
		}
	}

	if cfg.Colors.Enabled {
		if cfg.Colors.PriceModifier < 0 {
			ruleErr.add("color price modifier must not be negative")
		}
		seen := map[string]struct{}{}
		for _, opt := range cfg.Colors.Options {
			if opt.Value == "" {
				ruleErr.add("color option %q: empty value", opt.Name)
				continue
			}
			if _, dup := seen[opt.Value]; dup {
				ruleErr.add("color option value %q declared twice", opt.Value)
			}
			seen[opt.Value] = struct{}{}
		}
	}

	if cfg.MinimumPrice != nil && *cfg.MinimumPrice > 0 {
		// A floor above the default-configuration price would make the
		// product impossible to buy at its advertised defaults.
		defaultBreakdown, calcErr := pricing.Calculate(cfg, pricing.NormalizedConfig{
			Dimensions: defaultDimensions(cfg),
			Options:    map[string]bool{},
			Color:      pricing.ColorNatural,
		})
		if calcErr != nil {
			ruleErr.add("rules are not computable: %v", calcErr)
		} else if *cfg.MinimumPrice > defaultBreakdown.TotalPrice {
			ruleErr.add("minimum price %g exceeds default configuration price %g",
				*cfg.MinimumPrice, defaultBreakdown.TotalPrice)
		}
	}

	if len(ruleErr.Problems) > 0 {
		return ruleErr
	}
	return nil
}

func defaultDimensions(cfg *pricing.Config) map[string]float64 {
	dims := make(map[string]float64, len(cfg.Dimensions))
	for key, rule := range cfg.Dimensions {
		dims[key] = rule.Default
	}
	return dims
}

func sortedKeys(m map[string]pricing.DimensionRule) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedOptionRuleKeys(m map[string]pricing.OptionRule) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
