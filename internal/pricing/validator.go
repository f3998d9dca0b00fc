package pricing

import (
	"encoding/json"
	"strconv"
)

// Validate produces a safe NormalizedConfig from arbitrary caller input.
// Malformed requested values degrade to rule defaults; only a structurally
// broken product configuration yields an error (ErrInvalidProduct).
func Validate(cfg *Config, raw RawConfig) (NormalizedConfig, error) {
	if err := cfg.Check(); err != nil {
		return NormalizedConfig{}, err
	}
	return NormalizedConfig{
		Dimensions: NormalizeDimensions(cfg, raw.Dimensions),
		Options:    NormalizeOptions(cfg, raw.Options),
		Color:      NormalizeColor(cfg, raw.Color),
	}, nil
}

// NormalizeDimensions resolves a value for every declared dimension: the
// requested value when numeric, the rule default otherwise, clamped into
// [Min, Max]. Requested keys not declared on the product are ignored, which
// keeps old persisted configurations forward compatible.
func NormalizeDimensions(cfg *Config, requested map[string]any) map[string]float64 {
	out := make(map[string]float64, len(cfg.Dimensions))
	for name, rule := range cfg.Dimensions {
		value := rule.Default
		if raw, ok := requested[name]; ok {
			if v, ok := numericValue(raw); ok {
				value = v
			}
		}
		out[name] = clamp(value, rule.Min, rule.Max)
	}
	return out
}

// NormalizeOptions keeps only option keys declared on the product. Unknown
// keys are dropped silently so a stale client payload never aborts pricing.
func NormalizeOptions(cfg *Config, requested map[string]bool) map[string]bool {
	out := make(map[string]bool, len(requested))
	for name, selected := range requested {
		if _, ok := cfg.Options[name]; ok {
			out[name] = selected
		}
	}
	return out
}

// NormalizeColor returns the requested color when it names an available
// catalog entry or the sentinel; anything else falls back to the sentinel.
func NormalizeColor(cfg *Config, requested string) string {
	if IsNaturalColor(requested) {
		return ColorNatural
	}
	if opt, ok := cfg.Colors.Find(requested); ok && opt.Available {
		return requested
	}
	return ColorNatural
}

func numericValue(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	case json.Number:
		parsed, err := strconv.ParseFloat(value.String(), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
