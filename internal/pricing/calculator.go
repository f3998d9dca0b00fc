package pricing

import "sort"

// Calculate derives the price breakdown for a validated configuration. It is
// a pure transform: no I/O, no hidden state, identical inputs always yield an
// identical breakdown. It may be called concurrently without coordination.
//
// The minimum price floor applies to base price plus size adjustment only.
// The color modifier applies to the wood price after the size adjustment.
func Calculate(cfg *Config, normalized NormalizedConfig) (Breakdown, error) {
	if err := cfg.Check(); err != nil {
		return Breakdown{}, err
	}

	// Dimension names are walked in sorted order so float summation stays
	// bit-identical across calls.
	sizeAdjustment := 0.0
	for _, name := range sortedDimensionKeys(cfg.Dimensions) {
		rule := cfg.Dimensions[name]
		value, ok := normalized.Dimensions[name]
		if !ok {
			continue
		}
		sizeAdjustment += (value - rule.Default) * rule.Multiplier
	}
	sizeAdjustment = Round2(sizeAdjustment)

	woodPrice := Round2(cfg.BasePrice + sizeAdjustment)
	if floor := Round2(cfg.FloorPrice()); woodPrice < floor {
		woodPrice = floor
	}

	optionsCost := 0.0
	var itemized map[string]float64
	for _, name := range sortedOptionKeys(normalized.Options) {
		if !normalized.Options[name] {
			continue
		}
		rule, ok := cfg.Options[name]
		if !ok || !rule.Available {
			continue
		}
		price := Round2(rule.Price)
		optionsCost += price
		if itemized == nil {
			itemized = make(map[string]float64)
		}
		itemized[name] = price
	}
	optionsCost = Round2(optionsCost)

	colorCost := 0.0
	if cfg.Colors.Enabled && !IsNaturalColor(normalized.Color) {
		colorCost = Round2(woodPrice * cfg.Colors.PriceModifier)
		if opt, ok := cfg.Colors.Find(normalized.Color); ok {
			colorCost = Round2(colorCost + opt.PriceAdjustment)
		}
	}

	totalPrice := Round2(woodPrice + optionsCost + colorCost)
	if totalPrice < 0 {
		totalPrice = 0
	}

	return Breakdown{
		BasePrice:      Round2(cfg.BasePrice),
		SizeAdjustment: sizeAdjustment,
		WoodPrice:      woodPrice,
		OptionsCost:    optionsCost,
		ColorCost:      colorCost,
		TotalPrice:     totalPrice,
		Options:        itemized,
	}, nil
}

// Quote validates raw input and calculates its breakdown in one step. This is
// the entry point shared by the order handler, the live price preview, and
// the admin preview, so every caller agrees on the charged price.
func Quote(cfg *Config, raw RawConfig) (Breakdown, error) {
	normalized, err := Validate(cfg, raw)
	if err != nil {
		return Breakdown{}, err
	}
	return Calculate(cfg, normalized)
}

func sortedDimensionKeys(rules map[string]DimensionRule) []string {
	keys := make([]string, 0, len(rules))
	for name := range rules {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

func sortedOptionKeys(selected map[string]bool) []string {
	keys := make([]string, 0, len(selected))
	for name := range selected {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}
