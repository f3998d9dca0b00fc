package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ColorNatural is the canonical "no color selected" value. It is exempt from
// the proportional color modifier regardless of whether colors are enabled.
const ColorNatural = "natural"

// colorNaturalLegacy is the alias older persisted configurations used for the
// unpainted finish. It is folded into ColorNatural during normalization.
const colorNaturalLegacy = "none"

// DefaultMinimumPriceRatio is the fraction of the base price used as the
// minimum price floor when a product does not declare one explicitly.
const DefaultMinimumPriceRatio = 0.8

// ErrInvalidProduct indicates the supplied product configuration is
// structurally incomplete. It is the only error that crosses the engine
// boundary; malformed requested values are corrected, never rejected.
var ErrInvalidProduct = errors.New("pricing: invalid product configuration")

// DimensionRule describes one adjustable measurement of a product. Visible
// and Editable control UI exposure only and never affect calculation.
type DimensionRule struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Default    float64 `json:"default"`
	Step       float64 `json:"step"`
	Multiplier float64 `json:"multiplier"`
	Visible    bool    `json:"visible"`
	Editable   bool    `json:"editable"`
}

// OptionRule describes a boolean add-on with a flat surcharge. The surcharge
// applies iff the option is available and the caller selected it.
type OptionRule struct {
	Available bool    `json:"available"`
	Price     float64 `json:"price"`
}

// ColorOption is a single named color in the catalog.
type ColorOption struct {
	Name            string  `json:"name"`
	Value           string  `json:"value"`
	PriceAdjustment float64 `json:"priceAdjustment"`
	Available       bool    `json:"available"`
}

// ColorRule describes the color catalog of a product. PriceModifier is a
// proportional surcharge on the wood price (0.4 = 40%).
type ColorRule struct {
	Enabled       bool          `json:"enabled"`
	PriceModifier float64       `json:"priceModifier"`
	Options       []ColorOption `json:"options"`
}

// Find returns the color option matching the given value, if listed.
func (r ColorRule) Find(value string) (ColorOption, bool) {
	for _, opt := range r.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return ColorOption{}, false
}

// Config aggregates a product's pricing rules. It is authored by an
// administrator, immutable during a single calculation, and supplied by the
// catalog which is responsible for its internal consistency.
type Config struct {
	BasePrice float64 `json:"basePrice"`
	// MinimumPrice is the floor applied to base price plus size adjustment.
	// Nil means unset, in which case MinimumRatio of the base price is used.
	MinimumPrice *float64                 `json:"minimumPrice,omitempty"`
	MinimumRatio float64                  `json:"-"`
	Dimensions   map[string]DimensionRule `json:"dimensions"`
	Options      map[string]OptionRule    `json:"options"`
	Colors       ColorRule                `json:"colorOptions"`
}

// FloorPrice resolves the minimum price floor for this configuration.
func (c *Config) FloorPrice() float64 {
	if c.MinimumPrice != nil {
		return math.Max(*c.MinimumPrice, 0)
	}
	ratio := c.MinimumRatio
	if ratio <= 0 {
		ratio = DefaultMinimumPriceRatio
	}
	return Round2(c.BasePrice * ratio)
}

// Check verifies the configuration carries the fields the engine requires.
// A failing Check is a caller-side contract error, not a user-input error.
func (c *Config) Check() error {
	if c == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidProduct)
	}
	if c.BasePrice < 0 || math.IsNaN(c.BasePrice) || math.IsInf(c.BasePrice, 0) {
		return fmt.Errorf("%w: base price is missing or negative", ErrInvalidProduct)
	}
	if c.Dimensions == nil {
		return fmt.Errorf("%w: dimension rules are missing", ErrInvalidProduct)
	}
	return nil
}

// IsNaturalColor reports whether the value names the sentinel "no color"
// selection, including the legacy alias.
func IsNaturalColor(value string) bool {
	return value == "" || value == ColorNatural || value == colorNaturalLegacy
}

// RawConfig is arbitrary caller input before validation. Dimension values may
// be of any type; non-numeric values fall back to the rule default.
type RawConfig struct {
	Dimensions map[string]any  `json:"dimensions"`
	Options    map[string]bool `json:"options"`
	Color      string          `json:"color"`
}

// NormalizedConfig is a validated configuration safe to price. Every declared
// dimension is present and within its rule bounds.
type NormalizedConfig struct {
	Dimensions map[string]float64 `json:"dimensions"`
	Options    map[string]bool    `json:"options"`
	Color      string             `json:"color"`
}

// Breakdown itemizes a computed price. It is persisted verbatim on order
// lines so charged prices stay reproducible for refunds and audits.
type Breakdown struct {
	BasePrice      float64            `json:"basePrice"`
	SizeAdjustment float64            `json:"sizeAdjustment"`
	WoodPrice      float64            `json:"woodPrice"`
	OptionsCost    float64            `json:"optionsCost"`
	ColorCost      float64            `json:"colorCost"`
	TotalPrice     float64            `json:"totalPrice"`
	Options        map[string]float64 `json:"options,omitempty"`
}

// Round2 rounds a monetary value to two decimal places. Every monetary field
// in a Breakdown goes through this helper so the itemized parts sum exactly
// to the total.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
