// Structure of the Drop-rate configuration model in Cardpack.

package entity

// DropRate is the configured probability of a pack landing on a tier.
// Saved in DB as a field of the drop-rates hash.
type DropRate struct {
	Rarity Rarity  `json:"rarity"`
	Rate   float64 `json:"rate"`
}

// DefaultDropRates are written on first start so a fresh install can open packs.
var DefaultDropRates = []DropRate{
	{Rarity: Common, Rate: 0.50},
	{Rarity: Uncommon, Rate: 0.25},
	{Rarity: Rare, Rate: 0.15},
	{Rarity: SuperRare, Rate: 0.07},
	{Rarity: Epic, Rate: 0.02},
	{Rarity: Legendary, Rate: 0.007},
	{Rarity: LegendaryAlt, Rate: 0.003},
}
