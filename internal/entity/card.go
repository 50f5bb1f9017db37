// Structure of the Card catalog models in Cardpack.

package entity

import "sort"

// Rarity is the tier a card belongs to, e.g. COMMON or LEGENDARY.
type Rarity string

const (
	Common       Rarity = "COMMON"
	Uncommon     Rarity = "UNCOMMON"
	Rare         Rarity = "RARE"
	SuperRare    Rarity = "SUPER_RARE"
	Epic         Rarity = "EPIC"
	Legendary    Rarity = "LEGENDARY"
	LegendaryAlt Rarity = "LEGENDARY_ALT"
)

// Rarities lists every known tier in ascending rarity order.
var Rarities = []Rarity{Common, Uncommon, Rare, SuperRare, Epic, Legendary, LegendaryAlt}

// Rank returns the position of r in Rarities, or len(Rarities) for unknown tiers.
func (r Rarity) Rank() int {
	for i, known := range Rarities {
		if known == r {
			return i
		}
	}
	return len(Rarities)
}

// Known reports whether r is one of Rarities.
func (r Rarity) Known() bool {
	return r.Rank() < len(Rarities)
}

// SortRarities orders tiers ascending by rarity, unknown tiers last by name.
func SortRarities(tiers []Rarity) {
	sort.SliceStable(tiers, func(i, j int) bool {
		ri, rj := tiers[i].Rank(), tiers[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return tiers[i] < tiers[j]
	})
}

// Saved in DB as card:<id>
type Card struct {
	ID          string `json:"id" redis:"id" valid:"-"`
	Name        string `json:"name" redis:"name" valid:"required,stringlength(1|80)"`
	Rarity      Rarity `json:"rarity" redis:"rarity" valid:"required,rarity~rarity:Unknown rarity tier"`
	SetID       string `json:"set_id" redis:"set_id" valid:"required"`
	Description string `json:"description,omitempty" redis:"description" valid:"stringlength(0|500),optional"`
	Image       string `json:"image,omitempty" redis:"image" valid:"-"`
}

// Saved in DB as set:<id>
type Set struct {
	ID         string `json:"id" redis:"id" valid:"-"`
	Name       string `json:"name" redis:"name" valid:"required,stringlength(1|80)"`
	Image      string `json:"image,omitempty" redis:"image" valid:"-"`
	TotalCards int    `json:"total_cards" redis:"total_cards" valid:"-"`
}
