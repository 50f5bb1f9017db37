// Structure of Cardpack Metrics Model.

package entity

type Metrics struct {
	// Total pack openings which produced a card
	OpeningsTotal int64 `json:"openings_total"`
	// Openings broken down by rarity tier
	OpeningsByRarity map[Rarity]int64 `json:"openings_by_rarity"`
}
