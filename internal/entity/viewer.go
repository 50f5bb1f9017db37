// Structure of Viewer Model in Cardpack.

package entity

// Saved in DB as viewer:<id>
type Viewer struct {
	ID       string `json:"id" redis:"id"`
	TwitchID string `json:"twitch_id" redis:"twitch_id"`
	Username string `json:"username" redis:"username"`
}

// One line of a viewer's collection.
type CollectionEntry struct {
	CardID   string `json:"card_id"`
	Quantity int64  `json:"quantity"`
}
