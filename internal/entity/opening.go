// Structure of the pack opening models flowing through the sequencer.

package entity

// OpeningRequest is one unit of work: viewer X wants a card from set Y.
// Immutable once enqueued.
type OpeningRequest struct {
	RequestID        string `json:"request_id"`
	ViewerID         string `json:"viewer_id"`
	ExternalViewerID string `json:"twitch_id"`
	DisplayName      string `json:"username"`
	SetID            string `json:"set_id"`
	// Optional overlay client which triggered the opening.
	OriginClient string `json:"origin_client,omitempty"`
}

// OpeningResult answers exactly one OpeningRequest.
type OpeningResult struct {
	Request            OpeningRequest `json:"request"`
	Card               Card           `json:"card"`
	DistinctCardsInSet int64          `json:"distinct_cards_in_set"`
	TotalDistinctCards int64          `json:"total_distinct_cards"`
}
