// Structure of the events exchanged with the overlay display surface.

package entity

import "encoding/json"

// Kinds of events pushed to, or received from, the overlay.
const (
	EventOpeningStarted    = "opening-started"
	EventOpeningComplete   = "opening-complete"
	EventOpeningError      = "opening-error"
	EventAnimationComplete = "animation-complete"
)

// Data to be broadcasted to every overlay client.
type OverlayEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type OverlayViewer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type OpeningStats struct {
	DistinctCardsInSet int64 `json:"distinctCardsInSet"`
	TotalDistinctCards int64 `json:"totalDistinctCards"`
}

// Payload of opening-started.
type OpeningStarted struct {
	RequestID string        `json:"requestId"`
	Viewer    OverlayViewer `json:"viewer"`
	Card      Card          `json:"card"`
	Stats     OpeningStats  `json:"stats"`
}

// Payload of opening-complete.
type OpeningComplete struct {
	RequestID string `json:"requestId"`
}

// Payload of opening-error.
type OpeningError struct {
	RequestID string `json:"requestId"`
	Message   string `json:"message"`
}

// Inbound signal from the overlay once the reveal animation has finished.
type AnimationComplete struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId" valid:"required"`
	Result    json.RawMessage `json:"result,omitempty" valid:"-"`
}
