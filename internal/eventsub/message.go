// Frames sent by the EventSub websocket.

package eventsub

import "encoding/json"

// EventSub message types.
const (
	MessageWelcome      = "session_welcome"
	MessageKeepalive    = "session_keepalive"
	MessageNotification = "notification"
	MessageReconnect    = "session_reconnect"
	MessageRevocation   = "revocation"
)

type metadata struct {
	MessageID        string `json:"message_id"`
	MessageType      string `json:"message_type"`
	MessageTimestamp string `json:"message_timestamp"`
	SubscriptionType string `json:"subscription_type,omitempty"`
}

type message struct {
	Metadata metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

type sessionInfo struct {
	ID                      string `json:"id"`
	Status                  string `json:"status"`
	KeepaliveTimeoutSeconds int    `json:"keepalive_timeout_seconds"`
	ReconnectURL            string `json:"reconnect_url"`
}

type sessionPayload struct {
	Session sessionInfo `json:"session"`
}

type subscriptionInfo struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Type    string `json:"type"`
	Version string `json:"version"`
}

type Reward struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Cost  int    `json:"cost"`
}

// RedemptionEvent is a channel points redemption.
type RedemptionEvent struct {
	ID                string `json:"id"`
	BroadcasterUserID string `json:"broadcaster_user_id"`
	UserID            string `json:"user_id"`
	UserLogin         string `json:"user_login"`
	UserName          string `json:"user_name"`
	UserInput         string `json:"user_input"`
	Status            string `json:"status"`
	Reward            Reward `json:"reward"`
	// Flat form of Reward.ID sent by older payloads.
	RewardID string `json:"reward_id,omitempty"`
}

// RewardIdentifier returns the id of the redeemed reward in either payload form.
func (e RedemptionEvent) RewardIdentifier() string {
	if e.Reward.ID != "" {
		return e.Reward.ID
	}
	return e.RewardID
}

type notificationPayload struct {
	Subscription subscriptionInfo `json:"subscription"`
	Event        RedemptionEvent  `json:"event"`
}

type revocationPayload struct {
	Subscription subscriptionInfo `json:"subscription"`
}
