// Twitch Helix and OAuth endpoints used by the EventSub session.

package eventsub

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Subscription type and version of channel points redemptions.
const (
	RedemptionSubscriptionType    = "channel.channel_points_custom_reward_redemption.add"
	RedemptionSubscriptionVersion = "1"
)

// Helix answers a 409, or a 400 with this message, when the subscription is already registered.
const subscriptionConflictMessage = "conflicts with the conditions of an existing subscription"

// ErrSubscriptionExists means an identical subscription is already registered.
var ErrSubscriptionExists = errors.New("subscription already exists")

// Token is an app access token and the moment it stops being valid.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token stays usable for at least margin.
func (t Token) Valid(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && t.ExpiresAt.After(now.Add(margin))
}

type Condition struct {
	BroadcasterUserID string `json:"broadcaster_user_id"`
	RewardID          string `json:"reward_id,omitempty"`
}

type Transport struct {
	Method    string `json:"method"`
	SessionID string `json:"session_id"`
}

type Subscription struct {
	Type      string    `json:"type"`
	Version   string    `json:"version"`
	Condition Condition `json:"condition"`
	Transport Transport `json:"transport"`
}

// Helix is the slice of the Twitch API the session talks to.
type Helix interface {
	FetchAppToken(ctx context.Context) (Token, error)
	CreateSubscription(ctx context.Context, token string, sub Subscription) error
}

// HelixClient calls the real Twitch endpoints.
type HelixClient struct {
	clientID string
	apiURL   string
	client   *http.Client
	grant    clientcredentials.Config
}

// NewHelixClient creates a client for the given API and OAuth base URLs.
func NewHelixClient(clientID, clientSecret, apiURL, authURL string, client *http.Client) *HelixClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HelixClient{
		clientID: clientID,
		apiURL:   strings.TrimRight(apiURL, "/"),
		client:   client,
		grant: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     strings.TrimRight(authURL, "/") + "/token",
			// Twitch only reads the credentials from the form body
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// FetchAppToken runs the client credentials grant.
func (h *HelixClient) FetchAppToken(ctx context.Context) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, h.client)
	token, err := h.grant.Token(ctx)
	if err != nil {
		return Token{}, errors.Wrap(err, "token request")
	}
	return Token{AccessToken: token.AccessToken, ExpiresAt: token.Expiry}, nil
}

// CreateSubscription registers sub, returns ErrSubscriptionExists when Twitch already has it.
func (h *HelixClient) CreateSubscription(ctx context.Context, token string, sub Subscription) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return errors.Wrap(err, "encode subscription")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.apiURL+"/eventsub/subscriptions", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build subscription request")
	}
	req.Header.Set("Client-ID", h.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "subscription request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	message := readMessage(resp.Body)
	if resp.StatusCode == http.StatusConflict || strings.Contains(message, subscriptionConflictMessage) {
		return ErrSubscriptionExists
	}
	return errors.Errorf("subscription endpoint returned %s: %s", resp.Status, message)
}

// readMessage extracts the Helix error message, falling back to the raw body.
func readMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
		return parsed.Message
	}
	return strings.TrimSpace(string(raw))
}
