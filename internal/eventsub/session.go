// Event ingestion session keeping Cardpack subscribed to Twitch channel points redemptions.

package eventsub

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

// State of the connection to EventSub.
type State int

const (
	Disconnected State = iota
	Connecting
	AwaitingWelcome
	Subscribed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case AwaitingWelcome:
		return "awaiting_welcome"
	case Subscribed:
		return "subscribed"
	}
	return "disconnected"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	// Twitch sends the welcome right after the upgrade.
	welcomeTimeout = 30 * time.Second
	// Extra time granted on top of the announced keepalive timeout.
	keepaliveGrace = 5 * time.Second
)

// ErrStopped is returned by Start once the session has been stopped.
var ErrStopped = pkgerrors.New("eventsub session stopped")

// ViewerDirectory maps a Twitch user to a Cardpack viewer.
type ViewerDirectory interface {
	FindOrCreate(ctx context.Context, twitchID, username string) (entity.Viewer, error)
}

// Enqueuer accepts opening requests.
type Enqueuer interface {
	Enqueue(req entity.OpeningRequest) error
}

// SetResolver decides which set a redemption opens a pack of.
type SetResolver func(ctx context.Context, event RedemptionEvent) (string, error)

type Options struct {
	URL          string
	ChannelID    string
	RewardID     string
	DefaultSetID string
	// Delay before reconnecting. With ReconnectMaxDelay > 0 the delay doubles
	// on every failed attempt up to ReconnectMaxDelay.
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
	// A token expiring within TokenMargin is refreshed.
	TokenMargin time.Duration
	Dialer      *websocket.Dialer
}

type Session struct {
	opts     Options
	helix    Helix
	viewers  ViewerDirectory
	enqueuer Enqueuer
	logger   log.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards everything below
	mu                sync.Mutex
	state             State
	token             Token
	sessionID         string
	subscribedSession string
	keepalive         time.Duration
	conn              *websocket.Conn
	generation        uint64
	backoff           retry.Backoff
	reconnectPending  bool
	timer             *time.Timer
	stopped           bool
	resolver          SetResolver

	wg sync.WaitGroup
}

func NewSession(opts Options, helix Helix, viewers ViewerDirectory, enqueuer Enqueuer, logger log.Logger) *Session {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: 10 * time.Second}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:     opts,
		helix:    helix,
		viewers:  viewers,
		enqueuer: enqueuer,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.backoff = s.newBackoff()
	s.resolver = func(context.Context, RedemptionEvent) (string, error) {
		return opts.DefaultSetID, nil
	}
	return s
}

// SetResolver replaces the default policy of opening packs of the configured default set.
func (s *Session) SetResolver(resolver SetResolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver = resolver
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Session) newBackoff() retry.Backoff {
	if s.opts.ReconnectMaxDelay > 0 {
		return retry.WithCappedDuration(s.opts.ReconnectMaxDelay, retry.NewExponential(s.opts.ReconnectDelay))
	}
	return retry.NewConstant(s.opts.ReconnectDelay)
}

// Start makes sure a usable app token is held and opens the websocket.
// Token failures are returned as *errors.CredentialError. Dial failures
// are logged and retried in the background.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.conn != nil || s.state == Connecting {
		s.mu.Unlock()
		s.logger.Debug().Msg("EventSub already connected or connecting")
		return nil
	}
	s.state = Connecting
	s.mu.Unlock()

	if tokerr := s.ensureToken(ctx); tokerr != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		return &errors.CredentialError{Err: tokerr}
	}

	s.logger.Info().Str("url", s.opts.URL).Msg("Connecting to Twitch EventSub")
	conn, _, dialerr := s.opts.Dialer.DialContext(ctx, s.opts.URL, nil)
	if dialerr != nil {
		terr := &errors.TransportError{Op: "dial", Err: pkgerrors.Wrap(dialerr, "eventsub dial")}
		s.logger.Warn().Stack().Err(terr).Msg("Could not connect to Twitch EventSub")
		s.mu.Lock()
		s.state = Disconnected
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		conn.Close()
		return ErrStopped
	}
	s.generation++
	s.conn = conn
	s.state = AwaitingWelcome
	s.keepalive = 0
	conn.SetReadDeadline(s.now().Add(welcomeTimeout))
	s.wg.Add(1)
	go s.readLoop(conn, s.generation)
	return nil
}

// Stop closes the socket and cancels any pending reconnect.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.reconnectPending = false
	conn := s.conn
	s.conn = nil
	s.generation++
	s.state = Disconnected
	s.sessionID = ""
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Successfully stopped EventSub session")
}

// Shutdown adapts Stop to a cleanup operation.
func (s *Session) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) ensureToken(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token.Valid(s.now(), s.opts.TokenMargin) {
		return nil
	}

	s.logger.Info().Msg("Fetching new Twitch app access token")
	fresh, err := s.helix.FetchAppToken(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "fetch app access token")
	}
	s.mu.Lock()
	s.token = fresh
	s.mu.Unlock()
	return nil
}

func (s *Session) readLoop(conn *websocket.Conn, generation uint64) {
	defer s.wg.Done()
	for {
		_, data, readerr := conn.ReadMessage()
		if readerr != nil {
			s.closed(generation, readerr)
			return
		}
		s.handleMessage(conn, generation, data)
	}
}

// closed tears down the connection of the given generation. Close events of
// older connections and repeated close events are ignored.
func (s *Session) closed(generation uint64, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation || s.conn == nil {
		return
	}
	s.conn.Close()
	s.conn = nil
	s.sessionID = ""
	s.state = Disconnected
	if s.stopped {
		return
	}
	terr := &errors.TransportError{Op: "read", Err: pkgerrors.Wrap(cause, "eventsub connection closed")}
	s.logger.Warn().Err(terr).Msg("Twitch EventSub connection closed")
	s.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnect timer unless one is already armed.
func (s *Session) scheduleReconnectLocked() {
	if s.reconnectPending || s.stopped {
		return
	}
	delay, stop := s.backoff.Next()
	if stop {
		delay = s.opts.ReconnectDelay
	}
	s.reconnectPending = true
	s.timer = time.AfterFunc(delay, s.reconnect)
	s.logger.Info().Dur("delay", delay).Msg("Reconnecting to Twitch EventSub")
}

func (s *Session) reconnect() {
	s.mu.Lock()
	s.reconnectPending = false
	s.timer = nil
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}

	if err := s.Start(s.ctx); err != nil {
		if pkgerrors.Is(err, ErrStopped) {
			return
		}
		s.logger.Error().Err(err).Msg("Reconnect to Twitch EventSub failed")
		s.mu.Lock()
		s.scheduleReconnectLocked()
		s.mu.Unlock()
	}
}

func (s *Session) handleMessage(conn *websocket.Conn, generation uint64, data []byte) {
	var msg message
	if prserr := json.Unmarshal(data, &msg); prserr != nil {
		s.logger.Warn().Err(prserr).Msg("Ignoring malformed EventSub frame")
		return
	}

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	keepalive := s.keepalive
	s.mu.Unlock()
	if keepalive > 0 {
		conn.SetReadDeadline(s.now().Add(keepalive + keepaliveGrace))
	}

	switch msg.Metadata.MessageType {
	case MessageWelcome:
		s.welcome(conn, generation, msg.Payload)
	case MessageKeepalive:
	case MessageNotification:
		s.dispatch(msg.Payload)
	case MessageReconnect:
		s.logger.Info().Msg("Twitch EventSub requested a reconnect")
		conn.Close()
	case MessageRevocation:
		var body revocationPayload
		_ = json.Unmarshal(msg.Payload, &body)
		s.logger.Warn().
			Str("subscription", body.Subscription.ID).
			Str("status", body.Subscription.Status).
			Msg("Twitch EventSub subscription revoked")
		s.mu.Lock()
		if generation == s.generation && s.state == Subscribed {
			s.state = AwaitingWelcome
		}
		s.mu.Unlock()
	default:
		s.logger.Debug().Str("type", msg.Metadata.MessageType).Msg("Unhandled EventSub message type")
	}
}

func (s *Session) welcome(conn *websocket.Conn, generation uint64, payload json.RawMessage) {
	var body sessionPayload
	if prserr := json.Unmarshal(payload, &body); prserr != nil || body.Session.ID == "" {
		s.logger.Warn().Err(prserr).Msg("Ignoring malformed EventSub welcome")
		return
	}
	sessionID := body.Session.ID

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.sessionID = sessionID
	s.backoff = s.newBackoff()
	if body.Session.KeepaliveTimeoutSeconds > 0 {
		s.keepalive = time.Duration(body.Session.KeepaliveTimeoutSeconds) * time.Second
		conn.SetReadDeadline(s.now().Add(s.keepalive + keepaliveGrace))
	}
	subscribe := s.subscribedSession != sessionID
	s.mu.Unlock()

	s.logger.Info().Str("session", sessionID).Msg("Twitch EventSub session welcome")
	if subscribe {
		s.subscribe(generation, sessionID)
	}
}

func (s *Session) subscribe(generation uint64, sessionID string) {
	if tokerr := s.ensureToken(s.ctx); tokerr != nil {
		s.logger.Error().Err(&errors.CredentialError{Err: tokerr}).Msg("Cannot subscribe without an app access token")
		return
	}
	s.mu.Lock()
	token := s.token.AccessToken
	s.mu.Unlock()

	suberr := s.helix.CreateSubscription(s.ctx, token, Subscription{
		Type:    RedemptionSubscriptionType,
		Version: RedemptionSubscriptionVersion,
		Condition: Condition{
			BroadcasterUserID: s.opts.ChannelID,
			RewardID:          s.opts.RewardID,
		},
		Transport: Transport{Method: "websocket", SessionID: sessionID},
	})
	if suberr != nil && !pkgerrors.Is(suberr, ErrSubscriptionExists) {
		s.logger.Error().Err(suberr).Msg("Failed to subscribe to channel points redemptions")
		return
	}
	if suberr != nil {
		s.logger.Warn().Msg("Subscription already exists, continuing")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation == s.generation && s.sessionID == sessionID {
		s.state = Subscribed
		s.subscribedSession = sessionID
		s.logger.Info().Str("channel", s.opts.ChannelID).Msg("Subscribed to channel points redemptions")
	}
}

func (s *Session) dispatch(payload json.RawMessage) {
	var body notificationPayload
	if prserr := json.Unmarshal(payload, &body); prserr != nil {
		s.logger.Warn().Err(prserr).Msg("Ignoring malformed EventSub notification")
		return
	}
	event := body.Event
	if event.RewardIdentifier() != s.opts.RewardID {
		s.logger.Debug().Str("reward", event.RewardIdentifier()).Msg("Ignoring redemption of another reward")
		return
	}
	logger := s.logger.With("twitch_id", event.UserID)

	viewer, dberr := s.viewers.FindOrCreate(s.ctx, event.UserID, event.UserName)
	if dberr != nil {
		logger.Error().Err(dberr).Msg("Could not resolve the redeeming viewer")
		return
	}

	s.mu.Lock()
	resolver := s.resolver
	s.mu.Unlock()
	setID, reserr := resolver(s.ctx, event)
	if reserr != nil || setID == "" {
		logger.Error().Err(reserr).Msg("Could not resolve the set of the redeemed pack")
		return
	}

	req := entity.OpeningRequest{
		RequestID:        uuid.NewString(),
		ViewerID:         viewer.ID,
		ExternalViewerID: event.UserID,
		DisplayName:      event.UserName,
		SetID:            setID,
	}
	if qerr := s.enqueuer.Enqueue(req); qerr != nil {
		logger.Error().Err(qerr).Msg("Could not enqueue pack opening")
		return
	}
	logger.Info().Str("request_id", req.RequestID).Str("set", setID).Msgf("%s redeemed a pack opening", event.UserName)
}
