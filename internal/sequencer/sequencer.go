// Opening sequencer: one pack opening on the overlay at a time, in arrival order.

package sequencer

import (
	"Cardpack/internal/entity"
	"Cardpack/pkg/log"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrStopped is returned by Enqueue once the sequencer has been stopped.
var ErrStopped = errors.New("sequencer stopped")

// Opener performs the pack opening for a request.
type Opener interface {
	OpenPack(ctx context.Context, viewerID, setID string) (entity.OpeningResult, error)
}

// Broadcaster delivers an event to every connected overlay.
type Broadcaster interface {
	Broadcast(event entity.OverlayEvent)
}

// State is a snapshot of the sequencer.
type State struct {
	Processing bool   `json:"processing"`
	RequestID  string `json:"request_id,omitempty"`
	Queued     int    `json:"queued"`
}

type Sequencer struct {
	opener      Opener
	broadcaster Broadcaster
	logger      log.Logger
	ackTimeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards everything below
	mu         sync.Mutex
	queue      []entity.OpeningRequest
	pending    map[string]chan json.RawMessage
	processing bool
	current    string
	stopped    bool
	stop       chan struct{}

	wg sync.WaitGroup
}

// New returns an idle sequencer. An ackTimeout of 0 waits for the overlay forever.
func New(opener Opener, broadcaster Broadcaster, ackTimeout time.Duration, logger log.Logger) *Sequencer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sequencer{
		opener:      opener,
		broadcaster: broadcaster,
		logger:      logger,
		ackTimeout:  ackTimeout,
		ctx:         ctx,
		cancel:      cancel,
		pending:     make(map[string]chan json.RawMessage),
		stop:        make(chan struct{}),
	}
}

// Enqueue appends a request to the queue and starts draining if idle.
func (s *Sequencer) Enqueue(req entity.OpeningRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.queue = append(s.queue, req)
	s.logger.Debug().Str("request_id", req.RequestID).Int("queued", len(s.queue)).Msg("Opening request enqueued")
	if !s.processing {
		s.processing = true
		s.wg.Add(1)
		go s.drain()
	}
	return nil
}

// Acknowledge resolves the wait for requestID. It reports whether a wait was resolved;
// unknown or repeated acknowledgements do nothing.
func (s *Sequencer) Acknowledge(requestID string, result json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ack, ok := s.pending[requestID]
	if !ok {
		return false
	}
	delete(s.pending, requestID)
	ack <- result
	return true
}

// State returns what the sequencer is doing right now.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Processing: s.processing, RequestID: s.current, Queued: len(s.queue)}
}

// Stop refuses new work, drops the queue, releases the in-flight wait and
// returns once the drain goroutine has exited.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.stopped = true
	dropped := len(s.queue)
	s.queue = nil
	close(s.stop)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info().Int("dropped", dropped).Msg("Successfully stopped sequencer")
}

// Shutdown adapts Stop to a cleanup operation.
func (s *Sequencer) Shutdown(ctx context.Context) error {
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

func (s *Sequencer) drain() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.stopped {
			s.processing = false
			s.current = ""
			s.mu.Unlock()
			return
		}
		req := s.queue[0]
		s.queue[0] = entity.OpeningRequest{}
		s.queue = s.queue[1:]
		s.current = req.RequestID
		s.mu.Unlock()

		s.process(req)
	}
}

func (s *Sequencer) process(req entity.OpeningRequest) {
	logger := s.logger.With("request_id", req.RequestID)

	result, err := s.opener.OpenPack(s.ctx, req.ViewerID, req.SetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Pack opening failed")
		s.fail(req.RequestID, err.Error())
		return
	}
	result.Request = req

	// The wait must exist before the overlay can possibly answer.
	ack := make(chan json.RawMessage, 1)
	s.mu.Lock()
	s.pending[req.RequestID] = ack
	s.mu.Unlock()

	s.broadcaster.Broadcast(entity.OverlayEvent{
		Type: entity.EventOpeningStarted,
		Payload: entity.OpeningStarted{
			RequestID: req.RequestID,
			Viewer:    entity.OverlayViewer{ID: req.ViewerID, Username: req.DisplayName},
			Card:      result.Card,
			Stats: entity.OpeningStats{
				DistinctCardsInSet: result.DistinctCardsInSet,
				TotalDistinctCards: result.TotalDistinctCards,
			},
		},
	})

	var timeout <-chan time.Time
	if s.ackTimeout > 0 {
		timer := time.NewTimer(s.ackTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ack:
		s.complete(req.RequestID)
	case <-timeout:
		if !s.release(req.RequestID) {
			// acknowledged while the timer fired
			<-ack
			s.complete(req.RequestID)
			return
		}
		logger.Warn().Dur("timeout", s.ackTimeout).Msg("Overlay never confirmed the animation")
		s.fail(req.RequestID, "Timed out waiting for the overlay animation to complete.")
	case <-s.stop:
		s.release(req.RequestID)
		s.fail(req.RequestID, "Pack opening interrupted by shutdown.")
	}
}

// release removes the pending wait, reports whether it was still registered.
func (s *Sequencer) release(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[requestID]; !ok {
		return false
	}
	delete(s.pending, requestID)
	return true
}

func (s *Sequencer) complete(requestID string) {
	s.broadcaster.Broadcast(entity.OverlayEvent{
		Type:    entity.EventOpeningComplete,
		Payload: entity.OpeningComplete{RequestID: requestID},
	})
}

func (s *Sequencer) fail(requestID, message string) {
	s.broadcaster.Broadcast(entity.OverlayEvent{
		Type:    entity.EventOpeningError,
		Payload: entity.OpeningError{RequestID: requestID, Message: message},
	})
}
