package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/infra"
)

// Event is one status change delivered by the notification backend.
type Event struct {
	JobID          string                 `json:"job_id"`
	Status         domain.JobStatus       `json:"status"`
	ProgressDetail *domain.ProgressDetail `json:"progress_detail,omitempty"`
}

type subscribeFrame struct {
	Action string `json:"action"`
	JobID  string `json:"job_id"`
}

// Options configures the notification backend client.
type Options struct {
	URL    string
	Token  string
	Dialer *websocket.Dialer
	Logger *infra.Logger
}

// Client opens per-job subscription channels against the notification
// backend. One websocket connection is opened per subscribed job id, with the
// subscription filter sent as the first frame.
type Client struct {
	url    string
	token  string
	dialer *websocket.Dialer
	logger *infra.Logger
}

// NewClient builds a subscription client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("realtime: url is required")
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{url: opts.URL, token: opts.Token, dialer: dialer, logger: logger}, nil
}

// Subscribe opens a channel filtered to one job id. Events arrive on
// Subscription.Events until the connection drops or Unsubscribe is called.
func (c *Client) Subscribe(ctx context.Context, jobID string) (*Subscription, error) {
	if jobID == "" {
		return nil, errors.New("realtime: job id is required")
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("realtime: dial failed: %w", err)
	}
	if err := conn.WriteJSON(subscribeFrame{Action: "subscribe", JobID: jobID}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("realtime: subscribe frame failed: %w", err)
	}

	sub := &Subscription{
		jobID:  jobID,
		conn:   conn,
		events: make(chan Event, 8),
		done:   make(chan struct{}),
		logger: c.logger,
	}
	go sub.readLoop()
	return sub, nil
}

// Subscription is one live per-job channel. Unsubscribe is idempotent and
// safe to call from any goroutine, including after the connection dropped.
type Subscription struct {
	jobID  string
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	logger *infra.Logger
	once   sync.Once
}

// Events returns the delivery channel. It is closed when the subscription
// ends, whether by Unsubscribe or by the connection dropping.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe sends a best-effort unsubscribe frame and closes the
// connection. Calling it multiple times is a no-op after the first.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteJSON(subscribeFrame{Action: "unsubscribe", JobID: s.jobID})
		_ = s.conn.Close()
	})
}

func (s *Subscription) readLoop() {
	defer close(s.events)
	for {
		var ev Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			// Dropped channels are not reconnected here; polling keeps the
			// job converging independently.
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Str("job_id", s.jobID).Msg("realtime: subscription ended")
			}
			s.Unsubscribe()
			return
		}
		if ev.JobID != "" && ev.JobID != s.jobID {
			continue
		}
		if ev.JobID == "" {
			ev.JobID = s.jobID
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}
