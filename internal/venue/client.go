package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	logx "stakebot/pkg/logx"
)

const (
	dialTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second
	readTimeout  = 30 * time.Second
)

// Config configures the websocket venue client.
type Config struct {
	URL   string
	AppID string

	// SubmitRatePerSec bounds outbound submissions. Zero means 1/s.
	SubmitRatePerSec int
}

// Client talks a small JSON request/response protocol to the venue over a
// websocket. It implements both Submitter and OutcomePoller.
//
// Requests are serialized: one sequence runs at a time, so there is never
// more than one outstanding request.
type Client struct {
	cfg Config
	log logx.Logger

	limiter *rate.Limiter

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ Submitter = (*Client)(nil)
var _ OutcomePoller = (*Client)(nil)

func NewClient(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("venue url is required")
	}
	rps := cfg.SubmitRatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Connect dials the venue. It is called once before a sequence starts;
// Submit and Poll fail if the connection was never established.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	url := c.cfg.URL
	if c.cfg.AppID != "" {
		url += "?app_id=" + c.cfg.AppID
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return fmt.Errorf("dial venue: %w", err)
	}
	c.conn = conn
	c.log.Info("connected to venue", logx.String("url", c.cfg.URL))
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
	return err
}

// wire messages

type wireRequest struct {
	Op          string  `json:"op"`
	Asset       string  `json:"asset,omitempty"`
	Direction   string  `json:"direction,omitempty"`
	Stake       float64 `json:"stake,omitempty"`
	DurationMin int     `json:"duration_minutes,omitempty"`
	ActionID    string  `json:"action_id,omitempty"`
}

type wireResponse struct {
	Op       string `json:"op"`
	ActionID string `json:"action_id,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) Submit(ctx context.Context, req SubmitRequest) (ActionID, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.roundTrip(ctx, wireRequest{
		Op:          "submit",
		Asset:       req.Asset,
		Direction:   req.Direction.String(),
		Stake:       req.Stake,
		DurationMin: int(req.Duration / time.Minute),
	}, "submitted")
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &SubmissionError{Code: resp.Code, Reason: resp.Error}
	}
	if resp.ActionID == "" {
		return "", &SubmissionError{Reason: "venue returned no action id"}
	}
	return ActionID(resp.ActionID), nil
}

func (c *Client) Poll(ctx context.Context, id ActionID) (Outcome, error) {
	resp, err := c.roundTrip(ctx, wireRequest{Op: "result", ActionID: string(id)}, "result")
	if err != nil {
		return OutcomeUnknown, &PollError{ID: id, Err: err}
	}
	if resp.Error != "" {
		return OutcomeUnknown, &PollError{ID: id, Err: errors.New(resp.Error)}
	}

	switch resp.Outcome {
	case "win", "WIN":
		return OutcomeWin, nil
	case "loss", "LOSS", "lose":
		return OutcomeLoss, nil
	case "", "pending", "PENDING", "open":
		return OutcomePending, nil
	default:
		return OutcomeUnknown, &PollError{ID: id, Err: fmt.Errorf("unknown outcome %q", resp.Outcome)}
	}
}

// roundTrip writes one request and reads frames until a response with the
// expected op arrives. Unrelated frames (ticks, heartbeats) are skipped.
func (c *Client) roundTrip(ctx context.Context, req wireRequest, expectOp string) (*wireResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, errors.New("venue client not connected")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Op, err)
	}

	writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
	defer writeCancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return nil, fmt.Errorf("send %s request: %w", req.Op, err)
	}

	readCtx, readCancel := context.WithTimeout(ctx, readTimeout)
	defer readCancel()
	for {
		_, raw, err := c.conn.Read(readCtx)
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", req.Op, err)
		}
		var resp wireResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			c.log.Debug("skipping undecodable venue frame", logx.Err(err))
			continue
		}
		if resp.Op != expectOp {
			continue
		}
		return &resp, nil
	}
}
