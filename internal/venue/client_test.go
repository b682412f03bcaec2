package venue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	logx "stakebot/pkg/logx"
)

// fakeVenue accepts one websocket connection and answers submit/result
// requests from a canned handler.
func fakeVenue(t *testing.T, handle func(req wireRequest) []wireResponse) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer ws.Close(websocket.StatusNormalClosure, "done")

		ctx := r.Context()
		for {
			_, data, err := ws.Read(ctx)
			if err != nil {
				return
			}
			var req wireRequest
			if err := json.Unmarshal(data, &req); err != nil {
				continue
			}
			for _, resp := range handle(req) {
				out, _ := json.Marshal(resp)
				if err := ws.Write(ctx, websocket.MessageText, out); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := NewClient(Config{URL: url, SubmitRatePerSec: 100}, logx.Nop())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientSubmit(t *testing.T) {
	t.Parallel()
	reqCh := make(chan wireRequest, 1)
	c := fakeVenue(t, func(req wireRequest) []wireResponse {
		reqCh <- req
		return []wireResponse{
			// Unrelated frame first: the client must skip it.
			{Op: "tick"},
			{Op: "submitted", ActionID: "act-77"},
		}
	})

	id, err := c.Submit(context.Background(), SubmitRequest{
		Asset:     "EURUSD",
		Direction: DirectionDown,
		Stake:     2.5,
		Duration:  time.Minute,
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if id != "act-77" {
		t.Fatalf("action id = %q", id)
	}
	got := <-reqCh
	if got.Op != "submit" || got.Asset != "EURUSD" || got.Direction != "DOWN" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Stake != 2.5 || got.DurationMin != 1 {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestClientSubmitRejected(t *testing.T) {
	t.Parallel()
	c := fakeVenue(t, func(req wireRequest) []wireResponse {
		return []wireResponse{{Op: "submitted", Code: "NO_FUNDS", Error: "insufficient balance"}}
	})

	_, err := c.Submit(context.Background(), SubmitRequest{Asset: "EURUSD", Stake: 1, Duration: time.Minute})
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("error = %v, want SubmissionError", err)
	}
	if subErr.Code != "NO_FUNDS" {
		t.Fatalf("code = %q", subErr.Code)
	}
}

func TestClientPoll(t *testing.T) {
	t.Parallel()
	outcomes := map[string]string{
		"act-1": "pending",
		"act-2": "win",
		"act-3": "loss",
	}
	c := fakeVenue(t, func(req wireRequest) []wireResponse {
		return []wireResponse{{Op: "result", ActionID: req.ActionID, Outcome: outcomes[req.ActionID]}}
	})

	tests := []struct {
		id   ActionID
		want Outcome
	}{
		{"act-1", OutcomePending},
		{"act-2", OutcomeWin},
		{"act-3", OutcomeLoss},
	}
	for _, tt := range tests {
		got, err := c.Poll(context.Background(), tt.id)
		if err != nil {
			t.Fatalf("Poll(%s) error: %v", tt.id, err)
		}
		if got != tt.want {
			t.Fatalf("Poll(%s) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestClientPollErrorWraps(t *testing.T) {
	t.Parallel()
	c := fakeVenue(t, func(req wireRequest) []wireResponse {
		return []wireResponse{{Op: "result", ActionID: req.ActionID, Error: "backend unavailable"}}
	})

	_, err := c.Poll(context.Background(), "act-9")
	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("error = %v, want PollError", err)
	}
}

func TestClientNotConnected(t *testing.T) {
	t.Parallel()
	c, err := NewClient(Config{URL: "wss://venue.example/ws"}, logx.Nop())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if _, err := c.Submit(context.Background(), SubmitRequest{Stake: 1}); err == nil {
		t.Fatal("expected error before Connect")
	}
}
