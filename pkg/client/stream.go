package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// message is one Server-Sent Event.
type message struct {
	Event string
	Data  string
}

// readMessages parses an event stream until r ends. Comment lines are
// heartbeats and are skipped.
func readMessages(r io.Reader, fn func(message) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var msg message
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if msg.Event != "" || len(data) > 0 {
				msg.Data = strings.Join(data, "\n")
				if !fn(msg) {
					return nil
				}
			}
			msg, data = message{}, nil
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "event:"):
			msg.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

type insertEvent struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// subscribe opens the stream at path and sends every inserted record of
// table, decoded as T, on the returned channel. The channel is closed when
// ctx ends, the server closes the stream or the connection drops.
func subscribe[T any](ctx context.Context, c *Client, path, table string) (<-chan T, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.StreamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal: stream %s: %w", path, err)
	}
	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	out := make(chan T)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		err := readMessages(resp.Body, func(m message) bool {
			switch m.Event {
			case "close":
				return false
			case "insert":
			default:
				return true
			}

			var ev insertEvent
			if err := json.Unmarshal([]byte(m.Data), &ev); err != nil || ev.Table != table {
				slog.Debug("portal stream: skipping event", "path", path, "error", err)
				return true
			}
			var record T
			if err := json.Unmarshal(ev.Record, &record); err != nil {
				slog.Debug("portal stream: bad record", "path", path, "error", err)
				return true
			}
			select {
			case out <- record:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			slog.Debug("portal stream ended", "path", path, "error", err)
		}
	}()
	return out, nil
}
