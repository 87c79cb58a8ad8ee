package fundd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"fundflow/core/events"
)

const wsWriteTimeout = 10 * time.Second

// handleEvents streams event records over a websocket. Records after the
// ?since= cursor are replayed first; ?module= restricts the feed to one
// module's events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: since: %v", ErrBadRequest, err))
			return
		}
		since = parsed
	}
	module := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("module")))

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: origins})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	s.metrics.SubscriberConnected(1)
	defer s.metrics.SubscriberConnected(-1)

	// The feed is write-only; CloseRead handles control frames and cancels
	// ctx once the client goes away.
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, since, module); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			s.logger.Debug("event stream ended", slog.String("error", err.Error()))
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, since uint64, module string) error {
	updates, cancel, backlog := s.events.Subscribe(ctx, since)
	defer cancel()

	for _, rec := range backlog {
		if err := writeRecord(ctx, conn, rec, module); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeRecord(ctx, conn, rec, module); err != nil {
				return err
			}
		}
	}
}

func writeRecord(ctx context.Context, conn *websocket.Conn, rec events.Record, module string) error {
	if module != "" && !strings.HasPrefix(rec.Type, module+".") {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
