package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"devtoken/core/events"
	"devtoken/indexer"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsStreamBuffer   = 64
	maxHistoryLimit  = 1000
	historyQueryName = "limit"
)

type eventRoutes struct {
	history History
	feed    *events.Feed
	origins []string
	logger  *slog.Logger
}

type historyResponse struct {
	Address string          `json:"address"`
	Events  []indexer.Entry `json:"events"`
}

type recordPayload struct {
	Sequence   uint64            `json:"sequence"`
	Position   int               `json:"position"`
	Timestamp  int64             `json:"timestamp"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (e *eventRoutes) list(w http.ResponseWriter, r *http.Request) {
	if e.history == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", errors.New("event history is not enabled"))
		return
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	limit := indexer.DefaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get(historyQueryName)); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	entries, err := e.history.History(r.Context(), addr.String(), limit)
	if err != nil {
		writeLedgerError(w, e.logger, "history", err)
		return
	}
	if entries == nil {
		entries = []indexer.Entry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Address: addr.String(), Events: entries})
}

// streamFilter narrows the live feed to one account and/or a set of event
// types. The zero filter passes everything.
type streamFilter struct {
	account string
	types   map[string]struct{}
}

func parseStreamFilter(r *http.Request) (streamFilter, error) {
	var filter streamFilter
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("address")); raw != "" {
		addr, err := parseAddress("address", raw)
		if err != nil {
			return filter, err
		}
		filter.account = addr.String()
	}
	for _, raw := range query["type"] {
		for _, kind := range strings.Split(raw, ",") {
			if kind = strings.TrimSpace(kind); kind != "" {
				if filter.types == nil {
					filter.types = make(map[string]struct{})
				}
				filter.types[kind] = struct{}{}
			}
		}
	}
	return filter, nil
}

func (f streamFilter) match(rec events.Record) bool {
	if rec.Event == nil {
		return false
	}
	if f.types != nil {
		if _, ok := f.types[rec.Event.Type]; !ok {
			return false
		}
	}
	if f.account == "" {
		return true
	}
	for _, value := range rec.Event.Attributes {
		if value == f.account {
			return true
		}
	}
	return false
}

func (e *eventRoutes) stream(w http.ResponseWriter, r *http.Request) {
	if e.feed == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", errors.New("event stream is not enabled"))
		return
	}
	filter, err := parseStreamFilter(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	// Long-lived connection: lift the server write deadline where supported.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: e.origins})
	if err != nil {
		e.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	if err := e.pump(ctx, conn, filter); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && !errors.Is(err, context.Canceled) {
			e.logger.Debug("event stream ended", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (e *eventRoutes) pump(ctx context.Context, conn *websocket.Conn, filter streamFilter) error {
	records, cancel := e.feed.Subscribe(wsStreamBuffer)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if !filter.match(rec) {
				continue
			}
			if err := writeRecord(ctx, conn, rec); err != nil {
				return err
			}
		}
	}
}

func writeRecord(ctx context.Context, conn *websocket.Conn, rec events.Record) error {
	data, err := json.Marshal(recordPayload{
		Sequence:   rec.Sequence,
		Position:   rec.Position,
		Timestamp:  rec.Timestamp,
		Type:       rec.Event.Type,
		Attributes: rec.Event.Attributes,
	})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
