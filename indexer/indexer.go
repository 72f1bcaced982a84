package indexer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"devtoken/core/events"
)

// DefaultHistoryLimit caps History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 100

// accountRoles lists the attribute keys that carry account addresses.
var accountRoles = []string{"addr", "from", "to", "owner", "spender", "previousOwner", "newOwner"}

// Entry is a stored event as returned by History.
type Entry struct {
	ID         uuid.UUID         `json:"id"`
	Sequence   uint64            `json:"sequence"`
	Position   int               `json:"position"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Indexer persists committed events to SQL and serves account history.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to dsn. postgres:// and postgresql:// DSNs use Postgres;
// anything else is treated as a SQLite path or URI (an optional sqlite://
// prefix is stripped).
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errors.New("indexer: dsn required")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"):
		dialector = postgres.Open(trimmed)
	default:
		dialector = sqlite.Open(strings.TrimPrefix(trimmed, "sqlite://"))
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return db, nil
}

// New migrates db and returns an indexer bound to it.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{db: db, logger: log}, nil
}

// Fingerprint returns the hex BLAKE3 digest identifying rec. Replaying the
// same record yields the same fingerprint.
func Fingerprint(rec events.Record) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(rec.Sequence, 10))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(rec.Position))
	b.WriteByte('|')
	if rec.Event != nil {
		b.WriteString(rec.Event.Type)
		keys := make([]string, 0, len(rec.Event.Attributes))
		for k := range rec.Event.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte('|')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(rec.Event.Attributes[k])
		}
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Publish implements events.Publisher. Storage failures are logged; the
// commit that produced the records has already happened.
func (ix *Indexer) Publish(ctx context.Context, records []events.Record) {
	if _, err := ix.Store(ctx, records); err != nil {
		ix.logger.Error("indexer store failed",
			slog.String("component", "indexer"),
			slog.Int("records", len(records)),
			slog.Any("error", err))
	}
}

// Store writes records in one transaction and returns how many were new.
func (ix *Indexer) Store(ctx context.Context, records []events.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	inserted := 0
	err := ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			if rec.Event == nil {
				continue
			}
			fp := Fingerprint(rec)
			var count int64
			if err := tx.Model(&EventRecord{}).Where("fingerprint = ?", fp).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			attrs, err := json.Marshal(rec.Event.Attributes)
			if err != nil {
				return err
			}
			row := EventRecord{
				ID:          uuid.New(),
				Fingerprint: fp,
				Sequence:    rec.Sequence,
				Position:    rec.Position,
				Type:        rec.Event.Type,
				Attributes:  string(attrs),
				Timestamp:   time.Unix(rec.Timestamp, 0).UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			for _, p := range participants(row.ID, rec) {
				if err := tx.Create(&p).Error; err != nil {
					return err
				}
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("indexer: store: %w", err)
	}
	return inserted, nil
}

func participants(eventID uuid.UUID, rec events.Record) []EventParticipant {
	out := make([]EventParticipant, 0, 2)
	seen := make(map[string]struct{})
	for _, role := range accountRoles {
		account := strings.TrimSpace(rec.Event.Attr(role))
		if account == "" {
			continue
		}
		if _, dup := seen[account]; dup {
			continue
		}
		seen[account] = struct{}{}
		out = append(out, EventParticipant{ID: uuid.New(), EventID: eventID, Account: account, Role: role})
	}
	return out
}

// History returns up to limit events naming account, newest first. An empty
// account returns every event.
func (ix *Indexer) History(ctx context.Context, account string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return ix.history(ctx, account, limit)
}

func (ix *Indexer) history(ctx context.Context, account string, limit int) ([]Entry, error) {
	query := ix.db.WithContext(ctx).Model(&EventRecord{})
	if account = strings.TrimSpace(account); account != "" {
		sub := ix.db.Model(&EventParticipant{}).Select("event_id").Where("account = ?", account)
		query = query.Where("id IN (?)", sub)
	}
	query = query.Order("sequence DESC").Order("position DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []EventRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: history: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		attrs := map[string]string{}
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("indexer: decode event %s: %w", row.ID, err)
			}
		}
		entries = append(entries, Entry{
			ID:         row.ID,
			Sequence:   row.Sequence,
			Position:   row.Position,
			Type:       row.Type,
			Attributes: attrs,
			Timestamp:  row.Timestamp.UTC(),
		})
	}
	return entries, nil
}
