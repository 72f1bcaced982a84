package events

import (
	"context"

	"devtoken/core/types"
)

// Record is a rendered event produced by a committed operation. Sequence is
// the commit sequence of the operation and Position the event's order within
// it, so (Sequence, Position) identifies an event uniquely.
type Record struct {
	Sequence  uint64
	Position  int
	Timestamp int64
	Event     *types.Event
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	r.Event = r.Event.Clone()
	return r
}

// Publisher receives the events of each committed operation, in commit order.
type Publisher interface {
	Publish(ctx context.Context, records []Record)
}

// Publishers fans records out to every non-nil publisher in order.
type Publishers []Publisher

func (p Publishers) Publish(ctx context.Context, records []Record) {
	for _, pub := range p {
		if pub != nil {
			pub.Publish(ctx, records)
		}
	}
}

// Seal renders buffered events into records stamped with the commit sequence
// and timestamp.
func Seal(sequence uint64, timestamp int64, evts []Event) []Record {
	records := make([]Record, 0, len(evts))
	for i, evt := range evts {
		rendered := Render(evt)
		if rendered == nil {
			continue
		}
		records = append(records, Record{
			Sequence:  sequence,
			Position:  i,
			Timestamp: timestamp,
			Event:     rendered,
		})
	}
	return records
}
