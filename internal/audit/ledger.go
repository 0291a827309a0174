// Package audit keeps the append-only event ledger. Entries are never
// mutated or removed; readers receive copies.
package audit

import (
	"sync"
	"time"

	"github.com/Harshitk-cp/substrate/internal/domain"
)

type Ledger struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
	nextSeq int64
	now     func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{nextSeq: 1, now: time.Now}
}

// SetClock overrides the timestamp source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// LogEvent appends one entry stamped with the current time and returns it.
func (l *Ledger) LogEvent(eventType, eventID string, details map[string]any) domain.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := domain.LedgerEntry{
		Seq:       l.nextSeq,
		Timestamp: l.now(),
		EventType: eventType,
		EventID:   eventID,
		Details:   copyDetails(details),
	}
	l.nextSeq++
	l.entries = append(l.entries, entry)
	return entry
}

// Restore appends previously persisted entries, keeping their sequence
// numbers. Entries at or below the current tail are skipped.
func (l *Ledger) Restore(entries []domain.LedgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entries {
		if e.Seq < l.nextSeq {
			continue
		}
		e.Details = copyDetails(e.Details)
		l.entries = append(l.entries, e)
		l.nextSeq = e.Seq + 1
	}
}

// GetEvents returns entries of eventType in insertion order; an empty
// eventType returns every entry.
func (l *Ledger) GetEvents(eventType string) []domain.LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.LedgerEntry
	for _, e := range l.entries {
		if eventType == "" || e.EventType == eventType {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}

// Replay calls fn for each entry in insertion order until fn returns false.
func (l *Ledger) Replay(fn func(domain.LedgerEntry) bool) {
	for _, e := range l.GetEvents("") {
		if !fn(e) {
			return
		}
	}
}

// Since returns entries with Seq greater than seq.
func (l *Ledger) Since(seq int64) []domain.LedgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.LedgerEntry
	for _, e := range l.entries {
		if e.Seq > seq {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func cloneEntry(e domain.LedgerEntry) domain.LedgerEntry {
	e.Details = copyDetails(e.Details)
	return e
}

// copyDetails is shallow: nested values are shared with the caller.
func copyDetails(d map[string]any) map[string]any {
	if d == nil {
		return nil
	}
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
