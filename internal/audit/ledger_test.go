package audit

import (
	"testing"
	"time"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_AppendAndFilter(t *testing.T) {
	l := NewLedger()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	l.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	l.LogEvent("consensus", "c1", map[string]any{"method": "rank_fusion"})
	l.LogEvent("scar_created", "s1", nil)
	l.LogEvent("consensus", "c2", nil)

	assert.Equal(t, 3, l.Len())

	consensus := l.GetEvents("consensus")
	require.Len(t, consensus, 2)
	assert.Equal(t, "c1", consensus[0].EventID)
	assert.Equal(t, "c2", consensus[1].EventID)
	assert.Equal(t, "rank_fusion", consensus[0].Details["method"])

	all := l.GetEvents("")
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Equal(t, base.Add(time.Duration(i+1)*time.Second), e.Timestamp)
	}
}

func TestLedger_EntriesAreImmutable(t *testing.T) {
	l := NewLedger()
	details := map[string]any{"k": "v"}
	l.LogEvent("x", "1", details)
	details["k"] = "changed"

	got := l.GetEvents("x")
	require.Len(t, got, 1)
	assert.Equal(t, "v", got[0].Details["k"])

	got[0].Details["k"] = "tampered"
	assert.Equal(t, "v", l.GetEvents("x")[0].Details["k"])
}

func TestLedger_ReplayOrderAndStop(t *testing.T) {
	l := NewLedger()
	for _, id := range []string{"a", "b", "c", "d"} {
		l.LogEvent("t", id, nil)
	}

	var seen []string
	l.Replay(func(e domain.LedgerEntry) bool {
		seen = append(seen, e.EventID)
		return e.EventID != "c"
	})
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestLedger_RestoreAndSince(t *testing.T) {
	l := NewLedger()
	l.Restore([]domain.LedgerEntry{
		{Seq: 1, EventType: "a", EventID: "1"},
		{Seq: 2, EventType: "b", EventID: "2"},
	})
	l.Restore([]domain.LedgerEntry{{Seq: 2, EventType: "b", EventID: "dup"}})

	e := l.LogEvent("c", "3", nil)
	assert.Equal(t, int64(3), e.Seq)
	assert.Equal(t, 3, l.Len())

	since := l.Since(1)
	require.Len(t, since, 2)
	assert.Equal(t, "2", since[0].EventID)
	assert.Equal(t, "3", since[1].EventID)
}
