package memory

import (
	"context"
	"testing"
	"time"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

func historyResult(netuid int, hotkey string, observed time.Time) domain.DividendResult {
	return domain.DividendResult{
		NetUID:     netuid,
		Hotkey:     hotkey,
		Dividend:   0.123,
		ObservedAt: observed,
		Source:     domain.SourceLive,
	}
}

func TestHistoryStore_AppendAndList(t *testing.T) {
	s := NewHistoryStore()
	ctx := context.Background()

	base := time.Now().UTC()
	if err := s.Append(ctx, historyResult(18, "hot-a", base)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, historyResult(18, "hot-b", base.Add(time.Second))); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.List(ctx, domain.HistoryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Result.Hotkey != "hot-b" {
		t.Fatalf("expected most recent first, got %s", got[0].Result.Hotkey)
	}
	if got[0].ID == got[1].ID {
		t.Fatal("entry IDs must be distinct")
	}
}

func TestHistoryStore_FilterByNetUIDAndHotkey(t *testing.T) {
	s := NewHistoryStore()
	ctx := context.Background()

	now := time.Now().UTC()
	_ = s.Append(ctx, historyResult(18, "hot-a", now))
	_ = s.Append(ctx, historyResult(18, "hot-b", now))
	_ = s.Append(ctx, historyResult(7, "hot-a", now))

	netuid := 18
	got, err := s.List(ctx, domain.HistoryFilter{NetUID: &netuid, Hotkey: "hot-a"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Result.NetUID != 18 || got[0].Result.Hotkey != "hot-a" {
		t.Fatalf("unexpected entry: %+v", got[0].Result)
	}
}

func TestHistoryStore_LimitZeroMeansUnbounded(t *testing.T) {
	s := NewHistoryStore()
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_ = s.Append(ctx, historyResult(18, "hot-a", now.Add(time.Duration(i)*time.Second)))
	}

	got, err := s.List(ctx, domain.HistoryFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}
}
