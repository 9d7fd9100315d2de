package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/uhyunpark/matchsim/pkg/history"
	"github.com/uhyunpark/matchsim/pkg/model"
)

func filledOrder(id string, ts int64, price float64) model.Order {
	return model.Order{
		ClientOrderID: id,
		AccountID:     "acct",
		ProductID:     "BTC-USDT",
		Type:          model.Limit,
		Direction:     model.OpenLong,
		Volume:        2,
		Price:         model.PriceOf(price + 1),
		Status:        model.Traded,
		TradedPrice:   price,
		TradedVolume:  2,
		TimestampInUs: ts,
	}
}

func TestPebbleHistoryRecordAndGet(t *testing.T) {
	s, err := OpenMemPebbleHistory()
	if err != nil {
		t.Fatalf("OpenMemPebbleHistory() error = %v", err)
	}
	defer s.Close()

	if err := s.RecordFilled(filledOrder("a", 1_000, 100)); err != nil {
		t.Fatalf("RecordFilled() error = %v", err)
	}

	got, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TradedPrice != 100 || got.Status != model.Traded || got.Direction != model.OpenLong {
		t.Errorf("Get() = %+v", got)
	}
	if got.Price == nil || *got.Price != 101 {
		t.Errorf("Get().Price = %v, want 101", got.Price)
	}
	if _, err := s.Get("missing"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want %v", err, history.ErrNotFound)
	}
}

func TestPebbleHistoryListNewestFirst(t *testing.T) {
	s, err := OpenMemPebbleHistory()
	if err != nil {
		t.Fatalf("OpenMemPebbleHistory() error = %v", err)
	}
	defer s.Close()

	// recorded out of time order; two share a timestamp
	s.RecordFilled(filledOrder("late", 3_000, 103))
	s.RecordFilled(filledOrder("early", 1_000, 101))
	s.RecordFilled(filledOrder("early-2", 1_000, 102))

	got, err := s.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"late", "early-2", "early"}
	if len(got) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ClientOrderID != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, got[i].ClientOrderID, want[i])
		}
	}

	limited, _ := s.List(1)
	if len(limited) != 1 || limited[0].ClientOrderID != "late" {
		t.Errorf("List(1) = %v, want [late]", limited)
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}
}

func TestPebbleHistoryReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenPebbleHistory(dir)
	if err != nil {
		t.Fatalf("OpenPebbleHistory() error = %v", err)
	}
	s.RecordFilled(filledOrder("a", 1_000, 100))
	s.RecordFilled(filledOrder("b", 2_000, 100))
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = OpenPebbleHistory(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if s.Count() != 2 {
		t.Errorf("Count() after reopen = %d, want 2", s.Count())
	}
	// new fills continue the sequence instead of overwriting
	s.RecordFilled(filledOrder("c", 2_000, 100))
	all, _ := s.List(0)
	if len(all) != 3 {
		t.Errorf("List() after reopen len = %d, want 3", len(all))
	}
}

func TestKeyUpperBound(t *testing.T) {
	if got := string(keyUpperBound([]byte(prefixFill))); got != "fill;" {
		t.Errorf("keyUpperBound(fill:) = %q, want %q", got, "fill;")
	}
	if decodeSeq(encodeSeq(42)) != 42 {
		t.Error("sequence encoding mismatch")
	}
	if decodeSeq([]byte{1}) != 0 {
		t.Error("short sequence should decode to 0")
	}
}

func TestJournalAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills.jsonl")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	j.RecordFilled(filledOrder("a", 1_000, 100))
	j.RecordFilled(filledOrder("b", 2_000, 101))
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var o model.Order
		if err := json.Unmarshal(sc.Bytes(), &o); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		ids = append(ids, o.ClientOrderID)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("journal ids = %v, want [a b]", ids)
	}
}
