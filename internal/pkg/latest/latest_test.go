package latest

import (
	"testing"
	"time"
)

type row struct {
	ID        uint
	ShopID    uint
	CreatedAt time.Time
}

func newerRow(a, b row) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func TestByKey_PicksLatestPerKey(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{ID: 1, ShopID: 10, CreatedAt: base},
		{ID: 2, ShopID: 10, CreatedAt: base.Add(48 * time.Hour)},
		{ID: 3, ShopID: 10, CreatedAt: base.Add(24 * time.Hour)},
		{ID: 4, ShopID: 20, CreatedAt: base},
	}

	got := ByKey(rows, func(r row) uint { return r.ShopID }, newerRow)
	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(got))
	}
	if got[10].ID != 2 {
		t.Fatalf("shop 10: expected row 2, got %d", got[10].ID)
	}
	if got[20].ID != 4 {
		t.Fatalf("shop 20: expected row 4, got %d", got[20].ID)
	}
}

func TestByKey_TieBrokenByHigherID(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []row{
		{ID: 7, ShopID: 10, CreatedAt: ts},
		{ID: 9, ShopID: 10, CreatedAt: ts},
		{ID: 8, ShopID: 10, CreatedAt: ts},
	}

	got := ByKey(rows, func(r row) uint { return r.ShopID }, newerRow)
	if got[10].ID != 9 {
		t.Fatalf("expected tie to pick highest id 9, got %d", got[10].ID)
	}
}

func TestReduce_KeepsFirstSeenOrder(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{ID: 1, ShopID: 30, CreatedAt: base},
		{ID: 2, ShopID: 10, CreatedAt: base},
		{ID: 3, ShopID: 30, CreatedAt: base.Add(time.Hour)},
	}

	got := Reduce(rows, func(r row) uint { return r.ShopID }, newerRow)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].ShopID != 30 || got[0].ID != 3 {
		t.Fatalf("expected shop 30 winner (id 3) first, got %+v", got[0])
	}
	if got[1].ShopID != 10 {
		t.Fatalf("expected shop 10 second, got %+v", got[1])
	}
}
