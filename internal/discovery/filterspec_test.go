package discovery

import (
	"testing"
	"time"
)

func TestParseFilterSpec_UnparsableNumberIsAbsent(t *testing.T) {
	withBad := ParseFilterSpec(map[string]string{"minRevenue": "abc", "minPrice": "10"})
	without := ParseFilterSpec(map[string]string{"minPrice": "10"})

	if withBad.MinRevenue != nil {
		t.Fatalf("expected unparsable minRevenue to be absent, got %v", *withBad.MinRevenue)
	}
	if withBad.Signature() != without.Signature() {
		t.Fatalf("specs should be identical: %q vs %q", withBad.Signature(), without.Signature())
	}
	if withBad.MinPrice == nil || *withBad.MinPrice != 10 {
		t.Fatalf("minPrice should still parse, got %v", withBad.MinPrice)
	}
}

func TestParseFilterSpec_ListsDropBlankTokens(t *testing.T) {
	spec := ParseFilterSpec(map[string]string{"currency": "USD, ,EUR,,"})
	if len(spec.Currencies) != 2 || spec.Currencies[0] != "USD" || spec.Currencies[1] != "EUR" {
		t.Fatalf("unexpected currencies: %v", spec.Currencies)
	}

	empty := ParseFilterSpec(map[string]string{"currency": " , ,"})
	if empty.Currencies != nil {
		t.Fatalf("expected nil list, got %v", empty.Currencies)
	}
}

func TestParseFilterSpec_SearchNormalized(t *testing.T) {
	spec := ParseFilterSpec(map[string]string{"search": "  LED Lamp "})
	if spec.Search != "led lamp" {
		t.Fatalf("unexpected search: %q", spec.Search)
	}
	if ParseFilterSpec(map[string]string{"search": "   "}).Search != "" {
		t.Fatalf("blank search should normalize to empty")
	}
}

func TestParseFilterSpec_DateRangeAllOrNothing(t *testing.T) {
	good := ParseFilterSpec(map[string]string{"createdRange": "2026-01-01 - 2026-02-01"})
	if good.CreatedFrom == nil || good.CreatedTo == nil {
		t.Fatalf("expected both bounds set")
	}
	if !good.CreatedFrom.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from: %v", good.CreatedFrom)
	}

	// 一侧坏掉，两侧都不生效
	bad := ParseFilterSpec(map[string]string{"createdRange": "2026-01-01 - not-a-date"})
	if bad.CreatedFrom != nil || bad.CreatedTo != nil {
		t.Fatalf("expected both bounds dropped, got %v %v", bad.CreatedFrom, bad.CreatedTo)
	}
}

func TestParseSortMode_FallsBackToNewest(t *testing.T) {
	if got := ParseSortMode("revenue"); got != SortRevenue {
		t.Fatalf("expected revenue, got %s", got)
	}
	if got := ParseSortMode("definitely-not-a-mode"); got != SortNewest {
		t.Fatalf("expected fallback to newest, got %s", got)
	}
	if got := ParseSortMode(""); got != SortNewest {
		t.Fatalf("expected fallback to newest on empty, got %s", got)
	}
}

func TestNormalizePage(t *testing.T) {
	page, per := NormalizePage(0, -5)
	if page != 1 || per != DefaultPerPage {
		t.Fatalf("expected defaults, got page=%d per=%d", page, per)
	}
	_, per = NormalizePage(2, 5000)
	if per != MaxPerPage {
		t.Fatalf("expected clamp to %d, got %d", MaxPerPage, per)
	}
}

func TestSignature_OrderIndependent(t *testing.T) {
	a := ParseFilterSpec(map[string]string{"currency": "USD,EUR", "country": "FR,US"})
	b := ParseFilterSpec(map[string]string{"currency": "EUR,USD", "country": "US,FR"})
	if a.Signature() != b.Signature() {
		t.Fatalf("signatures should match: %q vs %q", a.Signature(), b.Signature())
	}
}

func TestSignature_ExcludesSortAndIncludesFilters(t *testing.T) {
	base := ParseFilterSpec(map[string]string{"minPrice": "10", "sort": "revenue"})
	otherSort := ParseFilterSpec(map[string]string{"minPrice": "10", "sort": "growth"})
	if base.Signature() != otherSort.Signature() {
		t.Fatalf("sort must not affect signature")
	}

	otherFilter := ParseFilterSpec(map[string]string{"minPrice": "20"})
	if base.Signature() == otherFilter.Signature() {
		t.Fatalf("different filters must produce different signatures")
	}
}
