package discovery

import (
	"testing"
	"time"
)

func TestDailyJitter_StableWithinDayRotatesAcrossDays(t *testing.T) {
	key := "p:1:red-lamp"
	if dailyJitter(key, "20260515") != dailyJitter(key, "20260515") {
		t.Fatalf("jitter must be deterministic within a day")
	}

	// 抖动必须有界
	for _, day := range []string{"20260515", "20260516", "20260517"} {
		v := dailyJitter(key, day)
		if v < 0 || v >= jitterModulus {
			t.Fatalf("jitter out of range on %s: %f", day, v)
		}
	}

	// 跨天至少要对一部分键产生不同的值
	changed := false
	for _, key := range []string{"p:1:a", "p:1:b", "p:2:c", "ad:facebook:x1"} {
		if dailyJitter(key, "20260515") != dailyJitter(key, "20260516") {
			changed = true
			break
		}
	}
	if !changed {
		t.Fatalf("jitter never rotated across days")
	}
}

func TestDayBucket_UsesUTCCalendarDay(t *testing.T) {
	a := time.Date(2026, 5, 15, 0, 1, 0, 0, time.UTC)
	b := time.Date(2026, 5, 15, 23, 59, 0, 0, time.UTC)
	c := time.Date(2026, 5, 16, 0, 1, 0, 0, time.UTC)
	if dayBucket(a) != dayBucket(b) {
		t.Fatalf("same day should share a bucket")
	}
	if dayBucket(b) == dayBucket(c) {
		t.Fatalf("next day should change the bucket")
	}
}

func metricCandidate(id uint, revenue, visits, orders, growth float64, activeAds int) Candidate {
	return Candidate{
		ID:            id,
		Handle:        "h",
		ShopID:        id,
		ShopActiveAds: activeAds,
		HasSnapshot:   true,
		Revenue:       revenue,
		Visits:        visits,
		Orders:        orders,
		Growth:        growth,
	}
}

func TestRankCandidates_Revenue(t *testing.T) {
	cands := []Candidate{
		metricCandidate(1, 100, 0, 0, 0, 0),
		metricCandidate(2, 900, 0, 0, 0, 0),
		metricCandidate(3, 500, 0, 0, 0, 0),
	}
	rankCandidates(cands, DatasetProducts, SortRevenue, time.Now())
	if cands[0].ID != 2 || cands[1].ID != 3 || cands[2].ID != 1 {
		t.Fatalf("unexpected revenue order: %d %d %d", cands[0].ID, cands[1].ID, cands[2].ID)
	}
}

func TestRankCandidates_TiesBrokenByID(t *testing.T) {
	cands := []Candidate{
		metricCandidate(9, 500, 0, 0, 0, 0),
		metricCandidate(3, 500, 0, 0, 0, 0),
		metricCandidate(6, 500, 0, 0, 0, 0),
	}
	rankCandidates(cands, DatasetProducts, SortRevenue, time.Now())
	if cands[0].ID != 3 || cands[1].ID != 6 || cands[2].ID != 9 {
		t.Fatalf("ties must order by id: %d %d %d", cands[0].ID, cands[1].ID, cands[2].ID)
	}
}

func TestRankCandidates_PriceModes(t *testing.T) {
	cands := []Candidate{
		{ID: 1, Price: 30, ShopID: 1, Handle: "a"},
		{ID: 2, Price: 10, ShopID: 1, Handle: "b"},
		{ID: 3, Price: 20, ShopID: 1, Handle: "c"},
	}
	rankCandidates(cands, DatasetProducts, SortPriceAsc, time.Now())
	if cands[0].ID != 2 || cands[2].ID != 1 {
		t.Fatalf("priceAsc wrong: %v %v %v", cands[0].ID, cands[1].ID, cands[2].ID)
	}
	rankCandidates(cands, DatasetProducts, SortPriceDesc, time.Now())
	if cands[0].ID != 1 || cands[2].ID != 2 {
		t.Fatalf("priceDesc wrong: %v %v %v", cands[0].ID, cands[1].ID, cands[2].ID)
	}
}

func TestRankCandidates_BestValueNullsLast(t *testing.T) {
	noSnap := Candidate{ID: 1, ShopID: 1, Handle: "x"}
	withSnap := metricCandidate(2, 1000, 0, 0, 0, 5)
	cands := []Candidate{noSnap, withSnap}
	rankCandidates(cands, DatasetProducts, SortBestValue, time.Now())
	if cands[0].ID != 2 {
		t.Fatalf("candidate without snapshot must sort last")
	}
}

func TestRankCandidates_RecommendedStableWithinDay(t *testing.T) {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	later := now.Add(37 * time.Minute)

	build := func() []Candidate {
		out := make([]Candidate, 0, 20)
		for i := uint(1); i <= 20; i++ {
			c := metricCandidate(i, 1000, 0, float64(i*7%13), float64(i*3%11), int(i%4))
			c.Handle = "h" + string(rune('a'+i))
			out = append(out, c)
		}
		return out
	}

	a, b := build(), build()
	rankCandidates(a, DatasetProducts, SortRecommended, now)
	rankCandidates(b, DatasetProducts, SortRecommended, later)
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("ordering changed within a day at %d: %d vs %d", i, a[i].ID, b[i].ID)
		}
	}
}

func TestRankCandidates_AdRecencyStableWithinDay(t *testing.T) {
	// 清晨 1 点与深夜 23 点之间，这条广告的墙钟年龄跨过了 7 天边界；
	// 分桶必须以日期桶起点为参考，日内翻页顺序不得翻转
	morning := time.Date(2026, 5, 15, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 5, 15, 23, 0, 0, 0, time.UTC)
	started := time.Date(2026, 5, 8, 3, 0, 0, 0, time.UTC)

	build := func() []Candidate {
		return []Candidate{
			{ID: 1, Platform: "facebook", ExternalID: "a1", HasSnapshot: true, StartedAt: &started},
			{ID: 2, Platform: "facebook", ExternalID: "a2", HasSnapshot: true, Visits: 1200},
		}
	}

	a, b := build(), build()
	rankCandidates(a, DatasetAds, SortMostEngaging, morning)
	rankCandidates(b, DatasetAds, SortMostEngaging, evening)
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("ad ordering changed within a day at %d: %d vs %d", i, a[i].ID, b[i].ID)
		}
	}
	if a[0].ID != 1 {
		t.Fatalf("recent ad should keep its full bonus all day, got leader %d", a[0].ID)
	}
}

func TestRecencyBonusBuckets(t *testing.T) {
	now := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		age  time.Duration
		want float64
	}{
		{3 * 24 * time.Hour, recencyBonus7d},
		{20 * 24 * time.Hour, recencyBonus30d},
		{60 * 24 * time.Hour, recencyBonus90d},
		{400 * 24 * time.Hour, 0},
	}
	for _, tc := range cases {
		started := now.Add(-tc.age)
		if got := recencyBonus(&started, now); got != tc.want {
			t.Fatalf("age %v: expected %f got %f", tc.age, tc.want, got)
		}
	}
	if recencyBonus(nil, now) != 0 {
		t.Fatalf("nil start time should score zero")
	}
}
