package discovery

import (
	"hash/fnv"
	"sort"
	"time"
)

// jitterModulus 每日抖动项的取值上界。
// 量级要足以在 recommended 综合分上制造可见的日内轮换。
const jitterModulus = 50_000

// 广告新近度加成：按投放开始距今的天数分桶。
const (
	recencyBonus7d  = 1000
	recencyBonus30d = 500
	recencyBonus90d = 200
)

// dayBucket 返回日期桶字符串（YYYYMMDD），UTC，每 24 小时变化一次。
func dayBucket(t time.Time) string {
	return t.UTC().Format("20060102")
}

// dailyJitter 返回由 (key, day) 决定的确定性伪随机值。
//
// 同一天内对相同键严格稳定（分页正确性依赖这一点），跨天轮换，
// 让所有合格条目公平轮流出现在推荐位头部。
func dailyJitter(key, day string) float64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	h.Write([]byte("|"))
	h.Write([]byte(day))
	return float64(h.Sum64() % jitterModulus)
}

// recencyBonus 按广告投放起始时间距参考时刻的天数返回加成分。
//
// 参考时刻必须是日期桶起点而不是墙钟时间：分桶只随日期桶轮换，
// 同一天内广告跨过 7/30/90 天边界不会让翻页途中的排序发生变化。
func recencyBonus(startedAt *time.Time, ref time.Time) float64 {
	if startedAt == nil {
		return 0
	}
	age := ref.Sub(*startedAt)
	switch {
	case age <= 7*24*time.Hour:
		return recencyBonus7d
	case age <= 30*24*time.Hour:
		return recencyBonus30d
	case age <= 90*24*time.Hour:
		return recencyBonus90d
	default:
		return 0
	}
}

// rankCandidates 按排序方式原地排序候选集。
//
// 缺失指标按 0 计分（bestValue 的无值条目排在最后）；
// 分数并列时按 ID 升序裁决，保证同一天内排序完全确定、分页稳定。
func rankCandidates(cands []Candidate, dataset Dataset, mode SortMode, now time.Time) {
	day := dayBucket(now)
	// 新近度加成和抖动一样以日期桶为参考，保证同一天内翻页顺序稳定
	dayStart := now.UTC().Truncate(24 * time.Hour)

	score := func(c *Candidate) float64 {
		switch mode {
		case SortRecommended:
			return 0.3*c.Growth + 10000*float64(c.ShopActiveAds) + 0.1*c.Orders +
				dailyJitter(c.dedupKey(dataset), day)
		case SortRevenue:
			return c.Revenue
		case SortTraffic:
			return c.Visits
		case SortOrders:
			return c.Orders
		case SortGrowth:
			return c.Growth
		case SortActiveAds:
			return float64(c.ShopActiveAds)
		case SortTrending:
			return c.Growth*100 + c.Orders*0.5
		case SortBestValue:
			if !c.HasSnapshot {
				return negInf
			}
			ads := float64(c.ShopActiveAds)
			if ads < 1 {
				ads = 1
			}
			return c.Revenue / ads
		case SortMostEngaging:
			return c.Visits*0.6 + c.Growth*50 + recencyBonus(c.StartedAt, dayStart)
		case SortHighestSpend:
			return c.Visits*1.0 + c.Growth*20 + recencyBonus(c.StartedAt, dayStart)*0.5
		default:
			return 0
		}
	}

	switch mode {
	case SortNewest:
		sort.Slice(cands, func(i, j int) bool {
			a, b := &cands[i], &cands[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID < b.ID
		})
	case SortPriceAsc, SortPriceDesc:
		asc := mode == SortPriceAsc
		sort.Slice(cands, func(i, j int) bool {
			a, b := &cands[i], &cands[j]
			if a.Price != b.Price {
				if asc {
					return a.Price < b.Price
				}
				return a.Price > b.Price
			}
			return a.ID < b.ID
		})
	default:
		// 先算好分数再排序，避免比较函数里重复哈希
		scores := make([]float64, len(cands))
		for i := range cands {
			scores[i] = score(&cands[i])
		}
		idx := make([]int, len(cands))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(i, j int) bool {
			a, b := idx[i], idx[j]
			if scores[a] != scores[b] {
				return scores[a] > scores[b]
			}
			return cands[a].ID < cands[b].ID
		})
		sorted := make([]Candidate, len(cands))
		for i, k := range idx {
			sorted[i] = cands[k]
		}
		copy(cands, sorted)
	}
}

// negInf 用于 bestValue 的「无值排最后」。
var negInf = -1e308
