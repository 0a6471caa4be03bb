package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"copify/internal/model"
	"copify/internal/pkg/latest"
)

// 基础业务健全性边界，独立于调用方过滤条件，始终生效。
const (
	// minCandidatePrice 商品最低可信价格（与货币无关）。
	minCandidatePrice = 0.5
	// maxPlausibleRevenue 月收入合理上限，超出视为脏数据。
	maxPlausibleRevenue = 100_000_000
	// plausibleVisitsCap 访问量「正常区间」上界，超出走极端分支。
	plausibleVisitsCap = 21_400_000
	// revenuePerVisitCap 正常区间内每次访问允许的最大收入贡献。
	revenuePerVisitCap = 100
	// extremeRevenueCap 访问量极大时的收入硬上限。
	extremeRevenueCap = 2_140_000_000
)

// dedupKey 返回候选条目的逻辑去重键。
//
// 商品按 (shopID, handle)，广告按投放平台原始 ID。
func (c *Candidate) dedupKey(dataset Dataset) string {
	if dataset == DatasetAds {
		return "ad:" + c.Platform + ":" + c.ExternalID
	}
	return "p:" + strconv.FormatUint(uint64(c.ShopID), 10) + ":" + c.Handle
}

// revenuePlausible 是流量合理性规则：
// 访问量未知（≤0）时接受；访问量正常时收入不得超过访问量×100；
// 访问量极大时收入不得超过固定上限。用于拦截收入与流量严重失衡的脏快照。
func revenuePlausible(visits, revenue float64) bool {
	if visits <= 0 {
		return true
	}
	if visits <= plausibleVisitsCap {
		return revenue <= visits*revenuePerVisitCap
	}
	return revenue <= extremeRevenueCap
}

// passesBaseInvariants 检查始终生效的基础边界。
//
// 价格下限只对商品有意义；收入区间与流量合理性对两类数据集都生效。
func passesBaseInvariants(c *Candidate, dataset Dataset) bool {
	if dataset == DatasetProducts && c.Price < minCandidatePrice {
		return false
	}
	if !c.HasSnapshot {
		return false
	}
	if c.Revenue <= 0 || c.Revenue >= maxPlausibleRevenue {
		return false
	}
	return revenuePlausible(c.Visits, c.Revenue)
}

// matches 以 AND 语义检查 FilterSpec 中所有已设置的谓词。
func (f *FilterSpec) matches(c *Candidate) bool {
	if !inRange(c.Price, f.MinPrice, f.MaxPrice) {
		return false
	}
	if !inRange(c.Revenue, f.MinRevenue, f.MaxRevenue) {
		return false
	}
	if !inRange(c.Visits, f.MinTraffic, f.MaxTraffic) {
		return false
	}
	if !inRange(c.Growth, f.MinGrowth, f.MaxGrowth) {
		return false
	}
	if !inRange(float64(c.ShopActiveAds), f.MinAds, f.MaxAds) {
		return false
	}
	if !inRange(c.Orders, f.MinOrders, f.MaxOrders) {
		return false
	}
	if len(f.Currencies) > 0 && !containsFold(f.Currencies, c.ShopCurrency) {
		return false
	}
	if len(f.Countries) > 0 && !containsFold(f.Countries, c.ShopCountry) {
		return false
	}
	if len(f.Platforms) > 0 && !containsFold(f.Platforms, c.Platform) {
		return false
	}
	if len(f.Pixels) > 0 && !anyFold(f.Pixels, c.Pixels) {
		return false
	}
	if len(f.Categories) > 0 && !anyFold(f.Categories, c.Categories) {
		return false
	}
	if f.CreatedFrom != nil && c.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && c.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if f.Search != "" && !matchesSearch(c, f.Search) {
		return false
	}
	return true
}

// matchesSearch 搜索词匹配：标题/handle/店铺名用包含语义，
// 店铺 URL 额外接受左锚定前缀匹配（包含 或 前缀，命中其一即可）。
func matchesSearch(c *Candidate, term string) bool {
	if strings.Contains(strings.ToLower(c.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(c.Handle), term) {
		return true
	}
	if strings.Contains(strings.ToLower(c.ShopName), term) {
		return true
	}
	u := strings.ToLower(c.ShopURL)
	return strings.Contains(u, term) || strings.HasPrefix(u, term)
}

func inRange(v float64, min, max *float64) bool {
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func anyFold(wanted, have []string) bool {
	for _, h := range have {
		if containsFold(wanted, h) {
			return true
		}
	}
	return false
}

// resolveCandidates 产出去重后的过滤候选集：
//
//  1. 从 Source 加载原始行（含历史重复行）
//  2. 解析每个店铺的当前快照并回填指标（过滤与展示使用同一次解析结果）
//  3. 按去重键保留更新时间最新的一行
//  4. 应用基础边界与调用方谓词
//
// 存储故障返回 ErrStoreUnavailable，不做部分降级。
func resolveCandidates(ctx context.Context, src Source, dataset Dataset, spec *FilterSpec) ([]Candidate, error) {
	var (
		rows []Candidate
		err  error
	)
	switch dataset {
	case DatasetAds:
		rows, err = src.AdRows(ctx, spec)
	default:
		rows, err = src.ProductRows(ctx, spec)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s rows: %v", ErrStoreUnavailable, dataset, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	shopIDs := distinctShopIDs(rows)
	snaps, err := src.Snapshots(ctx, shopIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: load snapshots: %v", ErrStoreUnavailable, err)
	}
	current := latest.ByKey(snaps,
		func(s model.TrafficSnapshot) uint { return s.ShopID },
		newerSnapshot)

	var cats map[uint][]string
	if len(spec.Categories) > 0 {
		cats, err = src.CategoryNames(ctx, shopIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: load categories: %v", ErrStoreUnavailable, err)
		}
	}

	for i := range rows {
		if snap, ok := current[rows[i].ShopID]; ok {
			rows[i].HasSnapshot = true
			rows[i].Visits = snap.Visits
			rows[i].Revenue = snap.Revenue
			rows[i].Orders = snap.Orders
			rows[i].Growth = snap.Growth
		}
		if cats != nil {
			rows[i].Categories = cats[rows[i].ShopID]
		}
	}

	// 先去重再过滤：可见行永远是某个键下最近更新的那一行，
	// 即使它因为基础边界被拦下，也不回退到更老的历史行。
	deduped := latest.Reduce(rows,
		func(c Candidate) string { return c.dedupKey(dataset) },
		newerCandidate)

	out := make([]Candidate, 0, len(deduped))
	for _, c := range deduped {
		if !passesBaseInvariants(&c, dataset) {
			continue
		}
		if !spec.matches(&c) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// countCandidates 对同一谓词集做一次完整计数（独立的存储操作）。
func countCandidates(ctx context.Context, src Source, dataset Dataset, spec *FilterSpec) (int64, error) {
	cands, err := resolveCandidates(ctx, src, dataset, spec)
	if err != nil {
		return 0, err
	}
	return int64(len(cands)), nil
}

func newerSnapshot(a, b model.TrafficSnapshot) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func newerCandidate(a, b Candidate) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}

func distinctShopIDs(rows []Candidate) []uint {
	seen := make(map[uint]bool, len(rows))
	out := make([]uint, 0, len(rows))
	for _, r := range rows {
		if !seen[r.ShopID] {
			seen[r.ShopID] = true
			out = append(out, r.ShopID)
		}
	}
	return out
}
