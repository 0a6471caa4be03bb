package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"copify/internal/pkg/metrics"
)

// Engine 是发现排序引擎的门面。
//
// 每次 Discover 调用独立执行：规范化 → 候选解析 → 排序 → 分页 → 投影，
// 总数走独立的计数路径（带缓存与降级）。引擎自身无状态，
// 唯一共享可变状态是注入的 CountCache。
type Engine struct {
	src    Source
	counts CountCache
	logger *slog.Logger
	now    func() time.Time // 可注入时钟：日期桶与相对时间展示
}

// NewEngine 创建发现引擎。
func NewEngine(src Source, counts CountCache, logger *slog.Logger) *Engine {
	if counts == nil {
		counts = NewMemoryCountCache(DefaultCountTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		src:    src,
		counts: counts,
		logger: logger,
		now:    time.Now,
	}
}

// RankedPage 是一次发现调用的完整输出。
type RankedPage struct {
	Items          []ItemView  `json:"items"`
	Page           int         `json:"page"`
	PerPage        int         `json:"per_page"`
	Total          int64       `json:"total"`
	TotalPages     int         `json:"total_pages"`
	NextPage       *int        `json:"next_page"`
	TotalEstimated bool        `json:"total_is_estimate"` // 计数降级时为 true，不把估算伪装成精确值
	AppliedFilters *FilterSpec `json:"applied_filters"`
}

// ItemView 是单个条目的展示投影。
type ItemView struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Handle         string    `json:"handle,omitempty"`
	Platform       string    `json:"platform,omitempty"`
	Price          float64   `json:"price,omitempty"`
	DisplayPrice   string    `json:"display_price,omitempty"`
	ImageURL       string    `json:"image_url"`
	URL            string    `json:"url"`
	ShopID         uint      `json:"shop_id"`
	ShopName       string    `json:"shop_name"`
	ShopURL        string    `json:"shop_url"`
	ShopCountry    string    `json:"shop_country"`
	Currency       string    `json:"currency"`
	ActiveAds      int       `json:"active_ads"`
	Visits         float64   `json:"visits"`
	Revenue        float64   `json:"revenue"`
	DisplayRevenue string    `json:"display_revenue"`
	Orders         float64   `json:"orders"`
	Growth         float64   `json:"growth"`
	Age            string    `json:"age"`
	Favorite       bool      `json:"favorite"`
	CreatedAt      time.Time `json:"created_at"`
}

// DiscoverProducts 对商品数据集执行一次发现查询。
func (e *Engine) DiscoverProducts(ctx context.Context, params map[string]string, page, perPage int, sortKey string, userID uint) (*RankedPage, error) {
	return e.discover(ctx, DatasetProducts, params, page, perPage, sortKey, userID)
}

// DiscoverAds 对广告数据集执行一次发现查询。
func (e *Engine) DiscoverAds(ctx context.Context, params map[string]string, page, perPage int, sortKey string, userID uint) (*RankedPage, error) {
	return e.discover(ctx, DatasetAds, params, page, perPage, sortKey, userID)
}

func (e *Engine) discover(ctx context.Context, dataset Dataset, params map[string]string, page, perPage int, sortKey string, userID uint) (*RankedPage, error) {
	start := time.Now()
	spec := ParseFilterSpec(params)
	if sortKey != "" {
		spec.Sort = ParseSortMode(sortKey)
	}
	page, perPage = NormalizePage(page, perPage)

	cands, err := resolveCandidates(ctx, e.src, dataset, spec)
	if err != nil {
		metrics.DiscoveryRequestsTotal.WithLabelValues(string(dataset), "error").Inc()
		return nil, err
	}

	now := e.now()
	rankCandidates(cands, dataset, spec.Sort, now)
	rows := paginate(cands, page, perPage)

	total, estimated := e.resolveTotal(ctx, dataset, spec, page, perPage, len(rows))

	favs := e.loadFavorites(ctx, userID, dataset)
	items := make([]ItemView, 0, len(rows))
	for _, c := range rows {
		items = append(items, projectCandidate(&c, favs[c.ID], now))
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	var next *int
	if page < totalPages {
		n := page + 1
		next = &n
	}

	metrics.DiscoveryRequestsTotal.WithLabelValues(string(dataset), "ok").Inc()
	metrics.DiscoveryDuration.WithLabelValues(string(dataset)).Observe(time.Since(start).Seconds())

	return &RankedPage{
		Items:          items,
		Page:           page,
		PerPage:        perPage,
		Total:          total,
		TotalPages:     totalPages,
		NextPage:       next,
		TotalEstimated: estimated,
		AppliedFilters: spec,
	}, nil
}

// resolveTotal 计算候选总数。
//
// 第一页且返回行数不足 perPage 时，本页必然是完整结果，
// 总数直接取行数，不发起计数操作（这是可推导的精确捷径，不是估算）。
// 其余情况走计数缓存；重算失败时降级为启发式估算并打上标记，请求本身不失败。
func (e *Engine) resolveTotal(ctx context.Context, dataset Dataset, spec *FilterSpec, page, perPage, pageRows int) (int64, bool) {
	if page == 1 && pageRows < perPage {
		return int64(pageRows), false
	}

	sig := string(dataset) + "|" + spec.Signature()
	if cached, ok := e.counts.Get(ctx, sig); ok {
		metrics.CountCacheHitsTotal.Inc()
		return cached, false
	}
	metrics.CountCacheMissesTotal.Inc()

	count, err := countCandidates(ctx, e.src, dataset, spec)
	if err != nil {
		metrics.CountDegradedTotal.Inc()
		e.logger.Warn("count computation degraded to estimate",
			slog.String("dataset", string(dataset)),
			slog.String("error", err.Error()))
		if pageRows == perPage {
			return int64(perPage) * 10, true
		}
		return int64(pageRows), true
	}

	e.counts.Set(ctx, sig, count)
	return count, false
}

// loadFavorites 加载用户收藏集合；失败只降级为「无收藏标记」，不影响请求。
func (e *Engine) loadFavorites(ctx context.Context, userID uint, dataset Dataset) map[uint]bool {
	if userID == 0 {
		return nil
	}
	favs, err := e.src.FavoriteIDs(ctx, userID, dataset)
	if err != nil {
		e.logger.Warn("load favorites failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
		return nil
	}
	return favs
}

// paginate 截取 [offset, offset+perPage)，越界时收缩返回更少甚至零行，从不报错。
func paginate(cands []Candidate, page, perPage int) []Candidate {
	offset := (page - 1) * perPage
	if offset >= len(cands) {
		return nil
	}
	end := offset + perPage
	if end > len(cands) {
		end = len(cands)
	}
	return cands[offset:end]
}

// projectCandidate 把候选行投影为展示记录。
// 派生字段只做展示，不改变上游已确定的顺序和去重。
func projectCandidate(c *Candidate, favorite bool, now time.Time) ItemView {
	return ItemView{
		ID:             c.ID,
		Title:          c.Title,
		Handle:         c.Handle,
		Platform:       c.Platform,
		Price:          c.Price,
		DisplayPrice:   formatMoney(c.Price, c.ShopCurrency),
		ImageURL:       c.ImageURL,
		URL:            c.URL,
		ShopID:         c.ShopID,
		ShopName:       c.ShopName,
		ShopURL:        c.ShopURL,
		ShopCountry:    c.ShopCountry,
		Currency:       c.ShopCurrency,
		ActiveAds:      c.ShopActiveAds,
		Visits:         c.Visits,
		Revenue:        c.Revenue,
		DisplayRevenue: formatMoney(c.Revenue, c.ShopCurrency),
		Orders:         c.Orders,
		Growth:         c.Growth,
		Age:            relativeAge(c.CreatedAt, now),
		Favorite:       favorite,
		CreatedAt:      c.CreatedAt,
	}
}

// formatMoney 货币格式化展示值。
func formatMoney(v float64, currency string) string {
	if v == 0 {
		return ""
	}
	symbol := currency + " "
	switch currency {
	case "USD", "CAD", "AUD":
		symbol = "$"
	case "EUR":
		symbol = "€"
	case "GBP":
		symbol = "£"
	case "JPY":
		symbol = "¥"
	}
	if v == float64(int64(v)) {
		return symbol + strconv.FormatInt(int64(v), 10)
	}
	return symbol + strconv.FormatFloat(v, 'f', 2, 64)
}

// relativeAge 返回诸如 "3d" / "2mo" / "1y" 的相对时间。
func relativeAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < 24*time.Hour:
		return "today"
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dmo", int(d.Hours()/(24*30)))
	default:
		return fmt.Sprintf("%dy", int(d.Hours()/(24*365)))
	}
}
