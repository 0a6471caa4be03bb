package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 分页默认值与上限。perPage 封顶限制单次请求的最坏工作量。
const (
	DefaultPerPage = 24
	MaxPerPage     = 100
)

const dateRangeLayout = "2006-01-02"

// SortMode 枚举所有支持的排序方式。
type SortMode string

const (
	SortRecommended  SortMode = "recommended"
	SortRevenue      SortMode = "revenue"
	SortTraffic      SortMode = "traffic"
	SortOrders       SortMode = "orders"
	SortGrowth       SortMode = "growth"
	SortActiveAds    SortMode = "activeAds"
	SortNewest       SortMode = "newest"
	SortPriceAsc     SortMode = "priceAsc"
	SortPriceDesc    SortMode = "priceDesc"
	SortTrending     SortMode = "trending"
	SortBestValue    SortMode = "bestValue"
	SortMostEngaging SortMode = "mostEngaging"
	SortHighestSpend SortMode = "highestSpend"
)

// ParseSortMode 将排序字符串解析为 SortMode。
//
// 无法识别或为空时回退到按创建时间倒序（newest），不报错。
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.TrimSpace(s)) {
	case SortRecommended, SortRevenue, SortTraffic, SortOrders, SortGrowth,
		SortActiveAds, SortNewest, SortPriceAsc, SortPriceDesc,
		SortTrending, SortBestValue, SortMostEngaging, SortHighestSpend:
		return SortMode(strings.TrimSpace(s))
	default:
		return SortNewest
	}
}

// FilterSpec 是规范化之后的过滤/排序说明，值对象，构造后不再修改。
//
// 数值区间用指针表达「无约束」；列表为空表示不限制。
type FilterSpec struct {
	Search string `json:"search,omitempty"` // 小写、去空白后的搜索词

	MinPrice   *float64 `json:"min_price,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	MinRevenue *float64 `json:"min_revenue,omitempty"`
	MaxRevenue *float64 `json:"max_revenue,omitempty"`
	MinTraffic *float64 `json:"min_traffic,omitempty"`
	MaxTraffic *float64 `json:"max_traffic,omitempty"`
	MinGrowth  *float64 `json:"min_growth,omitempty"`
	MaxGrowth  *float64 `json:"max_growth,omitempty"`
	MinAds     *float64 `json:"min_ads,omitempty"`
	MaxAds     *float64 `json:"max_ads,omitempty"`
	MinOrders  *float64 `json:"min_orders,omitempty"`
	MaxOrders  *float64 `json:"max_orders,omitempty"`

	Currencies []string `json:"currencies,omitempty"`
	Countries  []string `json:"countries,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Pixels     []string `json:"pixels,omitempty"`
	Platforms  []string `json:"platforms,omitempty"`

	CreatedFrom *time.Time `json:"created_from,omitempty"`
	CreatedTo   *time.Time `json:"created_to,omitempty"`

	Sort SortMode `json:"sort"`
}

// ParseFilterSpec 将原始查询参数规范化为 FilterSpec。
//
// 这是一个纯函数，永不报错：解析失败的数值按「无约束」处理，
// 非法日期区间整体丢弃，空白列表项被剔除。单个坏参数不应让整个发现请求失败。
func ParseFilterSpec(params map[string]string) *FilterSpec {
	spec := &FilterSpec{
		Search: strings.ToLower(strings.TrimSpace(params["search"])),

		MinPrice:   parseFloatParam(params, "minPrice"),
		MaxPrice:   parseFloatParam(params, "maxPrice"),
		MinRevenue: parseFloatParam(params, "minRevenue"),
		MaxRevenue: parseFloatParam(params, "maxRevenue"),
		MinTraffic: parseFloatParam(params, "minTraffic"),
		MaxTraffic: parseFloatParam(params, "maxTraffic"),
		MinGrowth:  parseFloatParam(params, "minGrowth"),
		MaxGrowth:  parseFloatParam(params, "maxGrowth"),
		MinAds:     parseFloatParam(params, "minAds"),
		MaxAds:     parseFloatParam(params, "maxAds"),
		MinOrders:  parseFloatParam(params, "minOrders"),
		MaxOrders:  parseFloatParam(params, "maxOrders"),

		Currencies: parseListParam(params, "currency"),
		Countries:  parseListParam(params, "country"),
		Categories: parseListParam(params, "categories"),
		Pixels:     parseListParam(params, "pixels"),
		Platforms:  parseListParam(params, "platforms"),

		Sort: ParseSortMode(params["sort"]),
	}

	spec.CreatedFrom, spec.CreatedTo = parseDateRangeParam(params, "createdRange")
	return spec
}

// NormalizePage 规范化分页参数：缺省/非正数取默认值，perPage 封顶。
func NormalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// Signature 返回过滤字段的规范序列化，作为计数缓存键。
//
// 排序方式与分页不影响总数，因此不参与签名；列表字段先排序，
// 保证字段值相同但书写顺序不同的请求命中同一条缓存。
func (f *FilterSpec) Signature() string {
	var b strings.Builder

	writeStr := func(name, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s=%s;", name, v)
		}
	}
	writeNum := func(name string, v *float64) {
		if v != nil {
			fmt.Fprintf(&b, "%s=%s;", name, strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}
	writeList := func(name string, vs []string) {
		if len(vs) == 0 {
			return
		}
		sorted := make([]string, len(vs))
		copy(sorted, vs)
		sort.Strings(sorted)
		fmt.Fprintf(&b, "%s=%s;", name, strings.Join(sorted, ","))
	}
	writeTime := func(name string, v *time.Time) {
		if v != nil {
			fmt.Fprintf(&b, "%s=%d;", name, v.Unix())
		}
	}

	writeStr("search", f.Search)
	writeNum("minPrice", f.MinPrice)
	writeNum("maxPrice", f.MaxPrice)
	writeNum("minRevenue", f.MinRevenue)
	writeNum("maxRevenue", f.MaxRevenue)
	writeNum("minTraffic", f.MinTraffic)
	writeNum("maxTraffic", f.MaxTraffic)
	writeNum("minGrowth", f.MinGrowth)
	writeNum("maxGrowth", f.MaxGrowth)
	writeNum("minAds", f.MinAds)
	writeNum("maxAds", f.MaxAds)
	writeNum("minOrders", f.MinOrders)
	writeNum("maxOrders", f.MaxOrders)
	writeList("currency", f.Currencies)
	writeList("country", f.Countries)
	writeList("categories", f.Categories)
	writeList("pixels", f.Pixels)
	writeList("platforms", f.Platforms)
	writeTime("createdFrom", f.CreatedFrom)
	writeTime("createdTo", f.CreatedTo)

	return b.String()
}

// parseFloatParam 解析单个数值参数，解析失败视为未设置。
func parseFloatParam(params map[string]string, key string) *float64 {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseListParam 解析逗号分隔列表，剔除空白项。
func parseListParam(params map[string]string, key string) []string {
	raw, ok := params[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseDateRangeParam 解析 "<start> - <end>" 形式的日期区间。
//
// 任意一侧解析失败则整个区间作废，不应用半个边界。
func parseDateRangeParam(params map[string]string, key string) (*time.Time, *time.Time) {
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	parts := strings.SplitN(raw, " - ", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	from, err := time.Parse(dateRangeLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, nil
	}
	to, err := time.Parse(dateRangeLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, nil
	}
	return &from, &to
}
