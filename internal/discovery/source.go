package discovery

import (
	"context"
	"time"

	"copify/internal/model"
)

// Dataset 区分两类被发现的条目。
type Dataset string

const (
	DatasetProducts Dataset = "products"
	DatasetAds      Dataset = "ads"
)

// Source 是引擎对持久存储的全部依赖。
//
// 实现方可以下推 FilterSpec 中的谓词以减少返回行数，但只允许下推对同一
// 去重键的所有历史行取值恒定的谓词（店铺货币/国家、软删除、广告平台）。
// 价格、搜索词、收录时间会随历史行变化：在去重之前过滤它们，会让被过滤掉的
// 最新行把位置让给更老的历史行，破坏「最新行胜出」。这类谓词连同快照相关
// 谓词（收入、流量、增长、订单）一律留给引擎在去重之后权威地应用。
type Source interface {
	// ProductRows 返回商品候选行（含店铺字段，不含快照指标），包括历史重复行。
	ProductRows(ctx context.Context, spec *FilterSpec) ([]Candidate, error)

	// AdRows 返回广告候选行（含店铺字段，不含快照指标），包括历史重复行。
	AdRows(ctx context.Context, spec *FilterSpec) ([]Candidate, error)

	// Snapshots 返回指定店铺的全部流量快照历史，顺序不限。
	Snapshots(ctx context.Context, shopIDs []uint) ([]model.TrafficSnapshot, error)

	// CategoryNames 返回每个店铺的类目名称（包含所有语言写法）。
	CategoryNames(ctx context.Context, shopIDs []uint) (map[uint][]string, error)

	// FavoriteIDs 返回某用户在指定数据集下收藏的条目 ID 集合。
	FavoriteIDs(ctx context.Context, userID uint, dataset Dataset) (map[uint]bool, error)
}

// Candidate 是参与过滤与排序的候选条目（商品或广告，已联结店铺字段）。
//
// 快照指标由引擎的快照解析阶段填充，Source 不负责。
type Candidate struct {
	ID         uint
	Title      string
	Handle     string  // 商品 slug；广告为空
	ExternalID string  // 广告平台原始 ID；商品为空
	Price      float64 // 商品售价；广告为 0
	ImageURL   string
	URL        string
	Platform   string // 广告投放平台；商品为空
	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  *time.Time // 广告投放开始时间

	ShopID        uint
	ShopURL       string
	ShopName      string
	ShopCountry   string
	ShopCurrency  string
	ShopActiveAds int
	Pixels        []string

	// 以下由快照解析填充
	HasSnapshot bool
	Visits      float64
	Revenue     float64
	Orders      float64
	Growth      float64

	// 类目名称（所有语言写法），仅在类目过滤生效时加载
	Categories []string
}
