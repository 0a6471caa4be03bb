package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Shop 表示一个被追踪的店铺（Owner）。
//
// 店铺是商品、广告和流量快照的归属主体。软删除的店铺不参与任何发现查询。
type Shop struct {
	ID        uint           `gorm:"primaryKey"` // 店铺唯一标识
	CreatedAt time.Time      // 首次收录时间
	UpdatedAt time.Time      // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index"` // 软删除标记

	URL       string `gorm:"type:varchar(191);uniqueIndex;not null"` // 店铺域名/URL
	Name      string // 店铺名称
	Country   string `gorm:"type:varchar(8);index"` // 国家代码 (US / FR / ...)
	Currency  string `gorm:"type:varchar(8);index"` // 结算货币 (USD / EUR / ...)
	ActiveAds int    `gorm:"default:0"`             // 当前在投广告数
	Pixels    string `gorm:"type:varchar(255)"`     // 已安装的追踪像素，逗号分隔 (facebook,tiktok,...)

	Products   []Product         `gorm:"foreignKey:ShopID"`
	Ads        []Ad              `gorm:"foreignKey:ShopID"`
	Snapshots  []TrafficSnapshot `gorm:"foreignKey:ShopID"`
	Categories []Category        `gorm:"many2many:shop_categories"`
}

// PixelList 返回店铺已安装像素的切片（去除空白项）。
func (s *Shop) PixelList() []string {
	if s.Pixels == "" {
		return nil
	}
	parts := strings.Split(s.Pixels, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Product 表示店铺在售的商品。
//
// 同一个逻辑商品可能因为多次抓取产生多行历史记录，
// 去重键是 (shop_id, handle)，展示时只保留更新时间最新的一行。
type Product struct {
	ID        uint      `gorm:"primaryKey"` // 内部 ID
	CreatedAt time.Time // 首次抓取时间
	UpdatedAt time.Time // 最近一次抓取更新时间

	ShopID   uint    `gorm:"index;not null"` // 所属店铺 ID
	Shop     Shop    `gorm:"foreignKey:ShopID"`
	Handle   string  `gorm:"type:varchar(191);index;not null"` // 商品 slug（去重键的一部分）
	Title    string  // 商品标题
	Price    float64 // 售价（店铺货币）
	ImageURL string  // 主图链接
	URL      string  // 商品详情页链接
}

// Ad 表示店铺投放的广告素材。
//
// ExternalID 是广告在投放平台的原始 ID，用于去重；
// StartedAt 记录首次观察到投放的时间，用于排序中的新近度加成。
type Ad struct {
	ID        uint      `gorm:"primaryKey"` // 内部 ID
	CreatedAt time.Time // 首次抓取时间
	UpdatedAt time.Time // 更新时间

	ShopID     uint       `gorm:"index;not null"` // 所属店铺 ID
	Shop       Shop       `gorm:"foreignKey:ShopID"`
	ExternalID string     `gorm:"type:varchar(191);index;not null"` // 平台原始广告 ID（去重键）
	Title      string     // 广告文案标题
	Platform   string     `gorm:"type:varchar(32);index"` // 投放平台 (facebook / tiktok / ...)
	ImageURL   string     // 素材预览链接
	URL        string     // 广告落地页链接
	StartedAt  *time.Time // 首次观察到投放的时间
}

// TrafficSnapshot 表示店铺某一时刻的流量测算快照。
//
// 每个店铺随时间累积多条快照，排序与过滤只使用创建时间最新的一条。
type TrafficSnapshot struct {
	ID        uint      `gorm:"primaryKey"` // 快照 ID
	CreatedAt time.Time `gorm:"index"`      // 测算时间

	ShopID  uint    `gorm:"index;not null"` // 所属店铺 ID
	Visits  float64 // 上一周期访问量
	Revenue float64 // 估算月收入
	Orders  float64 // 估算月订单数
	Growth  float64 // 环比增长率（%）
}

// Category 表示店铺类目，名称提供两种语言写法。
type Category struct {
	ID     uint   `gorm:"primaryKey"`
	NameEN string `gorm:"type:varchar(191);index"` // 英文类目名
	NameFR string `gorm:"type:varchar(191);index"` // 法文类目名

	Shops []Shop `gorm:"many2many:shop_categories"`
}

// Names 返回该类目所有语言写法（去掉空值）。
func (c *Category) Names() []string {
	names := make([]string, 0, 2)
	if c.NameEN != "" {
		names = append(names, c.NameEN)
	}
	if c.NameFR != "" {
		names = append(names, c.NameFR)
	}
	return names
}

// Favorite 表示用户收藏的商品或广告。
type Favorite struct {
	UserID   uint   `gorm:"primaryKey"`                 // 用户 ID
	ItemID   uint   `gorm:"primaryKey"`                 // 商品或广告 ID
	ItemType string `gorm:"primaryKey;type:varchar(8)"` // "product" / "ad"

	CreatedAt time.Time // 收藏时间
}
