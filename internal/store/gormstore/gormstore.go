// Package gormstore 提供 discovery.Source 的 MySQL/GORM 实现。
//
// 只下推对同一去重键的所有历史行取值恒定的谓词（店铺货币/国家、软删除、广告平台）。
// 价格、搜索词、收录时间这类随历史行变化的谓词必须留给引擎在去重之后应用，
// 否则最新行被 SQL 过滤掉时，更老的历史行会在去重中胜出而泄漏到结果里。
// 快照相关谓词同样留给引擎，由引擎统一解析「当前快照」。
package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"copify/internal/discovery"
	"copify/internal/model"

	"gorm.io/gorm"
)

// Store 基于 GORM 的发现数据源。
type Store struct {
	db *gorm.DB
}

// New 创建 GORM 数据源。
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

type productRow struct {
	ID        uint      `gorm:"column:id"`
	Title     string    `gorm:"column:title"`
	Handle    string    `gorm:"column:handle"`
	Price     float64   `gorm:"column:price"`
	ImageURL  string    `gorm:"column:image_url"`
	URL       string    `gorm:"column:url"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	ShopID        uint   `gorm:"column:shop_id"`
	ShopURL       string `gorm:"column:shop_url"`
	ShopName      string `gorm:"column:shop_name"`
	ShopCountry   string `gorm:"column:shop_country"`
	ShopCurrency  string `gorm:"column:shop_currency"`
	ShopActiveAds int    `gorm:"column:shop_active_ads"`
	ShopPixels    string `gorm:"column:shop_pixels"`
}

type adRow struct {
	ID         uint       `gorm:"column:id"`
	Title      string     `gorm:"column:title"`
	ExternalID string     `gorm:"column:external_id"`
	Platform   string     `gorm:"column:platform"`
	ImageURL   string     `gorm:"column:image_url"`
	URL        string     `gorm:"column:url"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
	StartedAt  *time.Time `gorm:"column:started_at"`

	ShopID        uint   `gorm:"column:shop_id"`
	ShopURL       string `gorm:"column:shop_url"`
	ShopName      string `gorm:"column:shop_name"`
	ShopCountry   string `gorm:"column:shop_country"`
	ShopCurrency  string `gorm:"column:shop_currency"`
	ShopActiveAds int    `gorm:"column:shop_active_ads"`
	ShopPixels    string `gorm:"column:shop_pixels"`
}

// ProductRows 实现 discovery.Source。
func (s *Store) ProductRows(ctx context.Context, spec *discovery.FilterSpec) ([]discovery.Candidate, error) {
	q := s.db.WithContext(ctx).Table("products").
		Select(`products.id, products.title, products.handle, products.price,
			products.image_url, products.url, products.created_at, products.updated_at,
			shops.id AS shop_id, shops.url AS shop_url, shops.name AS shop_name,
			shops.country AS shop_country, shops.currency AS shop_currency,
			shops.active_ads AS shop_active_ads, shops.pixels AS shop_pixels`).
		Joins("JOIN shops ON shops.id = products.shop_id").
		Where("shops.deleted_at IS NULL")

	q = applyShopPushdown(q, spec)

	var rows []productRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query product rows: %w", err)
	}

	out := make([]discovery.Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, discovery.Candidate{
			ID:            r.ID,
			Title:         r.Title,
			Handle:        r.Handle,
			Price:         r.Price,
			ImageURL:      r.ImageURL,
			URL:           r.URL,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
			ShopID:        r.ShopID,
			ShopURL:       r.ShopURL,
			ShopName:      r.ShopName,
			ShopCountry:   r.ShopCountry,
			ShopCurrency:  r.ShopCurrency,
			ShopActiveAds: r.ShopActiveAds,
			Pixels:        splitPixels(r.ShopPixels),
		})
	}
	return out, nil
}

// AdRows 实现 discovery.Source。
func (s *Store) AdRows(ctx context.Context, spec *discovery.FilterSpec) ([]discovery.Candidate, error) {
	q := s.db.WithContext(ctx).Table("ads").
		Select(`ads.id, ads.title, ads.external_id, ads.platform, ads.image_url,
			ads.url, ads.created_at, ads.updated_at, ads.started_at,
			shops.id AS shop_id, shops.url AS shop_url, shops.name AS shop_name,
			shops.country AS shop_country, shops.currency AS shop_currency,
			shops.active_ads AS shop_active_ads, shops.pixels AS shop_pixels`).
		Joins("JOIN shops ON shops.id = ads.shop_id").
		Where("shops.deleted_at IS NULL")

	q = applyShopPushdown(q, spec)
	if spec != nil && len(spec.Platforms) > 0 {
		// 平台是广告去重键的一部分，对同一键下的所有历史行取值相同，下推安全
		q = q.Where("ads.platform IN ?", spec.Platforms)
	}

	var rows []adRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query ad rows: %w", err)
	}

	out := make([]discovery.Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, discovery.Candidate{
			ID:            r.ID,
			Title:         r.Title,
			ExternalID:    r.ExternalID,
			Platform:      r.Platform,
			ImageURL:      r.ImageURL,
			URL:           r.URL,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
			StartedAt:     r.StartedAt,
			ShopID:        r.ShopID,
			ShopURL:       r.ShopURL,
			ShopName:      r.ShopName,
			ShopCountry:   r.ShopCountry,
			ShopCurrency:  r.ShopCurrency,
			ShopActiveAds: r.ShopActiveAds,
			Pixels:        splitPixels(r.ShopPixels),
		})
	}
	return out, nil
}

// Snapshots 实现 discovery.Source，返回指定店铺的完整快照历史。
func (s *Store) Snapshots(ctx context.Context, shopIDs []uint) ([]model.TrafficSnapshot, error) {
	if len(shopIDs) == 0 {
		return nil, nil
	}
	var snaps []model.TrafficSnapshot
	if err := s.db.WithContext(ctx).
		Where("shop_id IN ?", shopIDs).
		Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	return snaps, nil
}

type categoryRow struct {
	ShopID uint   `gorm:"column:shop_id"`
	NameEN string `gorm:"column:name_en"`
	NameFR string `gorm:"column:name_fr"`
}

// CategoryNames 实现 discovery.Source，返回店铺类目的所有语言写法。
func (s *Store) CategoryNames(ctx context.Context, shopIDs []uint) (map[uint][]string, error) {
	if len(shopIDs) == 0 {
		return map[uint][]string{}, nil
	}
	var rows []categoryRow
	if err := s.db.WithContext(ctx).Table("shop_categories").
		Select("shop_categories.shop_id, categories.name_en, categories.name_fr").
		Joins("JOIN categories ON categories.id = shop_categories.category_id").
		Where("shop_categories.shop_id IN ?", shopIDs).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}

	out := make(map[uint][]string, len(shopIDs))
	for _, r := range rows {
		cat := model.Category{NameEN: r.NameEN, NameFR: r.NameFR}
		out[r.ShopID] = append(out[r.ShopID], cat.Names()...)
	}
	return out, nil
}

// FavoriteIDs 实现 discovery.Source。
func (s *Store) FavoriteIDs(ctx context.Context, userID uint, dataset discovery.Dataset) (map[uint]bool, error) {
	itemType := "product"
	if dataset == discovery.DatasetAds {
		itemType = "ad"
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("user_id = ? AND item_type = ?", userID, itemType).
		Pluck("item_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// applyShopPushdown 下推店铺维度的集合谓词。
func applyShopPushdown(q *gorm.DB, spec *discovery.FilterSpec) *gorm.DB {
	if spec == nil {
		return q
	}
	if len(spec.Currencies) > 0 {
		q = q.Where("shops.currency IN ?", spec.Currencies)
	}
	if len(spec.Countries) > 0 {
		q = q.Where("shops.country IN ?", spec.Countries)
	}
	return q
}

func splitPixels(raw string) []string {
	if raw == "" {
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
	return out
}
