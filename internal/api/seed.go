package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"copify/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemo 写入一小份演示目录（店铺、商品、广告、快照）。
//
// 幂等：已有店铺数据时直接跳过。
func SeedDemo(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	var shopCount int64
	if err := db.WithContext(ctx).Model(&model.Shop{}).Count(&shopCount).Error; err != nil {
		return fmt.Errorf("count shops: %w", err)
	}
	if shopCount > 0 {
		return nil
	}

	now := time.Now()
	categories := []model.Category{
		{NameEN: "Fashion", NameFR: "Mode"},
		{NameEN: "Fitness", NameFR: "Fitness"},
		{NameEN: "Home & Garden", NameFR: "Maison et Jardin"},
	}
	if err := db.WithContext(ctx).Create(&categories).Error; err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	shops := []model.Shop{
		{
			URL:        "lumina-wear.com",
			Name:       "Lumina Wear",
			Country:    "US",
			Currency:   "USD",
			ActiveAds:  12,
			Pixels:     "facebook,tiktok",
			Categories: []model.Category{categories[0]},
		},
		{
			URL:        "fitgear-pro.com",
			Name:       "FitGear Pro",
			Country:    "GB",
			Currency:   "GBP",
			ActiveAds:  4,
			Pixels:     "facebook",
			Categories: []model.Category{categories[1]},
		},
		{
			URL:        "maison-verte.fr",
			Name:       "Maison Verte",
			Country:    "FR",
			Currency:   "EUR",
			ActiveAds:  0,
			Pixels:     "",
			Categories: []model.Category{categories[2]},
		},
	}
	if err := db.WithContext(ctx).Create(&shops).Error; err != nil {
		return fmt.Errorf("seed shops: %w", err)
	}

	started := now.AddDate(0, 0, -5)
	products := []model.Product{
		// aurora-jacket 带一条历史重复行，验证去重只展示最新价格
		{ShopID: shops[0].ID, Handle: "aurora-jacket", Title: "Aurora Windbreaker Jacket", Price: 64.9, URL: "https://lumina-wear.com/products/aurora-jacket",
			UpdatedAt: now.AddDate(0, 0, -14)},
		{ShopID: shops[0].ID, Handle: "aurora-jacket", Title: "Aurora Windbreaker Jacket", Price: 59.9, URL: "https://lumina-wear.com/products/aurora-jacket"},
		{ShopID: shops[0].ID, Handle: "solstice-tee", Title: "Solstice Graphic Tee", Price: 24.5, URL: "https://lumina-wear.com/products/solstice-tee"},
		{ShopID: shops[1].ID, Handle: "grip-band-set", Title: "Resistance Grip Band Set", Price: 32.0, URL: "https://fitgear-pro.com/products/grip-band-set"},
		{ShopID: shops[2].ID, Handle: "jardin-lampe", Title: "Lampe de Jardin Solaire", Price: 44.0, URL: "https://maison-verte.fr/products/jardin-lampe"},
	}
	if err := db.WithContext(ctx).Create(&products).Error; err != nil {
		return fmt.Errorf("seed products: %w", err)
	}

	ads := []model.Ad{
		{ShopID: shops[0].ID, ExternalID: "fb-90211", Title: "Aurora Jacket Fall Drop", Platform: "facebook", URL: "https://lumina-wear.com/products/aurora-jacket", StartedAt: &started},
		{ShopID: shops[1].ID, ExternalID: "fb-90344", Title: "Train Anywhere", Platform: "facebook", URL: "https://fitgear-pro.com/products/grip-band-set", StartedAt: &started},
	}
	if err := db.WithContext(ctx).Create(&ads).Error; err != nil {
		return fmt.Errorf("seed ads: %w", err)
	}

	snapshots := []model.TrafficSnapshot{
		{ShopID: shops[0].ID, CreatedAt: now.AddDate(0, -1, 0), Visits: 150_000, Revenue: 210_000, Orders: 3_500, Growth: 12},
		{ShopID: shops[0].ID, CreatedAt: now, Visits: 180_000, Revenue: 260_000, Orders: 4_100, Growth: 20},
		{ShopID: shops[1].ID, CreatedAt: now, Visits: 42_000, Revenue: 38_000, Orders: 900, Growth: -3},
		{ShopID: shops[2].ID, CreatedAt: now, Visits: 9_000, Revenue: 12_500, Orders: 260, Growth: 45},
	}
	if err := db.WithContext(ctx).Create(&snapshots).Error; err != nil {
		return fmt.Errorf("seed snapshots: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	demoUser := model.User{Email: "demo@copify.local", Password: string(hash), Role: "member"}
	if err := db.WithContext(ctx).Create(&demoUser).Error; err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}
	fav := model.Favorite{UserID: demoUser.ID, ItemID: products[1].ID, ItemType: "product"}
	if err := db.WithContext(ctx).Create(&fav).Error; err != nil {
		return fmt.Errorf("seed favorite: %w", err)
	}

	if logger != nil {
		logger.Info("demo catalog seeded",
			slog.Int("shops", len(shops)),
			slog.Int("products", len(products)),
			slog.Int("ads", len(ads)),
		)
	}
	return nil
}
