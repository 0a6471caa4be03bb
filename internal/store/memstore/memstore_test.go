package memstore

import (
	"context"
	"testing"
	"time"

	"copify/internal/discovery"
	"copify/internal/model"

	"gorm.io/gorm"
)

func TestProductRows_SkipsDeletedShopsAndPushesDownShopFields(t *testing.T) {
	s := New()
	now := time.Now()
	s.AddShop(model.Shop{ID: 1, URL: "live.example", Currency: "USD"})
	s.AddShop(model.Shop{
		ID:        2,
		URL:       "dead.example",
		Currency:  "USD",
		DeletedAt: gorm.DeletedAt{Time: now, Valid: true},
	})
	s.AddShop(model.Shop{ID: 3, URL: "euro.example", Currency: "EUR"})
	s.AddProducts(
		model.Product{ID: 1, ShopID: 1, Handle: "a", Price: 20},
		model.Product{ID: 2, ShopID: 2, Handle: "b", Price: 50},
		model.Product{ID: 3, ShopID: 3, Handle: "c", Price: 30},
	)

	rows, err := s.ProductRows(context.Background(), &discovery.FilterSpec{Currencies: []string{"usd"}})
	if err != nil {
		t.Fatalf("product rows: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 1 {
		t.Fatalf("expected only product 1, got %+v", rows)
	}
}

func TestProductRows_RowLevelPredicatesNotPushedDown(t *testing.T) {
	s := New()
	s.AddShop(model.Shop{ID: 1, URL: "live.example", Currency: "USD"})
	s.AddProducts(
		model.Product{ID: 1, ShopID: 1, Handle: "a", Price: 20},
		model.Product{ID: 2, ShopID: 1, Handle: "b", Price: 5},
	)

	// 价格会随同一 handle 的历史行变化，必须由引擎在去重后应用：
	// 存储层要原样返回两行
	min := 10.0
	rows, err := s.ProductRows(context.Background(), &discovery.FilterSpec{MinPrice: &min})
	if err != nil {
		t.Fatalf("product rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both rows regardless of price filter, got %+v", rows)
	}
}

func TestDiscover_LatestRowLosingFilterHidesKey(t *testing.T) {
	now := time.Now()
	s := New()
	s.AddShop(model.Shop{ID: 1, URL: "live.example", Currency: "USD"})
	s.AddProducts(
		// 最新行价格 5：minPrice=10 下整个 handle 应当不可见，
		// 而不是让 10 天前价格 20 的历史行顶上来
		model.Product{ID: 1, ShopID: 1, Handle: "x", Title: "X", Price: 5,
			CreatedAt: now.AddDate(0, 0, -20), UpdatedAt: now},
		model.Product{ID: 2, ShopID: 1, Handle: "x", Title: "X", Price: 20,
			CreatedAt: now.AddDate(0, 0, -20), UpdatedAt: now.AddDate(0, 0, -10)},
	)
	s.AddSnapshots(model.TrafficSnapshot{ID: 1, ShopID: 1, CreatedAt: now,
		Visits: 1000, Revenue: 5000, Orders: 50, Growth: 5})

	engine := discovery.NewEngine(s, nil, nil)
	page, err := engine.DiscoverProducts(context.Background(),
		map[string]string{"minPrice": "10"}, 1, 10, "newest", 0)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("stale historical row leaked: %+v", page.Items)
	}
}

func TestSnapshots_FiltersByShop(t *testing.T) {
	s := New()
	s.AddSnapshots(
		model.TrafficSnapshot{ID: 1, ShopID: 1},
		model.TrafficSnapshot{ID: 2, ShopID: 2},
		model.TrafficSnapshot{ID: 3, ShopID: 1},
	)
	snaps, err := s.Snapshots(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots for shop 1, got %d", len(snaps))
	}
}

func TestCategoryNames_AllLocales(t *testing.T) {
	s := New()
	s.AddShop(model.Shop{ID: 1, URL: "x"}, model.Category{ID: 1, NameEN: "Home & Garden", NameFR: "Maison"})
	names, err := s.CategoryNames(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(names[1]) != 2 {
		t.Fatalf("expected both locale names, got %v", names[1])
	}
}

func TestFavoriteIDs_ScopedByUserAndType(t *testing.T) {
	s := New()
	s.AddFavorite(model.Favorite{UserID: 1, ItemID: 10, ItemType: "product"})
	s.AddFavorite(model.Favorite{UserID: 1, ItemID: 11, ItemType: "ad"})
	s.AddFavorite(model.Favorite{UserID: 2, ItemID: 12, ItemType: "product"})

	favs, err := s.FavoriteIDs(context.Background(), 1, discovery.DatasetProducts)
	if err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(favs) != 1 || !favs[10] {
		t.Fatalf("unexpected favorites: %v", favs)
	}
}
