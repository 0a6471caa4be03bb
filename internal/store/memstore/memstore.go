// Package memstore 提供 discovery.Source 的内存实现。
//
// 用于单元测试和 CLI 的演示模式，不依赖外部数据库。
// 与生产实现一样，它只做粗过滤（引擎会在内存中权威地重放全部谓词），
// 并原样返回历史重复行和完整快照历史。
package memstore

import (
	"context"
	"strings"
	"sync"

	"copify/internal/discovery"
	"copify/internal/model"
)

// Store 持有演示数据集的内存副本。
type Store struct {
	mu        sync.RWMutex
	shops     map[uint]model.Shop
	products  []model.Product
	ads       []model.Ad
	snapshots []model.TrafficSnapshot
	shopCats  map[uint][]model.Category
	favorites []model.Favorite
}

// New 创建空的内存存储。
func New() *Store {
	return &Store{
		shops:    make(map[uint]model.Shop),
		shopCats: make(map[uint][]model.Category),
	}
}

// AddShop 注册一个店铺及其类目。
func (s *Store) AddShop(shop model.Shop, cats ...model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[shop.ID] = shop
	if len(cats) > 0 {
		s.shopCats[shop.ID] = append(s.shopCats[shop.ID], cats...)
	}
}

// AddProducts 追加商品行（允许同一 handle 的历史重复行）。
func (s *Store) AddProducts(products ...model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, products...)
}

// AddAds 追加广告行。
func (s *Store) AddAds(ads ...model.Ad) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ads = append(s.ads, ads...)
}

// AddSnapshots 追加流量快照历史。
func (s *Store) AddSnapshots(snaps ...model.TrafficSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snaps...)
}

// AddFavorite 记录一条收藏。
func (s *Store) AddFavorite(fav model.Favorite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites = append(s.favorites, fav)
}

// ProductRows 实现 discovery.Source。
func (s *Store) ProductRows(_ context.Context, spec *discovery.FilterSpec) ([]discovery.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]discovery.Candidate, 0, len(s.products))
	for _, p := range s.products {
		shop, ok := s.liveShop(p.ShopID)
		if !ok {
			continue
		}
		// 粗过滤：只下推店铺维度的谓词。价格、搜索词这类会随历史行变化的
		// 谓词必须留到引擎去重之后，否则旧历史行可能顶替被过滤掉的最新行。
		if !shopMatches(&shop, spec) {
			continue
		}
		out = append(out, discovery.Candidate{
			ID:            p.ID,
			Title:         p.Title,
			Handle:        p.Handle,
			Price:         p.Price,
			ImageURL:      p.ImageURL,
			URL:           p.URL,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
			ShopID:        shop.ID,
			ShopURL:       shop.URL,
			ShopName:      shop.Name,
			ShopCountry:   shop.Country,
			ShopCurrency:  shop.Currency,
			ShopActiveAds: shop.ActiveAds,
			Pixels:        shop.PixelList(),
		})
	}
	return out, nil
}

// AdRows 实现 discovery.Source。
func (s *Store) AdRows(_ context.Context, spec *discovery.FilterSpec) ([]discovery.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]discovery.Candidate, 0, len(s.ads))
	for _, a := range s.ads {
		shop, ok := s.liveShop(a.ShopID)
		if !ok {
			continue
		}
		if !shopMatches(&shop, spec) {
			continue
		}
		started := a.StartedAt
		out = append(out, discovery.Candidate{
			ID:            a.ID,
			Title:         a.Title,
			ExternalID:    a.ExternalID,
			Platform:      a.Platform,
			ImageURL:      a.ImageURL,
			URL:           a.URL,
			CreatedAt:     a.CreatedAt,
			UpdatedAt:     a.UpdatedAt,
			StartedAt:     started,
			ShopID:        shop.ID,
			ShopURL:       shop.URL,
			ShopName:      shop.Name,
			ShopCountry:   shop.Country,
			ShopCurrency:  shop.Currency,
			ShopActiveAds: shop.ActiveAds,
			Pixels:        shop.PixelList(),
		})
	}
	return out, nil
}

// Snapshots 实现 discovery.Source，返回完整快照历史。
func (s *Store) Snapshots(_ context.Context, shopIDs []uint) ([]model.TrafficSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[uint]bool, len(shopIDs))
	for _, id := range shopIDs {
		wanted[id] = true
	}
	out := make([]model.TrafficSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		if wanted[snap.ShopID] {
			out = append(out, snap)
		}
	}
	return out, nil
}

// CategoryNames 实现 discovery.Source，包含所有语言写法。
func (s *Store) CategoryNames(_ context.Context, shopIDs []uint) (map[uint][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uint][]string, len(shopIDs))
	for _, id := range shopIDs {
		for _, cat := range s.shopCats[id] {
			out[id] = append(out[id], cat.Names()...)
		}
	}
	return out, nil
}

// FavoriteIDs 实现 discovery.Source。
func (s *Store) FavoriteIDs(_ context.Context, userID uint, dataset discovery.Dataset) (map[uint]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	itemType := "product"
	if dataset == discovery.DatasetAds {
		itemType = "ad"
	}
	out := make(map[uint]bool)
	for _, fav := range s.favorites {
		if fav.UserID == userID && fav.ItemType == itemType {
			out[fav.ItemID] = true
		}
	}
	return out, nil
}

// liveShop 返回未被软删除的店铺。
func (s *Store) liveShop(id uint) (model.Shop, bool) {
	shop, ok := s.shops[id]
	if !ok || shop.DeletedAt.Valid {
		return model.Shop{}, false
	}
	return shop, true
}

// shopMatches 判定店铺维度的下推谓词（货币、国家）。
// 店铺字段对同一去重键下的所有历史行取值相同，在去重前过滤不会改变去重结果。
func shopMatches(shop *model.Shop, spec *discovery.FilterSpec) bool {
	if spec == nil {
		return true
	}
	if len(spec.Currencies) > 0 && !containsFold(spec.Currencies, shop.Currency) {
		return false
	}
	if len(spec.Countries) > 0 && !containsFold(spec.Countries, shop.Country) {
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
