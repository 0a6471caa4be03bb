package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"copify/internal/config"
	"copify/internal/discovery"
	"copify/internal/model"
	"copify/internal/pkg/logger"
	"copify/internal/store/gormstore"
	"copify/internal/store/memstore"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// main 是发现榜单命令行工具的入口。
//
// 默认连接配置中的 MySQL；-demo 模式使用内置演示数据，方便离线查看排序效果。
func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径（默认 configs/config.json）")
		dataset    = flag.String("dataset", "products", "数据集: products / ads")
		sortKey    = flag.String("sort", "recommended", "排序模式")
		search     = flag.String("search", "", "搜索词")
		page       = flag.Int("page", 1, "页码")
		perPage    = flag.Int("per-page", 20, "每页数量")
		demo       = flag.Bool("demo", false, "使用内置演示数据（不连接数据库）")
	)
	flag.Parse()

	cfg := config.LoadOrDefault(*configPath)
	appLogger := logger.NewDefault(cfg.App.LogLevel)

	var src discovery.Source
	if *demo {
		src = demoSource()
	} else {
		db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			log.Fatalf("connect mysql: %v", err)
		}
		src = gormstore.New(db)
	}

	engine := discovery.NewEngine(src, nil, appLogger)

	params := map[string]string{}
	if *search != "" {
		params["search"] = *search
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		result *discovery.RankedPage
		err    error
	)
	switch *dataset {
	case "ads":
		result, err = engine.DiscoverAds(ctx, params, *page, *perPage, *sortKey, 0)
	case "products":
		result, err = engine.DiscoverProducts(ctx, params, *page, *perPage, *sortKey, 0)
	default:
		log.Fatalf("unknown dataset %q (want products or ads)", *dataset)
	}
	if err != nil {
		log.Fatalf("discover %s: %v", *dataset, err)
	}

	printPage(result, *dataset)
}

func printPage(result *discovery.RankedPage, dataset string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTITLE\tSHOP\tPRICE\tREVENUE\tVISITS\tGROWTH\tAGE")
	offset := (result.Page - 1) * result.PerPage
	for i, item := range result.Items {
		price := item.DisplayPrice
		if price == "" {
			price = "-"
		}
		revenue := item.DisplayRevenue
		if revenue == "" {
			revenue = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.0f\t%+.1f%%\t%s\n",
			offset+i+1, item.Title, item.ShopName, price, revenue, item.Visits, item.Growth, item.Age)
	}
	w.Flush()

	totalNote := ""
	if result.TotalEstimated {
		totalNote = " (estimated)"
	}
	fmt.Printf("\n%s: page %d/%d, total %d%s\n", dataset, result.Page, result.TotalPages, result.Total, totalNote)
}

// demoSource 构造一份小型内存目录。
func demoSource() discovery.Source {
	now := time.Now()
	started := now.AddDate(0, 0, -5)
	store := memstore.New()

	store.AddShop(model.Shop{
		ID: 1, URL: "lumina-wear.com", Name: "Lumina Wear",
		Country: "US", Currency: "USD", ActiveAds: 12, Pixels: "facebook,tiktok",
	}, model.Category{ID: 1, NameEN: "Fashion", NameFR: "Mode"})
	store.AddShop(model.Shop{
		ID: 2, URL: "fitgear-pro.com", Name: "FitGear Pro",
		Country: "GB", Currency: "GBP", ActiveAds: 4, Pixels: "facebook",
	}, model.Category{ID: 2, NameEN: "Fitness", NameFR: "Fitness"})
	store.AddShop(model.Shop{
		ID: 3, URL: "maison-verte.fr", Name: "Maison Verte",
		Country: "FR", Currency: "EUR",
	}, model.Category{ID: 3, NameEN: "Home & Garden", NameFR: "Maison et Jardin"})

	store.AddProducts(
		model.Product{ID: 1, ShopID: 1, Handle: "aurora-jacket", Title: "Aurora Windbreaker Jacket", Price: 59.9,
			CreatedAt: now.AddDate(0, 0, -3), UpdatedAt: now},
		model.Product{ID: 2, ShopID: 1, Handle: "solstice-tee", Title: "Solstice Graphic Tee", Price: 24.5,
			CreatedAt: now.AddDate(0, 0, -40), UpdatedAt: now},
		model.Product{ID: 3, ShopID: 2, Handle: "grip-band-set", Title: "Resistance Grip Band Set", Price: 32,
			CreatedAt: now.AddDate(0, 0, -15), UpdatedAt: now},
		model.Product{ID: 4, ShopID: 3, Handle: "jardin-lampe", Title: "Lampe de Jardin Solaire", Price: 44,
			CreatedAt: now.AddDate(0, 0, -8), UpdatedAt: now},
	)
	store.AddAds(
		model.Ad{ID: 1, ShopID: 1, ExternalID: "fb-90211", Title: "Aurora Jacket Fall Drop", Platform: "facebook",
			CreatedAt: now.AddDate(0, 0, -5), UpdatedAt: now, StartedAt: &started},
		model.Ad{ID: 2, ShopID: 2, ExternalID: "fb-90344", Title: "Train Anywhere", Platform: "facebook",
			CreatedAt: now.AddDate(0, 0, -20), UpdatedAt: now, StartedAt: &started},
	)
	store.AddSnapshots(
		model.TrafficSnapshot{ID: 1, ShopID: 1, CreatedAt: now.AddDate(0, -1, 0), Visits: 150_000, Revenue: 210_000, Orders: 3_500, Growth: 12},
		model.TrafficSnapshot{ID: 2, ShopID: 1, CreatedAt: now, Visits: 180_000, Revenue: 260_000, Orders: 4_100, Growth: 20},
		model.TrafficSnapshot{ID: 3, ShopID: 2, CreatedAt: now, Visits: 42_000, Revenue: 38_000, Orders: 900, Growth: -3},
		model.TrafficSnapshot{ID: 4, ShopID: 3, CreatedAt: now, Visits: 9_000, Revenue: 12_500, Orders: 260, Growth: 45},
	)
	return store
}
