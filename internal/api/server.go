package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"copify/internal/api/auth"
	"copify/internal/api/middleware"
	"copify/internal/config"
	"copify/internal/discovery"
	"copify/internal/model"
	"copify/internal/pkg/ratelimit"
	"copify/internal/store/gormstore"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、发现引擎以及 Gin 路由引擎。
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	rdb     *redis.Client
	router  *gin.Engine
	engine  *discovery.Engine
	auth    *auth.Handler
	limiter *ratelimit.RateLimiter
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 组装发现引擎（数据源 + 总数缓存）
// 4. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Shop{},
		&model.Product{},
		&model.Ad{},
		&model.TrafficSnapshot{},
		&model.Category{},
		&model.Favorite{},
	); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	var counts discovery.CountCache
	if cfg.Discovery.CountCacheBackend == "redis" {
		counts = discovery.NewRedisCountCache(rdb, cfg.Discovery.CountCacheTTL)
	} else {
		counts = discovery.NewMemoryCountCache(cfg.Discovery.CountCacheTTL)
	}

	engine := discovery.NewEngine(gormstore.New(db), counts, logger)
	limiter := ratelimit.NewRedisRateLimiter(rdb, logger, "copify:ratelimit:api", cfg.App.RateLimit, cfg.App.RateBurst)

	if cfg.App.SeedDemo {
		if err := SeedDemo(ctx, db, logger); err != nil {
			logger.Warn("seed demo data failed", slog.String("error", err.Error()))
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		rdb:     rdb,
		router:  r,
		engine:  engine,
		auth:    auth.NewHandler(db, cfg.Security.JWTSecret, logger),
		limiter: limiter,
	}
	s.registerRoutes()
	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	s.router.POST("/register", s.auth.Register)
	s.router.POST("/login", s.auth.Login)

	api := s.router.Group("/api")
	api.Use(middleware.RateLimit(s.limiter))

	public := api.Group("/")
	public.Use(middleware.OptionalAuth(s.cfg.Security.JWTSecret))
	public.GET("/products", s.handleDiscoverProducts)
	public.GET("/ads", s.handleDiscoverAds)

	authed := api.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))
	authed.POST("/logout", s.auth.Logout)
	authed.POST("/favorites", s.handleToggleFavorite)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleDiscoverProducts 返回排序分页后的商品发现列表。
func (s *Server) handleDiscoverProducts(c *gin.Context) {
	s.handleDiscover(c, s.engine.DiscoverProducts)
}

// handleDiscoverAds 返回排序分页后的广告发现列表。
func (s *Server) handleDiscoverAds(c *gin.Context) {
	s.handleDiscover(c, s.engine.DiscoverAds)
}

type discoverFunc func(ctx context.Context, params map[string]string, page, perPage int, sortKey string, userID uint) (*discovery.RankedPage, error)

func (s *Server) handleDiscover(c *gin.Context, fn discoverFunc) {
	params := make(map[string]string, len(c.Request.URL.Query()))
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	page := parseQueryInt(c, "page", 1)
	perPage := parseQueryInt(c, "per_page", s.cfg.Discovery.DefaultPerPage)
	if max := s.cfg.Discovery.MaxPerPage; max > 0 && perPage > max {
		perPage = max
	}
	sortKey := c.DefaultQuery("sort", "recommended")

	result, err := fn(c.Request.Context(), params, page, perPage, sortKey, middleware.UserID(c))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, discovery.ErrStoreUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": gin.H{
			"kind":    discovery.ErrorKind(err),
			"message": "discovery temporarily unavailable",
		}})
		return
	}

	c.JSON(http.StatusOK, result)
}

type favoriteRequest struct {
	ItemID   uint   `json:"item_id" binding:"required"`
	ItemType string `json:"item_type" binding:"required,oneof=product ad"`
}

// handleToggleFavorite 收藏/取消收藏一个商品或广告。
func (s *Server) handleToggleFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := middleware.UserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return
	}

	fav := model.Favorite{UserID: userID, ItemID: req.ItemID, ItemType: req.ItemType}
	var existing model.Favorite
	err := s.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND item_id = ? AND item_type = ?", userID, req.ItemID, req.ItemType).
		First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(c.Request.Context()).
			Where("user_id = ? AND item_id = ? AND item_type = ?", userID, req.ItemID, req.ItemType).
			Delete(&model.Favorite{}).Error; err != nil {
			s.logger.Error("delete favorite failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete favorite failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"favorite": false})
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(c.Request.Context()).Create(&fav).Error; err != nil {
			s.logger.Error("create favorite failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create favorite failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"favorite": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query favorite failed"})
	}
}

func parseQueryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
