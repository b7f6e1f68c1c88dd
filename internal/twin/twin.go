// Package twin assembles the local stand-in for the admin REST API: store,
// token cache, services, handlers and router.
package twin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pazzo-admin/internal/cache"
	"pazzo-admin/internal/config"
	"pazzo-admin/internal/handler"
	"pazzo-admin/internal/middleware"
	"pazzo-admin/internal/repository"
	"pazzo-admin/internal/resource"
	"pazzo-admin/internal/router"
	"pazzo-admin/internal/service"
)

// App is an assembled twin.
type App struct {
	Handler http.Handler
	Records *service.RecordService
	Admins  *service.AdminService
	Tokens  *service.TokenService

	store repository.Store
	cache cache.Cache
	log   *zap.Logger
}

// New builds a twin from cfg. The admin account from cfg.Twin is seeded on
// first start.
func New(ctx context.Context, cfg *config.Config, table *resource.Table, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	store, dbType, err := openStore(ctx, cfg, log.Named("store"))
	if err != nil {
		return nil, err
	}

	tokenCache, cacheType := openCache(ctx, cfg, log.Named("cache"))

	tokens := service.NewTokenService(tokenCache, cfg.Cache.TTL, log.Named("tokens"))
	admins := service.NewAdminService(store, tokens, log.Named("admins"))
	records := service.NewRecordService(store, table, cfg.Twin.MaxUploadBytes(), log.Named("records"))

	if err := admins.EnsureAdmin(ctx, cfg.Twin.AdminEmail, cfg.Twin.AdminPassword); err != nil {
		store.Close()
		tokenCache.Close()
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}

	var pinger handler.Pinger
	if p, ok := store.(handler.Pinger); ok {
		pinger = p
	}

	r := router.New(router.Config{
		Handler:       handler.New(cfg.App.Name+"-twin", cfg.App.Version, pinger),
		RecordHandler: handler.NewRecordHandler(records, cfg.Twin.MaxUploadBytes(), log.Named("http.records")),
		AuthHandler:   handler.NewAuthHandler(admins),
		AdminHandler:  handler.NewAdminHandler(admins, records, store, tokenCache, dbType, cacheType),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{
			TokenService: tokens,
			Required:     cfg.Twin.RequireAuth,
			Logger:       log.Named("auth"),
		}),
		Logger: log.Named("http"),
	})

	log.Info("twin assembled",
		zap.String("db_type", dbType),
		zap.String("cache_type", cacheType),
		zap.Bool("require_auth", cfg.Twin.RequireAuth),
		zap.Strings("collections", table.Keys()),
	)

	return &App{
		Handler: r,
		Records: records,
		Admins:  admins,
		Tokens:  tokens,
		store:   store,
		cache:   tokenCache,
		log:     log,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, string, error) {
	switch cfg.Twin.DBType {
	case "mysql":
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := repository.NewMySQLStore(pingCtx, cfg.Database.DSN(), log)
		if err != nil {
			return nil, "", err
		}
		return s, "mysql", nil
	case "sqlite", "":
		s, err := repository.NewSQLiteStore(cfg.Twin.DBPath, log)
		if err != nil {
			return nil, "", err
		}
		return s, "sqlite", nil
	default:
		return nil, "", fmt.Errorf("unknown TWIN_DB_TYPE %q", cfg.Twin.DBType)
	}
}

// openCache falls back to memory when Redis is unreachable.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Cache, string) {
	if cfg.Cache.Type == "redis" {
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, log)
		if err == nil {
			return c, "redis"
		}
		log.Warn("redis unavailable, using memory cache", zap.Error(err))
	}
	return cache.NewMemoryCache(time.Minute), "memory"
}

// Close releases the store and the cache.
func (a *App) Close() error {
	return errors.Join(a.cache.Close(), a.store.Close())
}
