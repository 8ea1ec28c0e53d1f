// Package app は設定から依存関係を組み立てる。cmd/apiとテストで共有する
package app

import (
	"context"
	"strconv"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/repository/memory"
	"storefront/internal/infra/storage"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ストアごとのリポジトリ一式
type Repos struct {
	Users      repo.UserRepository
	Sessions   repo.SessionRepository
	Products   repo.ProductRepository
	CartItems  repo.CartItemRepository
	Orders     repo.OrderRepository
	Tx         repo.TransactionManager
	Pinger     handler.Pinger
	closeStore func() error
}

func (r Repos) Close() error {
	if r.closeStore == nil {
		return nil
	}
	return r.closeStore()
}

type App struct {
	Echo     *echo.Echo
	Sessions *auth.SessionUsecase
	Metrics  *metrics.Metrics
	Repos    Repos

	closers []func() error
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// STOREに応じてpostgres（マイグレーション込み）かメモリを使う
func OpenRepos(ctx context.Context, cfg config.Config) (Repos, error) {
	if cfg.Store == config.StoreMemory {
		st := memory.NewStore()
		return Repos{
			Users:      st.Users(),
			Sessions:   st.Sessions(),
			Products:   st.Products(),
			CartItems:  st.CartItems(),
			Orders:     st.Orders(),
			Tx:         st,
			closeStore: func() error { return nil },
		}, nil
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return Repos{}, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return Repos{}, err
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		_ = sqlDB.Close()
		return Repos{}, err
	}

	return Repos{
		Users:      infraRepo.NewUserGormRepository(gdb),
		Sessions:   infraRepo.NewSessionGormRepository(gdb),
		Products:   infraRepo.NewProductGormRepository(gdb),
		CartItems:  infraRepo.NewCartItemGormRepository(gdb),
		Orders:     infraRepo.NewOrderGormRepository(gdb),
		Tx:         infraRepo.NewTxManagerGorm(gdb),
		Pinger:     sqlDB,
		closeStore: sqlDB.Close,
	}, nil
}

func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	repos, err := OpenRepos(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Repos = repos
	a.closers = append(a.closers, repos.Close)

	var catalog repo.CatalogCache = cache.NoopCatalogCache{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCatalogCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.CatalogCacheTTL)
		if err != nil {
			return nil, err
		}
		catalog = rc
		a.closers = append(a.closers, rc.Close)
	}

	var images repo.ImageStorage
	staticDir := ""
	if cfg.UseS3() {
		images, err = storage.NewS3ImageStorage(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			MaxBytes:  cfg.UploadMaxBytes,
		})
		if err != nil {
			return nil, err
		}
	} else {
		local, err := storage.NewLocalImageStorage(cfg.UploadDir, cfg.UploadMaxBytes)
		if err != nil {
			return nil, err
		}
		images = local
		staticDir = local.Dir()
	}

	a.Metrics = metrics.New()

	// auth
	v := validator.NewAuthValidator()
	hasher := auth.NewBcryptPasswordHasher(0)
	signer := auth.NewCookieSigner(cfg.SessionSecret)
	clock := auth.SystemClock{}

	registerUC := auth.NewRegisterUserUsecase(repos.Users, v, hasher, clock, cfg.AllowAdminSignup)
	loginUC, err := auth.NewLoginUsecase(repos.Users, repos.Sessions, v, hasher, auth.NewBcryptPasswordVerifier(), signer, clock, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	a.Sessions = auth.NewSessionUsecase(repos.Users, repos.Sessions, signer, clock)

	// storefront
	productUC := usecase.NewProductUsecase(repos.Products, repos.Tx, catalog, images, log)
	cartUC := usecase.NewCartUsecase(repos.CartItems, repos.Products)
	orderUC := usecase.NewOrderUsecase(repos.Tx, repos.Orders, cfg.CheckoutStrictStock,
		usecase.WithLogger(log),
		usecase.WithCheckoutObserver(a.Metrics),
		usecase.WithCatalogCache(catalog),
	)
	adminUC := usecase.NewAdminUsecase(repos.Users, repos.Orders)

	renderer, err := handler.NewRenderer("/static")
	if err != nil {
		return nil, err
	}

	a.Echo = server.New(server.Deps{
		Log:       log,
		Metrics:   a.Metrics,
		Renderer:  renderer,
		Sessions:  a.Sessions,
		StaticDir: staticDir,
		// 画像に加えてフォーム分の余裕
		BodyLimit: strconv.FormatInt(cfg.UploadMaxBytes+(1<<20), 10),
		Auth:      handler.NewAuthHandler(registerUC, loginUC, a.Sessions, cfg.CookieSecure),
		Product:   handler.NewProductHandler(productUC),
		Cart:      handler.NewCartHandler(cartUC),
		Order:     handler.NewOrderHandler(orderUC),
		Admin:     handler.NewAdminHandler(adminUC),
		Health:    handler.NewHealthHandler(repos.Pinger),
	})

	ok = true
	return a, nil
}

// 起動時と定期的に呼ぶ
func (a *App) PurgeSessions(ctx context.Context, log zerolog.Logger) {
	n, err := a.Sessions.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("purge expired sessions")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("purged expired sessions")
	}
}
