// Package app wires the marketplace together: gateway, identity provider,
// stores, services and the HTTP API.
package app

import (
	"context"
	"fmt"
	"time"

	"plantmart/internal/classifier"
	"plantmart/internal/config"
	"plantmart/internal/handlers"
	"plantmart/internal/identity"
	"plantmart/internal/metrics"
	"plantmart/internal/middleware"
	"plantmart/internal/models"
	"plantmart/internal/repositories"
	"plantmart/internal/services"
	"plantmart/internal/stores"
	"plantmart/pkg/rabbitmq"
	"plantmart/pkg/supabase"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// uploads up to classifier.MaxImageSize must reach the classifier's own check
const bodyLimit = 16 << 20

type gateway struct {
	products   repositories.ProductRepository
	carts      repositories.CartRepository
	profiles   repositories.ProfileRepository
	identities repositories.IdentityRepository // nil for hosted identity
	client     *supabase.Client
	db         *gorm.DB
}

// App owns every long-lived dependency of the process.
type App struct {
	Fiber    *fiber.App
	Auth     *services.AuthService
	Orders   *services.OrderService
	Products *stores.ProductStore
	Carts    *stores.CartStore
	Profiles *stores.ProfileStore

	cfg      *config.Config
	log      logrus.FieldLogger
	gateway  *gateway
	provider identity.Provider
	broker   *rabbitmq.Client
	stop     context.CancelFunc
	unsubs   []func()
}

// New builds the application from cfg. Nothing talks to the gateway until
// Start.
func New(cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	validate := validator.New()

	gw, err := openGateway(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg, gw, log)
	if err != nil {
		gw.close()
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		gateway:  gw,
		provider: provider,
	}

	if cfg.RabbitMQURL != "" {
		broker, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			gw.close()
			return nil, err
		}
		a.broker = broker
	}

	a.Products = stores.NewProductStore(gw.products, validate, log)
	a.Carts = stores.NewCartStore(gw.carts, log)
	a.Profiles = stores.NewProfileStore(provider, gw.profiles, validate,
		stores.ProfileConfig{Compensation: cfg.SignUpCompensation}, log)
	a.Auth = services.NewAuthService(provider, a.Profiles, a.Carts, log)

	var publisher services.OrderPublisher
	if a.broker != nil {
		publisher = a.broker
	}
	a.Orders = services.NewOrderService(a.Carts, a.Profiles, publisher, log)

	diagnoser := classifier.New(classifier.Config{
		URL:     cfg.ClassifierURL,
		Timeout: cfg.ClassifierTimeout,
	}, validate)

	a.Fiber = a.routes(validate, diagnoser)
	return a, nil
}

func (a *App) routes(validate *validator.Validate, diagnoser handlers.Diagnoser) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "plantmart",
		BodyLimit: bodyLimit,
	})

	app.Use(logger.New())
	app.Use(metrics.Middleware())

	app.Get("/health", a.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	apiV1 := app.Group("/api/v1")
	requireAuth := middleware.AuthRequired(a.Auth, a.log)

	handlers.NewAuthHandler(a.Auth, validate, a.log).RegisterRoutes(apiV1, requireAuth)
	handlers.NewProductHandler(a.Products, validate, a.log).RegisterRoutes(apiV1, requireAuth)
	handlers.NewCartHandler(a.Carts, a.Products, validate, a.log).RegisterRoutes(apiV1, requireAuth)
	handlers.NewOrderHandler(a.Orders, a.log).RegisterRoutes(apiV1, requireAuth)
	handlers.NewProfileHandler(a.Profiles, validate, a.log).RegisterRoutes(apiV1, requireAuth)
	handlers.NewDiagnoseHandler(diagnoser, a.log).RegisterRoutes(apiV1)
	return app
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	broker := "disabled"
	if a.broker != nil {
		broker = "connected"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"gateway":  a.cfg.GatewayDriver,
		"identity": a.cfg.IdentityDriver,
		"broker":   broker,
		"products": len(a.Products.Products()),
	})
}

// Start subscribes the stores to identity events, seeds and loads the
// catalog, and starts the order event consumer.
func (a *App) Start(ctx context.Context) error {
	a.Profiles.Start()
	// a sign-out from any path drops the cart mirror too
	a.unsubs = append(a.unsubs, a.provider.Subscribe(func(_ context.Context, event identity.Event, session *identity.Session) {
		if event == identity.SignedOut && session != nil {
			a.Carts.Forget(session.UserID)
		}
	}))

	if a.cfg.SeedProducts {
		if err := seedProducts(ctx, a.gateway.products, a.log); err != nil {
			a.log.WithError(err).Warn("could not seed products")
		}
	}
	if err := a.Products.Start(ctx); err != nil {
		// the catalog stays empty and loading is cleared; GET /products retries
		a.log.WithError(err).Error("initial product fetch failed")
	}

	if a.broker != nil {
		consumerCtx, cancel := context.WithCancel(context.Background())
		a.stop = cancel
		if err := a.broker.ConsumeOrderEvents(consumerCtx, a.handleOrderEvent); err != nil {
			cancel()
			return err
		}
		a.log.Info("order event consumer started")
	}
	return nil
}

func (a *App) handleOrderEvent(_ context.Context, order models.OrderConfirmation) error {
	a.log.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"user_id":    order.UserID,
		"item_count": order.ItemCount,
	}).Info("order confirmed")
	return nil
}

// Close releases everything Start and New acquired. It does not stop the
// HTTP server.
func (a *App) Close() error {
	for _, unsubscribe := range a.unsubs {
		unsubscribe()
	}
	a.unsubs = nil
	a.Profiles.Close()
	if a.stop != nil {
		a.stop()
	}

	var firstErr error
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.gateway.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func openGateway(cfg *config.Config) (*gateway, error) {
	switch cfg.GatewayDriver {
	case config.DriverSQLite, config.DriverPostgres:
		dialector := postgres.Open(cfg.DatabaseDSN)
		if cfg.GatewayDriver == config.DriverSQLite {
			dialector = sqlite.Open(cfg.DatabaseDSN)
		}
		db, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.AutoMigrate(&models.ProductRow{}, &models.ProfileRow{}, &models.CartItemRow{}, &models.Identity{}); err != nil {
			return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
		}
		gw := &gateway{
			products:   repositories.NewGORMProductRepository(db),
			carts:      repositories.NewGORMCartRepository(db),
			profiles:   repositories.NewGORMProfileRepository(db),
			identities: repositories.NewGORMIdentityRepository(db),
			db:         db,
		}
		return gw, attachSupabase(cfg, gw)

	case config.DriverSupabase:
		client, err := supabase.New(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
		if err != nil {
			return nil, err
		}
		return &gateway{
			products: repositories.NewSupabaseProductRepository(client),
			carts:    repositories.NewSupabaseCartRepository(client),
			profiles: repositories.NewSupabaseProfileRepository(client),
			client:   client,
		}, nil

	default:
		products := repositories.NewMemoryProductRepository()
		gw := &gateway{
			products:   products,
			carts:      repositories.NewMemoryCartRepository(products),
			profiles:   repositories.NewMemoryProfileRepository(),
			identities: repositories.NewMemoryIdentityRepository(),
		}
		return gw, attachSupabase(cfg, gw)
	}
}

// attachSupabase opens a client for hosted identity on a local gateway.
func attachSupabase(cfg *config.Config, gw *gateway) error {
	if cfg.IdentityDriver != config.IdentitySupabase {
		return nil
	}
	client, err := supabase.New(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
	if err != nil {
		return err
	}
	gw.client = client
	return nil
}

func (g *gateway) close() error {
	if g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newProvider(cfg *config.Config, gw *gateway, log logrus.FieldLogger) (identity.Provider, error) {
	if cfg.IdentityDriver == config.IdentitySupabase {
		return identity.NewSupabaseProvider(gw.client), nil
	}
	return identity.NewLocalProvider(gw.identities, identity.LocalConfig{
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, log)
}
