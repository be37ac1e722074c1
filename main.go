package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"gorm.io/gorm"

	"toko-checkout/internal/config"
	"toko-checkout/internal/handlers"
	"toko-checkout/internal/models"
	"toko-checkout/internal/notify"
	"toko-checkout/internal/repositories"
	"toko-checkout/internal/services"
	"toko-checkout/internal/telemetry"
	"toko-checkout/pkg/gateway"
	"toko-checkout/pkg/kafka"
	"toko-checkout/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, "toko-checkout", cfg.OTelEndpoint)
	if err != nil {
		slog.Error("Failed to set up tracing", "err", err)
		os.Exit(1)
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create app", "err", err)
		os.Exit(1)
	}

	// --- Start HTTP Server ---
	slog.Info("Starting server", "port", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			slog.Error("Server failed to start", "err", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	slog.Info("Shutting down server...")

	if err := app.Close(); err != nil {
		slog.Error("Error during shutdown", "err", err)
	}
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		slog.Error("Error flushing traces", "err", err)
	}
	slog.Info("Server gracefully stopped")
}

// App is the wired service: the HTTP app plus the resources it owns.
type App struct {
	Fiber   *fiber.App
	closers []func() error
}

// Close stops the HTTP server and releases resources in reverse order of acquisition.
func (a *App) Close() error {
	errs := []error{a.Fiber.Shutdown()}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// NewApp wires repositories, services and handlers from cfg.
func NewApp(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			for i := len(app.closers) - 1; i >= 0; i-- {
				app.closers[i]()
			}
		}
	}()

	// --- Database ---
	db, err := repositories.OpenDB(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	// --- Initialize Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	ledger, primer, err := newStockLedger(ctx, cfg, db, app)
	if err != nil {
		return nil, err
	}

	notifier, err := newNotifier(cfg, app)
	if err != nil {
		return nil, err
	}

	// --- Initialize Services ---
	productService := services.NewProductService(productRepo)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	cartService := services.NewCartService(cartRepo, productRepo, ledger)
	orderService := services.NewOrderService(orderRepo, productRepo, cartRepo, ledger, notifier, cfg.LowStockThreshold)
	paymentService := services.NewPaymentService(orderService,
		gateway.NewHTTPClient(gateway.Config{
			BaseURL:   cfg.PaymentGatewayURL,
			KeyID:     cfg.PaymentKeyID,
			KeySecret: cfg.PaymentKeySecret,
			Timeout:   cfg.PaymentGatewayTimeout,
		}),
		services.PaymentConfig{
			KeyID:     cfg.PaymentKeyID,
			KeySecret: cfg.PaymentKeySecret,
			Currency:  cfg.PaymentCurrency,
			Timeout:   cfg.PaymentGatewayTimeout,
		})

	if cfg.SeedProducts {
		if err := seedProducts(ctx, productService); err != nil {
			return nil, err
		}
	}
	if primer != nil {
		if err := primeStock(ctx, productService, primer); err != nil {
			return nil, err
		}
	}
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := authService.CreateAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to provision admin: %w", err)
		}
	}

	// --- Initialize Fiber App ---
	app.Fiber = fiber.New()

	// --- Middleware ---
	app.Fiber.Use(logger.New()) // Request logger

	// --- API Routes ---
	apiV1 := app.Fiber.Group("/api/v1")
	handlers.RegisterAPI(apiV1, authService, handlers.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		Cart:    handlers.NewCartHandler(cartService),
		Order:   handlers.NewOrderHandler(orderService),
		Payment: handlers.NewPaymentHandler(paymentService),
	})

	// --- Health Check Endpoint ---
	app.Fiber.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"time":      time.Now().Format(time.RFC3339),
			"inventory": cfg.InventoryBackend,
			"notify":    cfg.NotifyBackend,
		})
	})

	return app, nil
}

// newStockLedger returns the configured ledger. The Redis ledger is also
// returned as the second value so its counters can be primed.
func newStockLedger(ctx context.Context, cfg *config.Config, db *gorm.DB, app *App) (repositories.StockLedger, *repositories.RedisStockLedger, error) {
	if cfg.InventoryBackend != "redis" {
		return repositories.NewGORMStockLedger(db), nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	app.closers = append(app.closers, client.Close)
	slog.Info("Using Redis stock ledger", "addr", cfg.RedisAddr)
	ledger := repositories.NewRedisStockLedger(client)
	return ledger, ledger, nil
}

func newNotifier(cfg *config.Config, app *App) (notify.Notifier, error) {
	switch cfg.NotifyBackend {
	case "rabbitmq":
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, mqClient.Close)

		// Log consumed events so the local stack shows what the notification
		// service would receive.
		if err := mqClient.ConsumeOrderEvents(logDelivery); err != nil {
			slog.Warn("Failed to start RabbitMQ consumer", "err", err)
		}
		return notify.NewBrokerNotifier(mqClient), nil
	case "kafka":
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		app.closers = append(app.closers, publisher.Close)
		slog.Info("Publishing notifications to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		return notify.NewBrokerNotifier(publisher), nil
	default:
		return notify.LogNotifier{}, nil
	}
}

func logDelivery(msg amqp.Delivery) error {
	slog.Info("Received event", "routing_key", msg.RoutingKey, "message_id", msg.MessageId, "body", string(msg.Body))
	return nil
}

// seedProducts adds a small demo catalog. Products that already exist get
// their catalog fields refreshed; their stock is left alone.
func seedProducts(ctx context.Context, productService *services.ProductService) error {
	products := []models.Product{
		{ID: "prod-1", Name: "Laptop", Description: "High performance laptop", Price: 1200.00, Stock: 10},
		{ID: "prod-2", Name: "Keyboard", Description: "Mechanical keyboard", Price: 75.00, DiscountPrice: 60.00, Stock: 25},
		{ID: "prod-3", Name: "T-Shirt", Description: "Cotton t-shirt", Price: 25.00, Stock: 50, Sizes: []string{"S", "M", "L", "XL"}},
	}

	for i := range products {
		if _, err := productService.GetProductByID(ctx, products[i].ID); err == nil {
			if err := productService.UpdateProduct(ctx, &products[i]); err != nil {
				return fmt.Errorf("failed to refresh product %s: %w", products[i].Name, err)
			}
			continue
		}
		if err := productService.CreateProduct(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
		slog.Info("Seeded product", "name", products[i].Name, "id", products[i].ID)
	}
	return nil
}

// primeStock copies catalog stock into Redis for products that have no counter yet.
func primeStock(ctx context.Context, productService *services.ProductService, ledger *repositories.RedisStockLedger) error {
	products, err := productService.GetAllProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if _, err := ledger.PrimeStock(ctx, p.ID, p.Stock); err != nil {
			return err
		}
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
