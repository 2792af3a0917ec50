package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/smartcity/intersection/internal/delivery/http"
	"github.com/smartcity/intersection/internal/observability/metrics"
	"github.com/smartcity/intersection/internal/repository/postgres"
	"github.com/smartcity/intersection/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	appLogger := log.New(os.Stdout, "", log.LstdFlags)
	metrics.Init()

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := connectDatabase(ctx, cfg.DatabaseURL)
	if pool != nil {
		defer pool.Close()
		if cfg.MigrateOnStart {
			if err := postgres.MigrateUp(pool); err != nil {
				log.Fatalf("Migration error: %v", err)
			}
			if version, dirty, err := postgres.MigrateVersion(pool); err == nil {
				log.Printf("Schema at version %d (dirty=%v)", version, dirty)
			}
		}
	}

	// Dependency Injection: Repositories
	var timingRepo service.TimingRepository
	if pool != nil {
		timingRepo = postgres.NewPostgresRepository(pool)
	} else {
		timingRepo = postgres.NewMockRepository()
	}

	plan, err := service.LoadTimingPlan(ctx, timingRepo, cfg.IntersectionID)
	if err != nil {
		log.Printf("Warning: %v, using default timing plan", err)
		plan, _ = service.LoadTimingPlan(ctx, postgres.NewMockRepository(), cfg.IntersectionID)
	}
	plan = applyTimingOverrides(plan, cfg.Timing)
	if err := plan.Validate(); err != nil {
		log.Fatalf("Timing plan error: %v", err)
	}

	trafficLabels := loadLabels(ctx, timingRepo, cfg.Traffic.Model)

	// Dependency Injection: Services
	mockDetector := service.NewMockDetector(time.Now().UnixNano(), service.SystemClock())
	mlBridge := service.NewMLBridge(cfg.MLServiceURL, mockDetector)
	counter := service.NewVehicleCounter(trafficLabels, plan.Denylist)

	registry := service.NewRegistry()
	var closers []func() error

	trafficFeed, pushFeed, closeTraffic, err := buildTrafficFeed(cfg, mlBridge, counter)
	if err != nil {
		log.Fatalf("Traffic feed error: %v", err)
	}
	closers = append(closers, closeTraffic)

	trafficCtrl, err := service.NewTrafficController(service.ModeTraffic, plan, trafficFeed, service.SystemClock(), appLogger)
	if err != nil {
		log.Fatalf("Traffic controller error: %v", err)
	}
	if err := registry.Register(trafficCtrl); err != nil {
		log.Fatalf("Registry error: %v", err)
	}

	if cfg.Helmet.Source != "" {
		source, err := service.NewDirectorySource(cfg.Helmet.Source, cfg.Helmet.FrameInterval)
		if err != nil {
			log.Fatalf("Helmet source error: %v", err)
		}
		helmetFeed := service.NewHelmetFeed(source, mlBridge, cfg.Helmet.Model, cfg.LoopSources, func() {
			metrics.IncFeedEvent(service.ModeHelmet, metrics.FeedRewind)
		})
		closers = append(closers, helmetFeed.Close)

		helmetCtrl, err := service.NewHelmetController(service.ModeHelmet, helmetFeed, cfg.Helmet.Cooldown, cfg.Helmet.Tick, service.SystemClock(), appLogger)
		if err != nil {
			log.Fatalf("Helmet controller error: %v", err)
		}
		if err := registry.Register(helmetCtrl); err != nil {
			log.Fatalf("Registry error: %v", err)
		}
	}

	if err := registry.SetActive(cfg.DefaultMode); err != nil {
		log.Printf("Warning: %v, keeping mode %q", err, registry.ActiveKey())
	}

	checks := map[string]http.HealthChecker{
		"database": timingRepo,
		"detector": mlBridge,
	}
	var pusher http.SamplePusher
	if pushFeed != nil {
		pusher = pushFeed
	}
	handler := http.NewHandler(registry, pusher, checks)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Intersection Controller v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, handler)

	// Worker loops
	runCtx, stopWorkers := context.WithCancel(context.Background())
	registry.Start(runCtx, func(key string, err error) {
		if err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Printf("controller %s exited: %v", key, err)
			return
		}
		appLogger.Printf("controller %s exited", key)
	})

	// Graceful shutdown
	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		log.Printf("Server starting on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	stopWorkers()
	registry.Wait()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("Failed to release source: %v", err)
		}
	}
	log.Println("Server exited gracefully")
}

func connectDatabase(ctx context.Context, url string) *pgxpool.Pool {
	if url == "" {
		log.Println("DATABASE_URL not set, running with built-in timing plan")
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		log.Printf("Warning: Could not connect to database: %v", err)
		log.Println("Running with built-in timing plan")
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		log.Printf("Warning: Database unreachable: %v", err)
		log.Println("Running with built-in timing plan")
		pool.Close()
		return nil
	}
	log.Println("Connected to PostgreSQL")
	return pool
}

func loadLabels(ctx context.Context, repo service.TimingRepository, model string) map[int]string {
	labels, err := repo.GetClassLabels(ctx, model)
	if err != nil || len(labels) == 0 {
		if err != nil {
			log.Printf("Warning: %v, using built-in class labels", err)
		}
		labels, _ = postgres.NewMockRepository().GetClassLabels(ctx, model)
	}
	return labels
}

// buildTrafficFeed wires camera sources through the detector, or a push feed
// when ingest is enabled or no cameras are configured.
func buildTrafficFeed(cfg *Config, detector service.Detector, counter *service.VehicleCounter) (service.SampleFeed, *service.PushFeed, func() error, error) {
	if cfg.PushEnabled || cfg.Traffic.SourceA == "" || cfg.Traffic.SourceB == "" {
		log.Println("Traffic controller fed by sample ingest")
		feed := service.NewPushFeed(cfg.PushBuffer)
		return feed, feed, feed.Close, nil
	}

	sourceA, err := service.NewDirectorySource(cfg.Traffic.SourceA, cfg.Traffic.FrameInterval)
	if err != nil {
		return nil, nil, nil, err
	}
	sourceB, err := service.NewDirectorySource(cfg.Traffic.SourceB, cfg.Traffic.FrameInterval)
	if err != nil {
		return nil, nil, nil, err
	}
	feed := service.NewDetectorFeed(sourceA, sourceB, detector, cfg.Traffic.Model, counter, cfg.LoopSources, func() {
		metrics.IncFeedEvent(service.ModeTraffic, metrics.FeedRewind)
	})
	return feed, nil, feed.Close, nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
