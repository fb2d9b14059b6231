package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	_ "intihelp/docs"
	"intihelp/internal/config"
	"intihelp/internal/handlers"
	"intihelp/internal/lock"
	"intihelp/internal/logging"
	"intihelp/internal/middleware"
	"intihelp/internal/pdf"
	"intihelp/internal/pricing"
	"intihelp/internal/repositories"
	"intihelp/internal/repositories/memory"
	"intihelp/internal/routes"
	"intihelp/internal/scheduler"
	"intihelp/internal/services"
	"intihelp/internal/storage"
)

// Repos is the full set of persistence ports.
type Repos struct {
	Users          repositories.UserRepository
	PasswordResets repositories.PasswordResetRepository
	TelegramLinks  repositories.TelegramLinkRepository
	Catalog        repositories.CatalogRepository
	Pricing        repositories.PricingRepository
	Coupons        repositories.CouponRepository
	Files          repositories.FileRepository
	Tasks          repositories.TaskRepository
	Groups         repositories.GroupRepository
	Payments       repositories.PaymentRepository
}

func postgresRepos(db *sql.DB) Repos {
	return Repos{
		Users:          repositories.NewUserRepository(db),
		PasswordResets: repositories.NewPasswordResetRepository(db),
		TelegramLinks:  repositories.NewTelegramLinkRepository(db),
		Catalog:        repositories.NewCatalogRepository(db),
		Pricing:        repositories.NewPricingRepository(db),
		Coupons:        repositories.NewCouponRepository(db),
		Files:          repositories.NewFileRepository(db),
		Tasks:          repositories.NewTaskRepository(db),
		Groups:         repositories.NewGroupRepository(db),
		Payments:       repositories.NewPaymentRepository(db),
	}
}

// MemoryRepos backs every port with one in-process store.
func MemoryRepos(s *memory.Store) Repos {
	return Repos{
		Users:          s.Users(),
		PasswordResets: s.PasswordResets(),
		TelegramLinks:  s.TelegramLinks(),
		Catalog:        s.Catalog(),
		Pricing:        s.Pricing(),
		Coupons:        s.Coupons(),
		Files:          s.Files(),
		Tasks:          s.Tasks(),
		Groups:         s.Groups(),
		Payments:       s.Payments(),
	}
}

type App struct {
	cfg       *config.Config
	Router    *gin.Engine
	server    *http.Server
	scheduler *scheduler.Scheduler
	notifier  services.Notifier
	telegram  *services.TelegramService
	closers   []func()
}

// New wires repositories, services and handlers according to cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	// === Repos ===
	var repos Repos
	switch cfg.Database.Driver {
	case "memory":
		logging.Warn("[app] using in-memory storage, data is lost on exit")
		repos = MemoryRepos(memory.New())
	default:
		db, err := repositories.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := db.Close(); err != nil {
				logging.Error("[app] close db", "error", err)
			}
		})
		repos = postgresRepos(db)
	}

	// === Locker ===
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Redis.Addr != "" {
		client, err := lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		locker = lock.NewRedisLocker(client, "intihelp:lock:", cfg.Redis.LockTTL)
		logging.Info("[app] redis locker enabled", "addr", cfg.Redis.Addr)
	}

	// === Services ===
	feeRate, err := cfg.FeeRate()
	if err != nil {
		a.Close()
		return nil, err
	}
	telegram, err := services.NewTelegramService(cfg.Telegram.BotToken)
	if err != nil {
		logging.Error("[app] telegram disabled", "error", err)
	}
	a.telegram = telegram

	a.Router, a.notifier = buildRouter(cfg, repos, locker, telegram, pricing.NewEngine(feeRate))

	a.scheduler = scheduler.New()
	if cfg.Reminders.Enabled {
		reminders := services.NewReminderService(repos.Tasks, a.notifier, cfg.Reminders.Window, cfg.Reminders.BatchSize)
		err := a.scheduler.Add("due-reminders", cfg.Reminders.Schedule, func(ctx context.Context) error {
			_, err := reminders.Run(ctx)
			return err
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func buildRouter(cfg *config.Config, repos Repos, locker lock.Locker, telegram *services.TelegramService, engine *pricing.Engine) (*gin.Engine, services.Notifier) {
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	notifier := services.NewNotificationService(repos.Users, emailService, telegram)

	store := storage.NewLocal(cfg.Files.RootDir, cfg.MaxUploadBytes())
	pdfGen := pdf.NewDocumentGenerator(cfg.Files.FontPath)

	userService := services.NewUserService(repos.Users, repos.Catalog, repos.Pricing, repos.TelegramLinks,
		emailService, authService, cfg.Auth.RefreshTTL, cfg.Telegram.LinkTTL)
	resetService := services.NewPasswordResetService(repos.Users, repos.PasswordResets, emailService, authService)
	catalogService := services.NewCatalogService(repos.Catalog)
	couponService := services.NewCouponService(repos.Coupons)
	pricingService := services.NewPricingService(repos.Pricing, repos.Catalog, couponService, engine)
	fileService := services.NewFileService(repos.Files, repos.Tasks, repos.Groups, repos.Users, store)
	taskService := services.NewTaskService(repos.Tasks, repos.Groups, repos.Users, pricingService, fileService, locker, notifier)
	paymentService := services.NewPaymentService(repos.Payments, repos.Tasks, repos.Groups, repos.Users, fileService, locker, notifier, pdfGen)
	dashboardService := services.NewDashboardService(repos.Tasks)

	// === Handlers ===
	var integrationsHandler *handlers.IntegrationsHandler
	if telegram.Enabled() {
		integrationsHandler = handlers.NewIntegrationsHandler(telegram, userService)
	}

	// === Gin ===
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigin))
	router.Use(middleware.RateLimiter(cfg.Server.RateLimit, time.Minute))
	router.MaxMultipartMemory = 8 << 20

	routes.SetupRoutes(
		router,
		authService,
		handlers.NewAuthHandler(userService, resetService),
		handlers.NewUserHandler(userService),
		handlers.NewCatalogHandler(catalogService),
		handlers.NewTaskHandler(taskService, pricingService, fileService),
		handlers.NewAssistantHandler(pricingService, dashboardService),
		handlers.NewPaymentHandler(paymentService, fileService),
		handlers.NewCouponHandler(couponService),
		handlers.NewFileHandler(fileService),
		integrationsHandler,
	)
	return router, notifier
}

// Run serves HTTP and runs scheduled jobs until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Telegram.WebhookURL != "" {
		if err := a.telegram.SetWebhook(a.cfg.Telegram.WebhookURL); err != nil {
			logging.Error("[app] telegram webhook", "error", err)
		}
	}

	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	a.scheduler.Start(jobCtx)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		logging.Info("[app] listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("[app] shutting down")
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logging.Error("[app] http shutdown", "error", err)
	}
	stopJobs()
	a.scheduler.Wait()
	a.notifier.Wait()
	return runErr
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Migrate applies the database schema.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.Driver == "memory" {
		return errors.New("the memory driver has no schema to migrate")
	}
	db, err := repositories.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return repositories.Migrate(ctx, db)
}
