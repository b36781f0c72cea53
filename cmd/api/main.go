package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"medsched/cmd/internal/config"
	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
	"medsched/cmd/internal/domain/store"
	"medsched/cmd/internal/domain/store/repository"
	"medsched/cmd/internal/mw"
	"medsched/cmd/internal/notification"
	"medsched/cmd/internal/routes"
	"medsched/cmd/internal/service"
	"medsched/cmd/internal/utils/validators"
)

func main() {
	validate := validator.New()
	registerValidators(validate)

	// A missing .env is fine in production, where the environment is real.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	db, err := store.Open(store.Options{
		DSN:                    cfg.Database.DSN,
		MaxOpenConns:           cfg.Database.MaxOpenConns,
		MaxIdleConns:           cfg.Database.MaxIdleConns,
		ConnMaxLifetimeMinutes: cfg.Database.ConnMaxLifetimeMinutes,
	})
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("failed to run migrations: ", err)
	}

	dayStart, err := schedule.ParseClock(cfg.Clinic.DayStart)
	if err != nil {
		log.Fatal("invalid clinic day_start: ", err)
	}
	dayEnd, err := schedule.ParseClock(cfg.Clinic.DayEnd)
	if err != nil {
		log.Fatal("invalid clinic day_end: ", err)
	}
	clinic := service.ClinicDay{
		Day:             schedule.Range{Start: dayStart, End: dayEnd},
		SlotStepMinutes: cfg.Clinic.SlotStepMinutes,
		Location:        cfg.Clinic.Location,
	}

	// Repositories
	apptRepo := repository.NewAppointmentRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	breakRepo := repository.NewBreakRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Notification worker pool
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, db, &webpush.Options{
		Subscriber:      cfg.Push.Subject,
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		TTL:             cfg.Push.TTL,
	})
	pool.Start(ctx)

	// Services
	waitlistService := service.NewWaitlistService(waitlistRepo, apptRepo, patientRepo, validate, cfg.Waitlist.OfferTTL)
	apptService := service.NewAppointmentService(apptRepo, employeeRepo, patientRepo, resourceRepo, breakRepo, waitlistService, validate, clinic)
	breakService := service.NewBreakService(breakRepo, employeeRepo, validate)
	directoryService := service.NewDirectoryService(employeeRepo, patientRepo, subscriptionRepo, validate)
	reminderService := service.NewReminderService(reminderRepo, cfg.Clinic.Location, func(appt *entity.Appointment, tier string) {
		pool.Dispatch(notification.Job{Appointment: appt, Tier: tier})
	})

	go runSweeper(ctx, cfg.Reminders.SweepInterval, cfg.Clinic.Location, reminderService, waitlistService)

	// Routes
	apptRoutes := routes.NewAppointmentDefault(apptService)
	breakRoutes := routes.NewBreakDefault(breakService)
	waitlistRoutes := routes.NewWaitlistDefault(waitlistService)
	directoryRoutes := routes.NewDirectoryDefault(directoryService)
	gatewayRoutes := routes.NewGatewayDefault(apptService, waitlistService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst))

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	slotCache := cache.New(cacheTTL, 2*cacheTTL)

	// Staff API. Auth runs group-level so cached routes check credentials
	// before a cache hit can short-circuit the handler.
	api := e.Group("/api", mw.Auth)
	api.GET("/appointments", apptRoutes.GetAppointments)
	api.POST("/appointments", apptRoutes.CreateAppointment)
	api.PATCH("/appointments/:id", apptRoutes.UpdateAppointment)
	api.DELETE("/appointments/:id", apptRoutes.CancelAppointment)
	api.GET("/slots", apptRoutes.SearchSlots, mw.Cache(slotCache, cacheTTL))

	api.GET("/breaks", breakRoutes.GetBreaks)
	api.POST("/breaks", breakRoutes.CreateBreak)
	api.DELETE("/breaks/:id", breakRoutes.DeleteBreak)

	api.GET("/waitlist", waitlistRoutes.GetEntries)
	api.POST("/waitlist", waitlistRoutes.Join)
	api.POST("/waitlist/:ref/confirm", waitlistRoutes.Confirm)
	api.DELETE("/waitlist/:id", waitlistRoutes.Cancel)

	api.GET("/employees", directoryRoutes.GetEmployees)
	api.GET("/patients/:id", directoryRoutes.GetPatient)
	api.POST("/patients", directoryRoutes.CreatePatient)
	api.PUT("/subscriptions", directoryRoutes.Subscribe)
	api.DELETE("/subscriptions", directoryRoutes.Unsubscribe)

	// Bot gateway
	gateway := e.Group("/gateway", mw.GatewayAuth(os.Getenv("GATEWAY_SECRET")))
	gateway.GET("/slots", gatewayRoutes.SearchSlots, mw.Cache(slotCache, cacheTTL))
	gateway.GET("/appointments", gatewayRoutes.ListAppointments)
	gateway.POST("/appointments", gatewayRoutes.BookAppointment)
	gateway.POST("/appointments/:ref/cancel", gatewayRoutes.CancelAppointment)
	gateway.POST("/waitlist", gatewayRoutes.JoinWaitlist)
	gateway.POST("/waitlist/:ref/confirm", gatewayRoutes.ConfirmOffer)
	gateway.PUT("/subscriptions", directoryRoutes.Subscribe)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}

// runSweeper periodically fires due reminders and expires lapsed waitlist
// offers.
func runSweeper(ctx context.Context, interval time.Duration, loc *time.Location, reminders *service.DefaultReminderService, waitlist *service.DefaultWaitlistService) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			reminders.Sweep(now)
			waitlist.Sweep(now, now.In(loc).Format("2006-01-02"))
		case <-ctx.Done():
			return
		}
	}
}

func registerValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("dateonly", validators.IsDateOnly)
	_ = validate.RegisterValidation("clocktime", validators.IsClockTime)
}
