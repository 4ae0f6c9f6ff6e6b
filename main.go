package main

import (
	"context"
	"errors"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zedbites/backoffice/config"
	"github.com/zedbites/backoffice/database"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
	"github.com/zedbites/backoffice/router"
	"github.com/zedbites/backoffice/services"
	"github.com/zedbites/backoffice/utils"
	"gorm.io/gorm"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}
	if cfg.AdminEmail != "" {
		created, err := database.EnsureAdmin(db, "Administrator", cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to bootstrap admin: %v", err)
		}
		if created {
			utils.InfoLogger.WithField("email", cfg.AdminEmail).Info("admin account created")
		}
	}

	log := utils.InfoLogger
	hub := realtime.NewHub(log)
	notifier := services.NewNotificationService(db, hub, log)

	// Order board: local view kept in step with the change journal
	orderSync := services.NewOrderSync(services.NewGormOrderStore(db), notifier, hub, cfg.TimeZone, log)
	if _, err := orderSync.FetchAll(context.Background()); err != nil {
		utils.ErrorLogger.Printf("Initial order fetch failed, board starts empty: %v", err)
	}

	handlers := []services.ChangeHandler{orderSync}
	if cfg.RabbitMQURL != "" {
		instance := uuid.NewString()
		publisher, err := services.NewChangePublisher(cfg.RabbitMQURL, instance, log)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to start change publisher: %v", err)
		}
		defer publisher.Close()
		handlers = append(handlers, publisher)

		subscriber, err := services.NewChangeSubscriber(cfg.RabbitMQURL, instance, orderSync, log)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to start change subscriber: %v", err)
		}
		defer subscriber.Close()
		subCtx, stopSub := context.WithCancel(context.Background())
		defer stopSub()
		go func() {
			if err := subscriber.Run(subCtx); err != nil {
				utils.ErrorLogger.Printf("Change subscriber stopped: %v", err)
			}
		}()
	}
	monitor := services.NewChangeMonitor(db, log, handlers...)
	monitor.Interval = cfg.ChangePollInterval
	monitor.Start()
	defer monitor.Stop()

	trackers := services.NewTrackerRegistry(orderSync, notifier, cfg.TrackerMinInterval, log)
	defer trackers.StopAll()

	// Reporting
	metrics, err := newMetrics(cfg, db)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up metrics: %v", err)
	}
	mailer, err := newMailer(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up mailer: %v", err)
	}
	emails := services.NewGormEmailStore(db)
	jobs := services.Jobs{}
	for _, rt := range []models.ReportType{models.ReportDaily, models.ReportWeekly} {
		jobs[rt] = services.NewReportJob(rt, metrics, emails, mailer, hub, cfg.Mail.From, cfg.Reports.SendConcurrency, log)
	}

	scheduler := services.NewScheduler(cfg.TimeZone, log)
	if err := services.ScheduleReports(scheduler, jobs, cfg.Reports.DailyCron, cfg.Reports.WeeklyCron); err != nil {
		utils.ErrorLogger.Fatalf("Failed to schedule reports: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := router.SetupRouter(router.Deps{
		DB:           db,
		Tokens:       utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Hub:          hub,
		Notifier:     notifier,
		Sync:         orderSync,
		Trackers:     trackers,
		Metrics:      metrics,
		Emails:       emails,
		Jobs:         jobs,
		Loc:          cfg.TimeZone,
		CORSOrigin:   cfg.CORSOrigin,
		APIRateLimit: cfg.APIRateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Server shutdown: %v", err)
	}
}

func newMetrics(cfg *config.Config, db *gorm.DB) (services.MetricsProvider, error) {
	if cfg.Reports.Metrics == "random" {
		seed := uint64(time.Now().UnixNano())
		return services.NewRandomMetrics(rand.NewPCG(seed, seed>>1), cfg.TimeZone), nil
	}
	return services.NewStoreMetrics(db, cfg.TimeZone)
}

func newMailer(cfg *config.Config) (services.Mailer, error) {
	switch cfg.Mail.Driver {
	case "http":
		return services.NewHTTPMailer(cfg.Mail.APIURL, cfg.Mail.APIKey), nil
	case "smtp":
		return services.NewSMTPMailer(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPUser, cfg.Mail.SMTPPassword)
	default:
		return &services.LogMailer{Log: utils.InfoLogger}, nil
	}
}
