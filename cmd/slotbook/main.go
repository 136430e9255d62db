package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/avelsher/slotbook/internal/consumer"
	"github.com/avelsher/slotbook/internal/handlers"
	"github.com/avelsher/slotbook/internal/inbox"
	"github.com/avelsher/slotbook/internal/notifier"
	"github.com/avelsher/slotbook/internal/notifier/email"
	"github.com/avelsher/slotbook/internal/notifier/sms"
	"github.com/avelsher/slotbook/internal/outbox"
	"github.com/avelsher/slotbook/internal/scheduling"
	"github.com/avelsher/slotbook/internal/storage/postgres"
	"github.com/avelsher/slotbook/libs/config"
	"github.com/avelsher/slotbook/libs/db"
	"github.com/avelsher/slotbook/libs/httpx"
	"github.com/avelsher/slotbook/libs/kafkax"
	otelx "github.com/avelsher/slotbook/libs/otel"
	"github.com/avelsher/slotbook/libs/runtime"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	service := config.String("SERVICE_NAME", "slotbook")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	loc, err := time.LoadLocation(config.String("BUSINESS_TIMEZONE", "America/New_York"))
	if err != nil {
		logger.Error("invalid BUSINESS_TIMEZONE", "err", err)
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	apptRepo := postgres.NewAppointmentRepository(pool)
	rulesRepo := postgres.NewAvailabilityRepository(pool)
	blocksRepo := postgres.NewBlockedTimeRepository(pool)
	employeeRepo := postgres.NewEmployeeRepository(pool)
	adminRepo := postgres.NewAdminUserRepository(pool)
	notificationLog := postgres.NewNotificationLog(pool)

	if adminEmail := strings.TrimSpace(config.String("ADMIN_EMAIL", "")); adminEmail != "" {
		password := config.String("ADMIN_PASSWORD", "")
		if password == "" {
			logger.Warn("ADMIN_EMAIL set without ADMIN_PASSWORD; skipping admin bootstrap")
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				panic(err)
			}
			if err := adminRepo.Ensure(ctx, adminEmail, string(hash)); err != nil {
				logger.Error("admin bootstrap failed", "err", err)
			}
		}
	}

	baseURL := strings.TrimRight(config.String("PUBLIC_BASE_URL", "http://localhost:8080"), "/")
	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@slotbook.local"),
	)

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "webhook":
		smsSender = sms.NewWebhookSender(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", ""))
	default:
		smsSender = sms.NewNoopSender()
	}
	dispatcher := notifier.NewDispatcher(logger, emailSender, smsSender, notificationLog, baseURL,
		config.String("ADMIN_ALERT_EMAIL", config.String("ADMIN_EMAIL", "")))

	brokers := config.String("KAFKA_BROKERS", "")
	var apptNotifier scheduling.Notifier
	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkax.SplitBrokers(brokers) != nil {
		// Staged delivery: appointment events go through the outbox to Kafka
		// and come back to the dispatcher via the consumer.
		outboxRepo := outbox.NewRepository(pool)
		apptNotifier = notifier.NewOutboxNotifier(pool, outboxRepo)
		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)

		inboxRepo := inbox.NewRepository(pool)
		groupID := config.String("KAFKA_GROUP_ID", "slotbook")
		for _, topic := range []string{
			outbox.EventBooked,
			outbox.EventConfirmed,
			outbox.EventCancelled,
			outbox.EventNeedsReschedule,
			outbox.EventEmployeeAssigned,
		} {
			eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
				Brokers: brokers,
				GroupID: groupID,
				Topic:   topic,
			}, dispatcher.Handle)
			go eventConsumer.Run(ctx)
		}
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Info("kafka brokers not configured; sending notifications in-process")
		direct := notifier.NewDirectNotifier(dispatcher)
		defer direct.Wait()
		apptNotifier = direct
	}

	svc := scheduling.New(apptRepo, rulesRepo, blocksRepo, employeeRepo, apptNotifier, scheduling.NewSystemClock(loc), loc, logger)

	publicHandler := handlers.NewPublicHandler(svc, logger, loc)
	adminHandler := handlers.NewAdminHandler(svc, logger, loc)
	authHandler := handlers.NewAuthHandler(adminRepo, logger, jwtSecret, config.Seconds("TOKEN_TTL_SECONDS", 12*time.Hour))

	// Public booking traffic is rate limited per client IP; Redis makes the
	// window shared across replicas when configured.
	publicLimit := config.Int("PUBLIC_RATE_LIMIT", 30)
	publicWindow := config.Seconds("PUBLIC_RATE_WINDOW_SECONDS", time.Minute)
	var limit httpx.Middleware
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		failOpen := config.Bool("RATE_LIMIT_FAIL_OPEN", true)
		limit = httpx.NewRedisRateLimiter(rdb, publicLimit, publicWindow, service).Middleware(logger, failOpen)
	} else {
		limit = httpx.NewRateLimiter(publicLimit, publicWindow).Middleware()
	}

	public := func(h http.HandlerFunc) http.Handler {
		return limit(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return handlers.RequireAdmin(h, jwtSecret)
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/api/v1/public/dates", public(publicHandler.Dates))
	mux.Handle("/api/v1/public/slots", public(publicHandler.Slots))
	mux.Handle("/api/v1/public/book", public(publicHandler.Book))
	mux.Handle("/api/v1/public/cancel", public(publicHandler.Cancel))

	mux.HandleFunc("/api/v1/admin/login", authHandler.Login)
	mux.Handle("/api/v1/admin/appointments", admin(adminHandler.Appointments))
	mux.Handle("/api/v1/admin/appointments/status", admin(adminHandler.UpdateStatus))
	mux.Handle("/api/v1/admin/appointments/assign", admin(adminHandler.Assign))
	mux.Handle("/api/v1/admin/availability", admin(adminHandler.Availability))
	mux.Handle("/api/v1/admin/availability/update", admin(adminHandler.UpdateAvailability))
	mux.Handle("/api/v1/admin/availability/delete", admin(adminHandler.DeleteAvailability))
	mux.Handle("/api/v1/admin/blocked", admin(adminHandler.Blocked))
	mux.Handle("/api/v1/admin/blocked/update", admin(adminHandler.UpdateBlocked))
	mux.Handle("/api/v1/admin/blocked/delete", admin(adminHandler.DeleteBlocked))
	mux.Handle("/api/v1/admin/employees", admin(adminHandler.Employees))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		httpHandler = httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         config.Seconds("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		})(httpHandler)
	}
	httpHandler = otelhttp.NewHandler(httpHandler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
