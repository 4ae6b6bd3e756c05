package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"darkGuardAPI/handlers"
	"darkGuardAPI/internal/config"
	"darkGuardAPI/internal/dashboard"
	"darkGuardAPI/internal/datastore"
	"darkGuardAPI/internal/identity"
	"darkGuardAPI/internal/notification"
	"darkGuardAPI/internal/toast"
	"darkGuardAPI/internal/workers"
	"darkGuardAPI/middleware"
	"darkGuardAPI/services"

	_ "net/http/pprof"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := migrate(); err != nil {
			log.Fatal(err)
		}
		log.Println("Schema applied")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	clerk.SetKey(cfg.ClerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbPool, err := connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	middleware.InitPrometheus()
	store := datastore.New(dbPool,
		datastore.WithRowOwner(services.PlansTable, "user_id"),
		datastore.WithRowOwner(services.DevicesTable, "user_id"),
		datastore.WithObserver(middleware.ObserveStoreOp),
	)

	planService := services.NewSubscriptionPlanService(store)
	deviceService := services.NewDeviceService(store)
	clerkIdentity := identity.NewClerk()
	guard := dashboard.NewGuard(10 * time.Second)
	toastCookie := toast.NewCookie(cfg.ToastSecret, cfg.SecureCookies)

	scheduler := startReminders(cfg, planService, deviceService, clerkIdentity)

	marketingHandler := handlers.NewMarketingHandler(clerkIdentity, toastCookie)
	authHandler := handlers.NewAuthHandler(clerkIdentity, toastCookie, cfg.ClerkPublishableKey)
	dashboardHandler := handlers.NewDashboardHandler(planService, clerkIdentity, guard, toastCookie, cfg.ClerkPublishableKey)
	subscriptionHandler := handlers.NewSubscriptionHandler(planService, guard)
	deviceHandler := handlers.NewDeviceHandler(deviceService)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.CleanupVisitors(rootCtx)

	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret)(http.DefaultServeMux))

	assetsDir := "./assets"
	fs := http.FileServer(http.Dir(assetsDir))
	r.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", fs))
	log.Printf("Serving static files from %s at /assets/", assetsDir)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "darkguard"}`))
	}).Methods("GET")

	if cfg.ClerkWebhookSecret != "" {
		webhookHandler, err := handlers.NewWebhookHandler(cfg.ClerkWebhookSecret, planService, deviceService)
		if err != nil {
			log.Fatal(err)
		}
		r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")
	} else {
		log.Println("CLERK_WEBHOOK_SECRET not set, account cleanup webhook disabled")
	}

	// -------------------------------------------------------------------------
	// API V1 (BEARER TOKEN)
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.ClerkAuthMiddleware)

	api.HandleFunc("/subscriptions", subscriptionHandler.List).Methods("GET")
	api.HandleFunc("/subscriptions", subscriptionHandler.Create).Methods("POST")
	api.HandleFunc("/subscriptions/{id}", subscriptionHandler.Update).Methods("PUT")
	api.HandleFunc("/subscriptions/{id}", subscriptionHandler.Delete).Methods("DELETE")
	api.HandleFunc("/devices", deviceHandler.Register).Methods("POST")

	// -------------------------------------------------------------------------
	// PAGES (CLERK SESSION COOKIE)
	// -------------------------------------------------------------------------
	pages := r.PathPrefix("/").Subrouter()
	pages.Use(middleware.SessionMiddleware)

	pages.HandleFunc("/", marketingHandler.Landing).Methods("GET")
	pages.HandleFunc("/auth", authHandler.SignIn).Methods("GET")
	pages.HandleFunc("/dashboard", dashboardHandler.Show).Methods("GET")
	pages.HandleFunc("/dashboard/subscriptions", dashboardHandler.Create).Methods("POST")
	pages.HandleFunc("/dashboard/subscriptions/{id}", dashboardHandler.Update).Methods("POST")
	pages.HandleFunc("/dashboard/subscriptions/{id}/delete", dashboardHandler.Delete).Methods("POST")
	pages.HandleFunc("/sign-out", dashboardHandler.SignOut).Methods("POST")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)
	recovery := gorillaHandlers.RecoveryHandler(gorillaHandlers.PrintRecoveryStack(true))

	port := ":" + cfg.Port
	server := http.Server{
		Addr:         port,
		Handler:      recovery(corsHandler(r)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	log.Println("Server shutdown complete")
}

// migrate applies the schema. It needs nothing but DATABASE_URL.
func migrate() error {
	dbURL, err := config.LoadDatabaseURL()
	if err != nil {
		return err
	}
	dbPool, err := connect(dbURL)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return datastore.Migrate(ctx, dbPool)
}

func connect(dbURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("Successfully connected to database")
	return pool, nil
}

// startReminders wires the renewal reminder job. A bad schedule disables it
// rather than the whole service.
func startReminders(cfg *config.Config, plans *services.SubscriptionPlanService, devices *services.DeviceService, people *identity.Clerk) *workers.ReminderScheduler {
	channels := workers.Channels{
		Devices: devices,
		Emails:  people,
		Mailer:  notification.NewEmailService(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppDomain),
	}

	fcmService, err := notification.NewFCMService(context.Background(), cfg.FCMServiceAccountJSON, cfg.FCMCredentialsFile)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		channels.Pusher = fcmService
		log.Println("FCM Push Provider initialized successfully")
	}

	scheduler := workers.NewReminderScheduler(plans, workers.NewReminderDispatcher(channels, 5), cfg.ReminderDays)
	if err := scheduler.Start(cfg.ReminderSchedule); err != nil {
		log.Printf("Warning: reminders disabled, bad schedule %q: %v", cfg.ReminderSchedule, err)
		scheduler.Stop()
		return nil
	}
	return scheduler
}
