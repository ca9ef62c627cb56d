package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"h2oclear/api/auth"
	"h2oclear/api/config"
	"h2oclear/api/database"
	"h2oclear/api/device"
	"h2oclear/api/handlers"
	"h2oclear/api/session"
	"h2oclear/api/store"
	"h2oclear/api/telemetry"
	"h2oclear/api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	archive, err := openArchive(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s archive: %v", cfg.Archive, err)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			log.Printf("Error closing archive: %v", err)
		}
	}()

	var authenticator auth.Authenticator = auth.Simulated{Delay: cfg.LoginDelay}
	var operators handlers.OperatorCreator
	if cfg.AuthMode == config.AuthPostgres {
		dbClient, err := database.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
		defer dbClient.Close()

		operatorStore := store.NewOperatorStore(dbClient.DB)
		if err := operatorStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to prepare operators table: %v", err)
		}
		authenticator = auth.Operators{Store: operatorStore, Delay: cfg.LoginDelay}
		operators = operatorStore
	}

	sessions := session.NewManager(session.Options{
		Authenticator:  authenticator,
		Connector:      device.Simulated{Delay: cfg.PairingDelay},
		Archive:        archive,
		Generator:      telemetry.NewGenerator(nil, nil),
		FeedInterval:   cfg.FeedInterval,
		StatusInterval: cfg.StatusInterval,
		RedirectDelay:  cfg.RedirectDelay,
		CheckOrigin:    allowOrigin(cfg.FrontendOrigin),
	}, cfg.SessionTTL)
	defer sessions.Close()

	reapCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go sessions.Run(reapCtx)

	r := handlers.NewRouter(handlers.RouterConfig{
		Sessions:       sessions,
		Tokens:         utils.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL),
		Archive:        archive,
		Operators:      operators,
		OperatorAPIKey: cfg.OperatorAPIKey,
		FrontendOrigin: cfg.FrontendOrigin,
		SecureCookie:   cfg.ReleaseMode,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("H2OClear API starting on http://localhost:%s (archive=%s, auth=%s)", cfg.Port, cfg.Archive, cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("H2OClear API failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

func openArchive(cfg config.Config) (store.Archive, error) {
	switch cfg.Archive {
	case config.ArchiveSQLite:
		db, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		archive, err := store.NewSQLiteArchive(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return archive, nil
	case config.ArchiveClickHouse:
		chClient, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			return nil, err
		}
		archive := store.NewClickHouseArchive(chClient)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := archive.EnsureSchema(ctx); err != nil {
			archive.Close()
			return nil, err
		}
		return archive, nil
	default:
		return store.NopArchive{}, nil
	}
}

// allowOrigin accepts websocket upgrades from the configured front end and
// from clients that send no Origin header.
func allowOrigin(origin string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		o := r.Header.Get("Origin")
		return o == "" || origin == "*" || o == origin
	}
}
