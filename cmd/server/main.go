// Program entrypoint and HTTP/metrics server.
//
// Boot sequence (serve):
//   1) config.Load()            - read .env + process environment
//   2) open gorm/postgres pool, wire internal/store.Repository
//   3) start MomentumWorker ticker in the background
//   4) start the REST API + Prometheus /metrics + /healthz server
//   5) block on context cancellation, then shut down both gracefully
//
// Subcommands:
//   serve     Run the worker and HTTP server (default when no subcommand given)
//   migrate   Apply pending schema changes and exit
//   backfill  Re-derive currency_swap_balances.initial_balance for accounts
//             that predate balance tracking, and exit
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chidi150c/tradebackend/internal/config"
	"github.com/chidi150c/tradebackend/internal/httpapi"
	"github.com/chidi150c/tradebackend/internal/momentum"
	"github.com/chidi150c/tradebackend/internal/ratelimit"
	"github.com/chidi150c/tradebackend/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "tradebackend",
		Short: "Multi-exchange momentum and triangular-arbitrage trading backend",
	}
	root.AddCommand(serveCmd(), migrateCmd(), backfillCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the momentum worker and REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema changes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := store.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Println("migrate: schema up to date")
			return nil
		},
	}
}

func backfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Set initial_balance = available for balances recorded before balance tracking existed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			res := db.Exec(`UPDATE currency_swap_balances SET initial_balance = available WHERE initial_balance = '' OR initial_balance IS NULL`)
			if res.Error != nil {
				return fmt.Errorf("backfill: %w", res.Error)
			}
			log.Printf("backfill: updated %d rows", res.RowsAffected)
			return nil
		},
	}
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// credentialKey returns the AES-256-GCM key used to encrypt stored exchange
// credentials, or nil to run with the repository's plaintext dev/test
// fallback (spec §9: credentials at rest).
func credentialKey() []byte {
	key := os.Getenv("CREDENTIAL_ENCRYPTION_KEY")
	if len(key) != 32 {
		return nil
	}
	return []byte(key)
}

func runServe() error {
	cfg := config.Load()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if err := store.AutoMigrate(db); err != nil {
		log.Printf("serve: auto-migrate skipped: %v", err)
	}

	// pgxpool backs a dedicated health-check connection, independent of
	// gorm's own pool, so /healthz reflects the database's liveness even if
	// gorm's pool is saturated by request traffic.
	healthPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("health pool: %w", err)
	}
	defer healthPool.Close()

	repo := store.New(db, credentialKey())
	rateLimits := ratelimit.NewExecutionState(cfg.CooldownFor)

	worker := momentum.NewWorker(repo, cfg)
	server := httpapi.New(repo, rateLimits)

	mux := http.NewServeMux()
	mux.Handle("/", server.Router())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := healthPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db unreachable\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})

	httpSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go worker.Start(ctx)

	go func() {
		log.Printf("serving API + metrics on :%d", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
	defer c()
	return httpSrv.Shutdown(shutdownCtx)
}
