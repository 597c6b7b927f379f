package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aulanet/student-notifier/internal/config"
	"github.com/aulanet/student-notifier/internal/email"
	httpx "github.com/aulanet/student-notifier/internal/http"
	"github.com/aulanet/student-notifier/internal/metrics"
	"github.com/aulanet/student-notifier/internal/notify"
	"github.com/aulanet/student-notifier/internal/observability/logger"
	"github.com/aulanet/student-notifier/internal/rate"
	"github.com/aulanet/student-notifier/internal/store/pg"
	migrations "github.com/aulanet/student-notifier/migrations/postgres"

	rdb "github.com/redis/go-redis/v9"
)

func main() {
	// .env opcional: en prod todo viene por variables de entorno reales.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "notifier",
		Short: "Despachador de notificaciones académicas por email",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "ruta al config.yaml (opcional)")

	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(dispatchCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "student-notifier",
	})
	return cfg, nil
}

// buildDispatcher conecta el store y arma el orquestador con sus dependencias.
func buildDispatcher(ctx context.Context, cfg *config.Config) (*notify.Dispatcher, func(), error) {
	st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("store: %w", err)
	}

	// Schema del ledger embebido: se aplica en cada arranque, idempotente.
	applied, err := st.Migrate(ctx, migrations.FS, migrations.Dir)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.L().Info("migraciones aplicadas", logger.Count(len(applied)))
	}

	sender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.FromName)
	sender.TLSMode = cfg.SMTP.TLS
	sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify

	d := notify.New(notify.Config{
		Reader:         st,
		Ledger:         st,
		Sender:         sender,
		SMTPConfigured: cfg.SMTPConfigured(),
		SendDelay:      cfg.Dispatch.SendDelay,
	})
	return d, st.Close, nil
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP con el trigger de despacho",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := metrics.Register(nil); err != nil {
				return fmt.Errorf("metrics: %w", err)
			}

			dispatcher, cleanup, err := buildDispatcher(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var limiter rate.Limiter
			if cfg.Rate.Enabled {
				if cfg.Rate.Redis.Addr != "" {
					client := rdb.NewClient(&rdb.Options{
						Addr: cfg.Rate.Redis.Addr,
						DB:   cfg.Rate.Redis.DB,
					})
					limiter = rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.MaxRequests, cfg.RateWindow())
				} else {
					limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.RateWindow())
				}
			}

			handler := httpx.NewRouter(httpx.RouterConfig{
				Dispatch: &httpx.DispatchHandler{
					Runner:        dispatcher,
					SMTPAddr:      cfg.SMTPAddr(),
					DefaultAction: notify.Action(cfg.Dispatch.DefaultAction),
				},
				TriggerSecret: cfg.Auth.TriggerSecret,
				Limiter:       limiter,
			})

			logger.L().Info("notifier listening",
				logger.String("addr", cfg.Server.Addr),
				logger.String("smtp", cfg.SMTPAddr()),
			)

			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      handler,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 5 * time.Minute, // una corrida con throttle puede tardar
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func dispatchCmd(cfgPath *string) *cobra.Command {
	var accion string

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Ejecuta una corrida de despacho y sale (para cron/scheduler)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			// Mismo contrato que el trigger HTTP: sin credenciales no se
			// toca el store.
			if !cfg.SMTPConfigured() {
				return notify.ErrSMTPNotConfigured
			}

			if accion == "" {
				accion = cfg.Dispatch.DefaultAction
			}

			dispatcher, cleanup, err := buildDispatcher(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			sum, err := dispatcher.Run(cmd.Context(), notify.Action(accion))
			if err != nil {
				return err
			}

			out := map[string]any{
				"accion":    string(sum.Action),
				"enviados":  len(sum.Sent),
				"errores":   len(sum.Failed),
				"salteados": sum.Skipped,
			}
			if sum.Empty() {
				out["mensaje"] = sum.EmptyMessage
			}
			b, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&accion, "accion", "", "nuevas_inscripciones | nuevas_asistencias")
	return cmd
}
