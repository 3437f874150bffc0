package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"association-admin-api/internal/auth"
	"association-admin-api/internal/cache"
	"association-admin-api/internal/files"
	"association-admin-api/internal/grpchealth"
	"association-admin-api/internal/handler"
	"association-admin-api/internal/jobs"
	"association-admin-api/internal/logging"
	"association-admin-api/internal/mail"
	"association-admin-api/internal/metrics"
	"association-admin-api/internal/middleware"
	"association-admin-api/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 30 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		Long:  "Run the REST API, the gRPC health service and the scheduled jobs until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, !skipMigrate)
		},
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	return cmd
}

func runServe(ctx context.Context, a *app, migrate bool) error {
	cfg, log := a.cfg, a.log

	if migrate {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("connected to postgres")
	if n, err := st.CountUsers(ctx); err == nil && n == 0 {
		log.Warn("no users yet, create an admin with `assoc user create`")
	}

	var reports cache.Reports = cache.Nop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.ReportTTL)
		if err != nil {
			log.Warn("report cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			reports = rc
		}
	}

	fs, err := files.New(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		return err
	}

	m := metrics.New()
	mailer := mail.New(cfg.SMTP, cfg.DevMode, log)
	iss := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL)

	h := handler.New(st, handler.Options{
		Issuer:        iss,
		RefreshTTL:    cfg.RefreshTTL,
		Files:         fs,
		Reports:       reports,
		Mail:          mailer,
		Metrics:       m,
		Log:           log,
		Location:      cfg.Location(),
		BaseURL:       cfg.BaseURL,
		SecureCookies: !cfg.DevMode,
	})

	rl := middleware.NewRateLimiter(ctx, 5, 10)
	rl.TrustProxy = cfg.TrustProxy
	var root http.Handler = h.Router(middleware.Auth(iss, h.Unauthorized))
	root = middleware.RateLimit(rl, h.TooManyRequests)(root)
	root = middleware.CORS(cfg.AllowedOrigins)(root)
	root = logging.RequestLogger(log)(root)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched := jobs.New(st, mailer, m, log, cfg.Location())
	if err := sched.Start(); err != nil {
		return err
	}

	hs := grpchealth.New(st, log)
	go hs.Watch(ctx, healthInterval)

	errCh := make(chan error, 2)
	go func() {
		if err := hs.Serve(":" + cfg.GRPCPort); err != nil {
			errCh <- err
		}
	}()
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		log.Error("server failed", zap.Error(runErr))
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	hs.Stop()
	sched.Stop(shCtx)
	return runErr
}
