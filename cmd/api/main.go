package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/njprem/PixelMart_BackEnd/internal/config"
	"github.com/njprem/PixelMart_BackEnd/internal/logging"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/memory"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/ports"
	"github.com/njprem/PixelMart_BackEnd/internal/repository/postgres"
	redisrepo "github.com/njprem/PixelMart_BackEnd/internal/repository/redis"
	"github.com/njprem/PixelMart_BackEnd/internal/service"
	httpx "github.com/njprem/PixelMart_BackEnd/internal/transport/http"
	"github.com/njprem/PixelMart_BackEnd/internal/transport/mail"
	"github.com/njprem/PixelMart_BackEnd/internal/util"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log, logCloser := logging.New(cfg.LogLevel, cfg.LogstashTCPAddr)
	defer logCloser.Close()

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server stopped")
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	denylist, closeDenylist, err := openDenylist(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDenylist()

	var mailer service.PasswordResetSender
	if cfg.SMTPHost != "" {
		smtpMailer := mail.NewPasswordResetMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPUseTLS)
		mailer = mail.NewBreakerSender(smtpMailer, log)
	} else {
		log.Warn("SMTP_HOST not set, password reset emails are disabled")
	}

	jwtManager := util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
	authSvc := service.NewAuthService(store, denylist, jwtManager, cfg.GoogleAudience, log)
	walletSvc := service.NewWalletService(store, log)
	resetSvc := service.NewPasswordResetService(store, mailer, cfg.PasswordResetTTL, cfg.FrontendBaseURL, log)

	e := httpx.NewRouter(cfg.AllowOrigins, cfg.TrustedProxies, log)
	httpx.RegisterAuth(e, authSvc, log, cfg.LoginRatePerMin)
	httpx.RegisterPasswordReset(e, resetSvc, log, cfg.PasswordResetRatePerMin)
	httpx.RegisterWallet(e, authSvc, walletSvc, log)
	if err := httpx.RegisterSwagger(e, cfg.SwaggerSpecPath); err != nil {
		log.WithError(err).Warn("swagger UI disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("PixelMart API listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		err := e.Shutdown(shutdownCtx)
		resetSvc.Wait()
		return err
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (ports.Store, func(), error) {
	if cfg.DBAdapter == config.AdapterMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, db.DB); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("database migrations applied")
	}
	return postgres.NewStore(db), func() { db.Close() }, nil
}

func openDenylist(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (ports.SessionDenylist, func(), error) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, revoked sessions are tracked in memory only")
		return memory.NewSessionDenylist(), func() {}, nil
	}
	client, err := redisrepo.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("close redis client")
		}
	}
	return redisrepo.NewSessionDenylist(client), closeClient, nil
}
