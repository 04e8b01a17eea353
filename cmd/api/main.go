package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/neuroscan-api/internal/application/auth"
	"github.com/neuroscan-api/internal/application/otp"
	"github.com/neuroscan-api/internal/application/registration"
	"github.com/neuroscan-api/internal/application/sweeper"
	"github.com/neuroscan-api/internal/config"
	"github.com/neuroscan-api/internal/infrastructure/cache"
	"github.com/neuroscan-api/internal/infrastructure/dynamo"
	"github.com/neuroscan-api/internal/infrastructure/inference"
	jwtinfra "github.com/neuroscan-api/internal/infrastructure/jwt"
	"github.com/neuroscan-api/internal/infrastructure/mailersend"
	"github.com/neuroscan-api/internal/infrastructure/memstore"
	"github.com/neuroscan-api/internal/infrastructure/otpservice"
	s3infra "github.com/neuroscan-api/internal/infrastructure/s3"
	"github.com/neuroscan-api/internal/infrastructure/smtp"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/pkg/logger"
	"github.com/neuroscan-api/internal/pkg/password"
	transporthttp "github.com/neuroscan-api/internal/transport/http"
	"github.com/neuroscan-api/internal/transport/http/handler"
)

type purgeableOTPs interface {
	otp.Store
	sweeper.Purger
}

type purgeableRegistrations interface {
	registration.Store
	sweeper.Purger
}

// stores groups the persistence backends selected by STORE_DRIVER.
type stores struct {
	accounts      transporthttp.AccountRepository
	registrations purgeableRegistrations
	otps          purgeableOTPs
	predictions   transporthttp.PredictionRepository
	visitors      transporthttp.VisitorRepository
	objects       transporthttp.ObjectStore
	health        handler.Pinger
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger.Init(os.Stdout, cfg.AppEnv, cfg.LogLevel)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}

	tokens, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	sender, err := newSender(cfg)
	if err != nil {
		return err
	}

	deps := &transporthttp.Deps{
		Clock:         clock.Real{},
		Accounts:      st.accounts,
		Registrations: st.registrations,
		OTPs:          st.otps,
		Predictions:   st.predictions,
		Visitors:      st.visitors,
		Objects:       st.objects,
		Sender:        sender,
		Tokens:        tokens,
		Hasher:        password.NewHasher(cfg.BcryptCost),
		Health:        st.health,
	}

	if cfg.ModelServerURL != "" {
		deps.Classifier = inference.NewClient(cfg.ModelServerURL, cfg.ModelTimeout)
	} else {
		slog.Warn("MODEL_SERVER_URL not set, prediction endpoints will answer 503")
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		statsCache := cache.NewStatsCache(client, cfg.StatsCacheTTL)
		if err := statsCache.Ping(ctx); err != nil {
			slog.Warn("redis unreachable, statistics will be computed per request", "err", err)
		}
		deps.StatsCache = statsCache
	}

	sw := sweeper.New(clock.Real{},
		sweeper.Task{Name: "otp", Interval: cfg.OTPSweepInterval, MaxAge: cfg.OTPTTL, Store: st.otps},
		sweeper.Task{Name: "temp-registration", Interval: cfg.RegistrationSweepInterval, MaxAge: cfg.RegistrationTTL, Store: st.registrations},
	)
	sw.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreDriver, "otp_delivery", cfg.OTPDelivery)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		sw.Wait()
		return err
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	sw.Wait()
	slog.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		slog.Warn("using in-memory stores, data is lost on restart")
		return &stores{
			accounts:      memstore.NewAccounts(),
			registrations: memstore.NewRegistrations(),
			otps:          memstore.NewOTPs(),
			predictions:   memstore.NewPredictions(),
			visitors:      memstore.NewVisitors(),
			objects:       memstore.NewObjects(),
		}, nil
	case "dynamo", "":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamo.NewClient(awsCfg, cfg)
	dynamo.Bootstrap(ctx, client, cfg.DynamoTables)

	tables := cfg.DynamoTables
	return &stores{
		accounts:      dynamo.NewAccountRepo(client, tables.Accounts),
		registrations: dynamo.NewRegistrationRepo(client, tables.Registrations),
		otps:          dynamo.NewOTPRepo(client, tables.OneTimeCodes),
		predictions:   dynamo.NewPredictionRepo(client, tables.Predictions),
		visitors:      dynamo.NewVisitorRepo(client, tables.Visitors),
		objects:       s3infra.NewStore(s3infra.NewClient(awsCfg, cfg), cfg.S3BucketName),
		health:        dynamo.TablePinger{Client: client, Table: tables.Accounts},
	}, nil
}

func newSender(cfg *config.Config) (auth.Sender, error) {
	switch cfg.OTPDelivery {
	case "smtp":
		return smtp.NewOTPSender(smtp.NewMailer(cfg), cfg.OTPTTL), nil
	case "mailersend":
		m := mailersend.NewMailer(cfg.MailerSendAPIKey, cfg.MailFromName, cfg.MailFromEmail, cfg.OTPTTL)
		if !m.Enabled {
			return nil, errors.New("OTP_DELIVERY=mailersend requires MAILERSEND_API_KEY and MAIL_FROM_EMAIL")
		}
		return m, nil
	case "http", "":
		return otpservice.NewClient(cfg.OTPServiceURL, cfg.OTPServiceTimeout), nil
	default:
		return nil, fmt.Errorf("unknown OTP_DELIVERY %q", cfg.OTPDelivery)
	}
}
