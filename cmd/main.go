package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pressbox/pressbox/internal/api/http/router"
	httpServer "github.com/pressbox/pressbox/internal/api/http/server"
	"github.com/pressbox/pressbox/internal/captcha"
	"github.com/pressbox/pressbox/internal/config"
	"github.com/pressbox/pressbox/internal/email"
	kvmemory "github.com/pressbox/pressbox/internal/kv/memory"
	kvredis "github.com/pressbox/pressbox/internal/kv/redis"
	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
	"github.com/pressbox/pressbox/internal/repository/postgres"
	"github.com/pressbox/pressbox/internal/server"
	"github.com/pressbox/pressbox/internal/service"
	storage "github.com/pressbox/pressbox/internal/storage/minio"
	"github.com/pressbox/pressbox/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	articleRepo := postgres.NewArticleRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret)

	counterStore := newCounterStore(cfg, logger)

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	emailSender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.User, cfg.SMTP.Pass)
	captchaVerifier := captcha.NewTurnstile(cfg.Captcha.Secret)

	rateLimiter := service.NewRateLimiter(counterStore, logger)
	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, userRepo, logger)
	authService := service.NewAuth(userRepo, rateLimiter, emailSender, captchaVerifier, tokenService, logger)
	quotaService := service.NewQuota(articleRepo, counterStore, cfg.EnforceQuota(), cfg.Production(), logger)
	articleService := service.NewArticles(articleRepo, logger)
	mediaService := service.NewMedia(storageClient, logger)

	r := router.New(authService, tokenService, quotaService, articleService, mediaService, tokenService, logger)
	srv := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(srv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// newCounterStore selects the view/attempt counter backend. Redis is
// shared across processes; the in-memory store is per-process only,
// which the quota engine refuses when enforcing in production.
func newCounterStore(cfg *config.Config, logger *logger.Logger) model.KV {
	if cfg.Redis.Addr == "" {
		logger.Info("no redis configured, using in-memory counter store")
		return kvmemory.New()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("using redis counter store", "addr", cfg.Redis.Addr)
	return kvredis.New(client)
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
