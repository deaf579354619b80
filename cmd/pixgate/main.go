package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/luoxins/pixgate/internal/config"
	"github.com/luoxins/pixgate/internal/db"
	"github.com/luoxins/pixgate/internal/filestore"
	"github.com/luoxins/pixgate/internal/handler"
	"github.com/luoxins/pixgate/internal/job"
	"github.com/luoxins/pixgate/internal/middleware"
	"github.com/luoxins/pixgate/internal/repo"
	"github.com/luoxins/pixgate/internal/schedule"
	"github.com/luoxins/pixgate/internal/service"
)

const defaultUploadLimit = 20 * 1024 * 1024

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pixgate",
		Short: "pixgate auth and image gateway server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run pixgate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(conn)
	passcodeRepo := repo.NewPasscodeRepo(conn)

	mailSender := service.NewEmailSender(cfg.Mail)
	notifier := service.NewCodeNotifier(mailSender)
	passcodeService := service.NewPasscodeService(passcodeRepo, notifier, cfg.Verification)
	authService := service.NewAuthService(userRepo, passcodeService, cfg.Admin, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	deps := handler.RouterDeps{
		Auth:            handler.NewAuthHandler(authService),
		Images:          handler.NewImageHandler(store, defaultUploadLimit),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimitWindow: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewPasscodeCleanupJob(passcodeRepo, time.Duration(cfg.Cleanup.RetainMinutes)*time.Minute)
	if err := scheduler.AddJob(cleanup, cfg.Cleanup.CronSpec); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
