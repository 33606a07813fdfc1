package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/cache"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/config"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/database"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/importexport"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/server"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/visits"
	"github.com/gin-gonic/gin"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// bootstrap loads config, builds the logger and opens the database.
func bootstrap() (*config.Config, logger.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN, logger.NewGormLogger(log, cfg.GormLogLevel))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func runMigrations(db *gorm.DB, log logger.Logger) error {
	applied, err := database.Migrate(db)
	if err != nil {
		return err
	}
	for _, v := range applied {
		log.Info("migration applied", logger.String("version", v))
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer database.Close(db)

	if err := runMigrations(db, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{
		DB:     db,
		Logger: log,
		Tokens: auth.NewTokenManager(cfg.JWTSecretKey, cfg.JWTAccessExpire, cfg.JWTRefreshExpire),
		RateLimit: auth.RateLimitConfig{
			Burst:        cfg.RateLimitBurst,
			RefillPerMin: cfg.RateLimitPerMin,
			MaxEntries:   10000,
		},
		BaseURL:   cfg.BaseURL,
		StartTime: time.Now(),
	}

	if cfg.RedisAddr != "" {
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Redis = rdb
		deps.Cache = cache.NewRedisCache(rdb, cfg.CacheTTL)
	} else {
		log.Info("redis not configured, short url cache disabled")
	}

	if cfg.RabbitMQURL != "" {
		conn, ch, err := visits.Dial(cfg.RabbitMQURL, cfg.VisitsQueue)
		if err != nil {
			return err
		}
		defer conn.Close()
		defer ch.Close()
		deps.Recorder = visits.NewAMQPRecorder(ch, cfg.VisitsQueue)
		log.Info("visits are published to rabbitmq", logger.String("queue", cfg.VisitsQueue))
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(cfg.Addr(), server.NewRouter(deps), log)
	return srv.Run(ctx, cfg.ShutdownTimeout)
}

func migrateCommand(c *cli.Context) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer database.Close(db)

	return runMigrations(db, log)
}

func visitsWorkerCommand(c *cli.Context) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer database.Close(db)

	if cfg.RabbitMQURL == "" {
		return cli.Exit("RABBITMQ_URL is not set", 1)
	}

	conn, ch, err := visits.Dial(cfg.RabbitMQURL, cfg.VisitsQueue)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	if err := ch.Qos(visits.DefaultBatchSize, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(cfg.VisitsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("visits worker started", logger.String("queue", cfg.VisitsQueue))
	err = visits.NewConsumer(db, log).Run(ctx, msgs)
	if errors.Is(err, visits.ErrDeliveriesClosed) {
		log.Warn("rabbitmq channel closed")
	}
	return err
}

func importCommand(c *cli.Context) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer database.Close(db)

	var user models.User
	if err := db.Where("email = ?", c.String("email")).First(&user).Error; err != nil {
		return cli.Exit(fmt.Sprintf("user %q not found", c.String("email")), 1)
	}

	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	items, err := importexport.ParseDocument(data)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return cli.Exit("no bookmarks found in file", 1)
	}

	bar := progressbar.Default(int64(len(items)), "Importing")
	result, err := importexport.NewImporter(db).Import(c.Context, user.ID, items, func() { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil {
		return err
	}

	fmt.Printf("\nImported: %d, skipped: %d\n", result.Imported, result.Skipped)
	for _, e := range result.Errors {
		fmt.Println("  " + e)
	}
	return nil
}
