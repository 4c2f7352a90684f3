// @title Corpsite Backend API
// @version 1.0
// @description 企业官网后端：公开联系表单与管理员来信、回复、转发接口。
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "corpsite/backend/docs"
	"corpsite/backend/internal/auth"
	jwtpkg "corpsite/backend/internal/auth/jwt"
	"corpsite/backend/internal/config"
	"corpsite/backend/internal/health"
	"corpsite/backend/internal/logger"
	"corpsite/backend/internal/monitoring"
	"corpsite/backend/internal/notify"
	"corpsite/backend/internal/security"
	"corpsite/backend/internal/service"
	"corpsite/backend/internal/smtp"
	"corpsite/backend/internal/storage"
	"corpsite/backend/internal/storage/hybrid"
	"corpsite/backend/internal/storage/memory"
	"corpsite/backend/internal/storage/postgres"
	"corpsite/backend/internal/storage/redis"
	httptransport "corpsite/backend/internal/transport/http"
)

// main 启动 HTTP API，按需同时启动开发用的 SMTP 捕获服务器。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Service:     "corpsite",
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAgeDays,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting corpsite server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("database_type", cfg.Database.Type),
	)

	store, err := initializeStorage(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("storage close warning", zap.Error(err))
		}
	}()

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(map[string]health.Pinger{"store": store}, log)

	// 捕获服务器与发信器
	var outbox *smtp.Outbox
	var sinkServer *gosmtp.Server
	if cfg.SMTP.SinkAddr != "" {
		outbox = smtp.NewOutbox(cfg.SMTP.SinkCapacity)
		sinkServer = smtp.NewServer(cfg.SMTP.SinkAddr, cfg.SMTP.SinkDomain, outbox)
	}

	notifier, err := initializeNotifier(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize notifier", zap.Error(err))
	}

	// 初始化服务层
	messageService := service.NewMessageService(store, store, log)
	replyService := service.NewReplyService(store, notifier, cfg.Mail.SiteName, log)
	contactService := service.NewContactService(store, log)
	contactService.SetContentFilter(security.NewContentFilter())

	// 初始化认证服务
	jwtManager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry)
	authService := auth.NewService(jwtManager, auth.Credentials{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	}, store, log)

	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
	)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		MessageService: messageService,
		ReplyService:   replyService,
		ContactService: contactService,
		AuthService:    authService,
		RateLimits:     store,
		Metrics:        metrics,
		Health:         healthChecker,
		Outbox:         outbox,
		Logger:         log,
	})

	httpAddr := cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 捕获服务器 goroutine
	if sinkServer != nil {
		group.Go(func() error {
			log.Info("starting SMTP capture server",
				zap.String("address", sinkServer.Addr),
				zap.String("domain", sinkServer.Domain),
			)
			if err := sinkServer.ListenAndServe(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
				log.Error("SMTP capture server error", zap.Error(err))
				return err
			}
			return nil
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		if sinkServer != nil {
			if err := sinkServer.Close(); err != nil {
				log.Warn("SMTP capture server close warning", zap.Error(err))
			}
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置选择存储实现
//
// memory 类型下业务数据留在进程内；配置了 Redis 时令牌黑名单与限流计数改放 Redis。
// 数据库类型统一走混合存储。
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.Database.Type == "" || cfg.Database.Type == "memory" {
		records := memory.NewStore()
		if cfg.Redis.Address == "" {
			log.Info("using memory storage (development mode)")
			return records, nil
		}

		cache, err := redis.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		log.Info("using memory storage with redis", zap.String("redis_address", cfg.Redis.Address))
		return hybrid.NewStore(records, cache), nil
	}

	log.Info("initializing database storage",
		zap.String("database_type", cfg.Database.Type),
		zap.String("redis_address", cfg.Redis.Address),
	)

	store, err := hybrid.NewStoreWithType(hybrid.Options{
		DBType: cfg.Database.Type,
		DSN:    cfg.Database.DSN,
		Pool: postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		},
		RedisAddress:  cfg.Redis.Address,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hybrid store: %w", err)
	}

	log.Info("database storage initialized successfully",
		zap.String("database_type", cfg.Database.Type),
	)
	return store, nil
}

// initializeNotifier 选择发信实现：真实 SMTP、本地捕获服务器或仅记录日志
func initializeNotifier(cfg *config.Config, log *zap.Logger) (notify.Notifier, error) {
	smtpCfg := notify.SMTPConfig{
		Host:          cfg.SMTP.Host,
		Port:          cfg.SMTP.Port,
		Username:      cfg.SMTP.Username,
		Password:      cfg.SMTP.Password,
		From:          cfg.SMTP.From,
		FromName:      cfg.SMTP.FromName,
		ReplyTo:       cfg.Mail.ReplyTo,
		TLSMode:       cfg.SMTP.TLSMode,
		Timeout:       cfg.SMTP.Timeout,
		RatePerSecond: cfg.SMTP.RatePerSecond,
	}

	switch {
	case cfg.SMTP.Host != "":
		log.Info("using SMTP notifier",
			zap.String("host", cfg.SMTP.Host),
			zap.Int("port", cfg.SMTP.Port),
		)
	case cfg.SMTP.SinkAddr != "":
		host, portStr, err := net.SplitHostPort(cfg.SMTP.SinkAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid smtp sink address %q: %w", cfg.SMTP.SinkAddr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid smtp sink port %q: %w", portStr, err)
		}
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		}
		smtpCfg.Host = host
		smtpCfg.Port = port
		smtpCfg.Username = ""
		smtpCfg.Password = ""
		smtpCfg.TLSMode = notify.TLSModeNone
		log.Info("using SMTP capture server as notifier", zap.String("address", cfg.SMTP.SinkAddr))
	default:
		log.Warn("smtp host not configured, outbound mail will only be logged")
		return notify.NewLogNotifier(log), nil
	}

	notifier, err := notify.NewSMTPNotifier(smtpCfg, log)
	if err != nil {
		return nil, err
	}
	return notifier, nil
}
