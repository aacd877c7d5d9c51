package server

import (
	"context"
	"errors"
	"fmt"
	"instavision/config"
	"instavision/internal/global/app"
	"instavision/internal/global/database"
	"instavision/internal/global/event"
	"instavision/internal/global/httpclient"
	"instavision/internal/global/jwt"
	"instavision/internal/global/logger"
	"instavision/internal/global/mail"
	"instavision/internal/global/middleware"
	"instavision/internal/global/ratelimit"
	"instavision/internal/global/redis"
	"instavision/internal/global/response"
	"instavision/internal/global/sentry"
	"instavision/internal/global/storage"
	"instavision/internal/module"
	"instavision/internal/store"
	"instavision/tools"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const version = "1.0.0"

var log *slog.Logger

// Server 持有需要在退出时释放的资源
type Server struct {
	cfg    *config.Config
	deps   *app.Deps
	db     *gorm.DB
	redis  *goredis.Client
	mailer *mail.Queue
	events *event.Bus
}

func Init() *Server {
	config.Init()
	log = logger.New("Server")
	cfg := config.Get()

	if err := sentry.Init(); err != nil {
		log.Error("Sentry 初始化失败", "error", err)
	}

	ctx := context.Background()
	s := &Server{cfg: cfg}

	db, err := database.Open(cfg)
	tools.PanicOnErr(err)
	s.db = db

	s.redis, err = redis.New(ctx, cfg)
	tools.PanicOnErr(err)

	sender, err := mail.NewSender(cfg.Email, httpclient.New(10*time.Second), logger.New("Mail"))
	tools.PanicOnErr(err)
	s.mailer, err = mail.NewQueue(sender, logger.New("Mail"))
	tools.PanicOnErr(err)

	s.events, err = event.New(cfg.Kafka, logger.New("Event"))
	tools.PanicOnErr(err)

	avatars, err := storage.New(ctx, cfg.S3)
	tools.PanicOnErr(err)

	issuer := jwt.NewIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn.Std())
	deps := &app.Deps{
		Users:          store.NewUsers(db),
		Tokens:         issuer,
		Mailer:         s.mailer,
		Events:         s.events,
		Storage:        avatars,
		BcryptCost:     cfg.Security.BcryptCost,
		PasswordLength: cfg.Security.PasswordLength,
		FrontendURL:    cfg.FrontendURL,
		StartedAt:      time.Now(),
	}
	deps.Limiter, err = ratelimit.New(s.redis, cfg.RateLimit.Max, cfg.RateLimit.Window)
	tools.PanicOnErr(err)
	if cfg.JWT.Revocation {
		if s.redis != nil {
			deps.Revoker = jwt.NewRedisRevoker(s.redis, issuer.TTL())
		} else {
			log.Warn("JWT 吊销需要 redis，已忽略")
		}
	}
	s.deps = deps
	return s
}

// NewEngine 组装中间件与路由
func NewEngine(cfg *config.Config, deps *app.Deps) *gin.Engine {
	l := logger.New("Server")
	gin.SetMode(string(cfg.Mode))
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Proxies); err != nil {
		l.Warn("trusted proxies ignored", "error", err)
	}

	// Recovery 在 gzip 之内，panic 时响应仍经过压缩写出
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.Recovery())
	r.Use(sentry.Middleware(), sentry.EnrichIP())
	r.Use(middleware.RequestID(), middleware.Security())
	switch cfg.Mode {
	case config.ModeRelease:
		r.Use(middleware.Logger(logger.Get()))
	case config.ModeDebug:
		r.Use(gin.Logger())
	}
	r.Use(middleware.Cors(cfg.CorsOrigin))
	r.Use(middleware.BodyLimit(cfg.BodyLimitMB << 20))
	// 挂在 engine 上，未匹配的 /api 路径同样计数
	r.Use(middleware.RateLimit(deps.Limiter, cfg.Prefix, logger.New("RateLimit")))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to InstaVision API",
			"health":  "/" + cfg.Prefix + "/health",
			"version": version,
		})
	})

	api := r.Group("/" + cfg.Prefix)
	for _, m := range module.Modules() {
		l.Info(fmt.Sprintf("Init Module: %s", m.GetName()))
		m.Init(deps)
		m.InitRouter(api)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, response.ErrRouteNotFound)
	})
	return r
}

// Run 启动 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出
func (s *Server) Run() {
	srv := &http.Server{
		Addr:              s.cfg.Host + ":" + s.cfg.Port,
		Handler:           NewEngine(s.cfg, s.deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server started", "addr", srv.Addr, "mode", s.cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		log.Error("Server stopped", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	s.Close()
}

// Close 按依赖顺序释放资源
func (s *Server) Close() {
	if s.mailer != nil {
		if err := s.mailer.Close(); err != nil {
			log.Error("mail queue close failed", "error", err)
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			log.Error("event publisher close failed", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			log.Error("database close failed", "error", err)
		}
	}
	sentry.Flush(2 * time.Second)
	_ = logger.Close()
}
