package app

import (
	"context"
	"eco_mentor_backend/internal/config"
	"eco_mentor_backend/internal/controller"
	"eco_mentor_backend/internal/repository"
	"eco_mentor_backend/internal/service"
	"eco_mentor_backend/internal/util"
	"eco_mentor_backend/pkg/configwatcher"
	"eco_mentor_backend/pkg/database"
	"eco_mentor_backend/pkg/logger"
	"eco_mentor_backend/pkg/monitoring"
	"eco_mentor_backend/pkg/security"
	"eco_mentor_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	stopTasks       chan struct{}
}

type repositories struct {
	user        *repository.UserRepository
	course      *repository.CourseRepository
	question    *repository.QuestionRepository
	attempt     *repository.AttemptRepository
	progress    *repository.ProgressRepository
	enrollment  *repository.EnrollmentRepository
	certificate *repository.CertificateRepository
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	course      *service.CourseService
	quiz        *service.QuizService
	enrollment  *service.EnrollmentService
	certificate *service.CertificateService
	dashboard   *service.DashboardService
	storage     *service.StorageService
}

type controllers struct {
	auth        *controller.AuthController
	user        *controller.UserController
	course      *controller.CourseController
	quiz        *controller.QuizController
	enrollment  *controller.EnrollmentController
	certificate *controller.CertificateController
	dashboard   *controller.DashboardController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		course:      repository.NewCourseRepository(db),
		question:    repository.NewQuestionRepository(db),
		attempt:     repository.NewAttemptRepository(db),
		progress:    repository.NewProgressRepository(db),
		enrollment:  repository.NewEnrollmentRepository(db),
		certificate: repository.NewCertificateRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.course = service.NewCourseService(repos.course, repos.question, cfg, rdb)
	s.quiz = service.NewQuizService(repos.question, repos.attempt, repos.progress, repos.enrollment, repos.course, cfg, rdb)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, repos.course, repos.progress)
	s.certificate = service.NewCertificateService(
		repos.certificate,
		repos.enrollment,
		repos.course,
		repos.user,
		s.storage,
		service.NewMinter(&cfg.Blockchain),
		cfg,
	)
	s.dashboard = service.NewDashboardService(repos.user, repos.course, repos.enrollment, repos.attempt, repos.certificate)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		user:        controller.NewUserController(s.user),
		course:      controller.NewCourseController(s.course),
		quiz:        controller.NewQuizController(s.quiz),
		enrollment:  controller.NewEnrollmentController(s.enrollment),
		certificate: controller.NewCertificateController(s.certificate),
		dashboard:   controller.NewDashboardController(s.dashboard),
		health:      controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 证书自动签发扫描，周期可配
func (a *App) startBackgroundTasks(s *services) {
	interval := time.Duration(a.Config.Certs.AutoIssueIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.certificate.ProcessAutoIssuance(context.Background())
			case <-a.stopTasks:
				return
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// release 模式默认跳过迁移，需显式 --migrate / --migrate-only
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Log.Info("Database migration completed")
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// Redis 不可用时降级运行：目录不缓存，提交锁交给唯一索引兜底
		logger.Log.Warn("Redis unavailable, running without cache and submit locks", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		stopTasks: make(chan struct{}),
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("eco-mentor", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	// 配置热更新：测验策略允许运行时调整。不直接改写共享的 Config，
	// 新策略通过 ApplyPolicy 换入服务自己的快照
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		reloaded, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		services.quiz.ApplyPolicy(reloaded.Quiz)
		logger.Log.Info("Config reloaded",
			zap.Int("passThreshold", reloaded.Quiz.PassThreshold),
			zap.Int("maxAttempts", reloaded.Quiz.MaxAttempts),
			zap.Int("cooldownHours", reloaded.Quiz.CooldownHours))
		for _, cb := range app.configCallbacks {
			cb(reloaded)
		}
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	close(a.stopTasks)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
