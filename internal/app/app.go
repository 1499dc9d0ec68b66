package app

import (
	"context"
	"edu_assistant_backend/internal/config"
	"edu_assistant_backend/internal/controller"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/pkg/database"
	"edu_assistant_backend/pkg/logger"
	"edu_assistant_backend/pkg/monitoring"
	"edu_assistant_backend/pkg/security"
	"edu_assistant_backend/pkg/tracing"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	limiter         *security.IPRateLimiter
	scheduler       *cron.Cron
	tracer          *sdktrace.TracerProvider
	cancel          context.CancelFunc
	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user           *repository.UserRepository
	course         *repository.CourseRepository
	assignment     *repository.AssignmentRepository
	submission     *repository.SubmissionRepository
	knowledgePoint *repository.KnowledgePointRepository
	activity       *repository.LearningActivityRepository
	mastery        *repository.MasteryRepository
	knowledgeEntry *repository.KnowledgeEntryRepository
}

type services struct {
	auth           *service.AuthService
	storage        *service.StorageService
	course         *service.CourseService
	assignment     *service.AssignmentService
	submission     *service.SubmissionService
	grading        *service.GradingService
	gradebook      *service.GradebookService
	knowledgePoint *service.KnowledgePointService
	activity       *service.ActivityService
	mastery        *service.MasteryService
	knowledgeBase  *service.KnowledgeBaseService
	hub            *service.NotificationHub
}

type controllers struct {
	auth           *controller.AuthController
	course         *controller.CourseController
	assignment     *controller.AssignmentController
	submission     *controller.SubmissionController
	grade          *controller.GradeController
	knowledgePoint *controller.KnowledgePointController
	activity       *controller.ActivityController
	mastery        *controller.MasteryController
	knowledgeBase  *controller.KnowledgeBaseController
	notification   *controller.NotificationController
	health         *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 由配置监听器在文件变更后调用
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()
	for _, cb := range callbacks {
		cb(cfg)
	}
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:           repository.NewUserRepository(db),
		course:         repository.NewCourseRepository(db),
		assignment:     repository.NewAssignmentRepository(db),
		submission:     repository.NewSubmissionRepository(db),
		knowledgePoint: repository.NewKnowledgePointRepository(db),
		activity:       repository.NewLearningActivityRepository(db),
		mastery:        repository.NewMasteryRepository(db),
		knowledgeEntry: repository.NewKnowledgeEntryRepository(db),
	}
}

func initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.course = service.NewCourseService(db, repos.course, repos.user)
	s.assignment = service.NewAssignmentService(db, repos.assignment, repos.course, repos.submission)
	s.submission = service.NewSubmissionService(db, repos.assignment, repos.course, repos.submission)

	s.hub = service.NewNotificationHub(rdb, cfg.CORS.AllowedOrigins)
	s.grading = service.NewGradingService(db, repos.assignment, repos.course, repos.submission, s.hub)
	s.gradebook = service.NewGradebookService(repos.assignment, repos.course, repos.submission, repos.user, s.storage)

	s.knowledgePoint = service.NewKnowledgePointService(db, repos.knowledgePoint, repos.course, repos.assignment)
	s.activity = service.NewActivityService(repos.activity, repos.knowledgePoint, repos.course)
	s.mastery = service.NewMasteryService(
		repos.mastery,
		repos.activity,
		rdb,
		service.MasteryParamsFromConfig(cfg.Mastery),
		time.Duration(cfg.Mastery.CacheTTLMinutes)*time.Minute,
	)
	s.knowledgeBase = service.NewKnowledgeBaseService(repos.knowledgeEntry, repos.course)

	return s
}

func initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:           controller.NewAuthController(s.auth),
		course:         controller.NewCourseController(s.course),
		assignment:     controller.NewAssignmentController(s.assignment, s.submission, s.gradebook),
		submission:     controller.NewSubmissionController(s.submission),
		grade:          controller.NewGradeController(s.grading),
		knowledgePoint: controller.NewKnowledgePointController(s.knowledgePoint),
		activity:       controller.NewActivityController(s.activity),
		mastery:        controller.NewMasteryController(s.mastery),
		knowledgeBase:  controller.NewKnowledgeBaseController(s.knowledgeBase),
		notification:   controller.NewNotificationController(s.hub),
		health:         controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewIPRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 通知中心、限流清理与掌握度定时重算
func (a *App) startBackgroundTasks(ctx context.Context, s *services) error {
	go s.hub.Run(ctx)
	go a.limiter.Run(ctx)

	a.scheduler = cron.New()
	if _, err := a.scheduler.AddFunc(a.Config.Mastery.Schedule, func() {
		if _, err := s.mastery.RecomputeAll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Log.Error("Scheduled mastery recompute failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	a.scheduler.Start()
	logger.Log.Info("Mastery recompute scheduled", zap.String("schedule", a.Config.Mastery.Schedule))
	return nil
}

func (a *App) registerConfigCallbacks(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.mastery.UpdateParams(service.MasteryParamsFromConfig(cfg.Mastery))
		logger.Log.Info("Mastery params reloaded")
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.limiter.SetLimit(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
		logger.Log.Info("Rate limit reloaded", zap.Int("maxRequests", cfg.RateLimit.MaxRequests))
	})
}

// NewApp 初始化数据库、Redis、服务与路由；MigrateOnly 时只完成迁移
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, err
	}

	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	app := &App{Config: cfg, DB: db}
	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}
	app.Redis = rdb

	repos := initRepositories(db)
	services := initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	if err := app.startBackgroundTasks(ctx, services); err != nil {
		cancel()
		return nil, err
	}
	app.registerConfigCallbacks(services)

	return app, nil
}

// RecomputeMastery 供命令行一次性全量重算
func (a *App) RecomputeMastery(ctx context.Context) (*service.RecomputeResult, error) {
	return a.services.mastery.RecomputeAll(ctx)
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(ctx)

	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放连接
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
