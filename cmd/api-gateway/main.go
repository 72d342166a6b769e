package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-web-api/api/swagger"
	"github.com/noah-isme/sma-web-api/internal/handler"
	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/internal/repository"
	"github.com/noah-isme/sma-web-api/internal/service"
	"github.com/noah-isme/sma-web-api/pkg/cache"
	"github.com/noah-isme/sma-web-api/pkg/config"
	"github.com/noah-isme/sma-web-api/pkg/database"
	"github.com/noah-isme/sma-web-api/pkg/jobs"
	"github.com/noah-isme/sma-web-api/pkg/logger"
	"github.com/noah-isme/sma-web-api/pkg/mail"
	"github.com/noah-isme/sma-web-api/pkg/storage"
	"github.com/noah-isme/sma-web-api/pkg/validation"
)

// @title SMA Web API
// @version 1.0.0
// @description Content management and public API for the school website.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logr.Info("migrations applied")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching and role broadcasts disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	app, err := buildApp(cfg, logr, db, redisClient)
	if err != nil {
		return err
	}

	app.queue.Start(ctx)
	defer app.queue.Stop()

	if err := app.sessions.Start(ctx); err != nil {
		logr.Warn("role change subscription failed, relying on cache expiry", zap.Error(err))
	}
	defer func() {
		if err := app.sessions.Close(); err != nil {
			logr.Warn("close session provider", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

type app struct {
	router   *gin.Engine
	queue    *jobs.Queue
	sessions *service.SessionProvider
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) (*app, error) {
	validate := validation.New()
	validate.RegisterValuer(models.Date{})
	metrics := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	var cacheBackend service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
		cacheBackend = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheBackend, metrics, cfg.PublicCache.TTL, logr, cfg.PublicCache.Enabled && cacheBackend != nil)

	bucket, err := storage.NewBucket(cfg.Storage.Dir, cfg.Storage.Bucket, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("open storage bucket: %w", err)
	}

	queue := jobs.NewQueue("background", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	imageRefs := repository.NewImageReferenceRepository(db, repository.NewsTable, repository.GalleryTable, repository.StaffTable, repository.AlumniTable, repository.StructureTable)
	uploads := service.NewUploadService(bucket, cfg.Storage.MaxUploadSize, queue, metrics, logr).WithReferenceChecker(imageRefs)
	queue.Handle(service.JobUploadCleanup, uploads.CleanupHandler())
	queue.Handle(service.JobPasswordResetMail, service.PasswordResetMailHandler(mail.New(cfg.Mail, logr)))

	opts := service.ContentOptions{Cache: cacheSvc, CacheTTL: cfg.PublicCache.TTL, Cleaner: uploads, Metrics: metrics, DebugErrors: cfg.IsDevelopment()}
	structureRepo := repository.NewCrudRepository[models.StructureNode](db, repository.StructureTable)
	content := contentServices{
		news:          service.NewContentService[models.NewsPost](service.NewsResource(), repository.NewCrudRepository[models.NewsPost](db, repository.NewsTable), validate, logr, opts),
		gallery:       service.NewContentService[models.GalleryImage](service.GalleryResource(), repository.NewCrudRepository[models.GalleryImage](db, repository.GalleryTable), validate, logr, opts),
		announcements: service.NewContentService[models.Announcement](service.AnnouncementResource(), repository.NewCrudRepository[models.Announcement](db, repository.AnnouncementTable), validate, logr, opts),
		staff:         service.NewContentService[models.StaffMember](service.StaffResource(), repository.NewCrudRepository[models.StaffMember](db, repository.StaffTable), validate, logr, opts),
		students:      service.NewContentService[models.Student](service.StudentResource(), repository.NewCrudRepository[models.Student](db, repository.StudentTable), validate, logr, opts),
		alumni:        service.NewContentService[models.Alumnus](service.AlumniResource(), repository.NewCrudRepository[models.Alumnus](db, repository.AlumniTable), validate, logr, opts),
		classes:       service.NewContentService[models.Class](service.ClassResource(), repository.NewCrudRepository[models.Class](db, repository.ClassTable), validate, logr, opts),
		calendar:      service.NewContentService[models.CalendarEvent](service.CalendarResource(), repository.NewCrudRepository[models.CalendarEvent](db, repository.CalendarTable), validate, logr, opts),
		structure:     service.NewContentService[models.StructureNode](service.StructureResource(structureRepo), structureRepo, validate, logr, opts),
	}
	structureTree := service.NewStructureService(structureRepo, cacheSvc, logr).WithDebugErrors(cfg.IsDevelopment())

	userRepo := repository.NewUserRepository(db)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		ResetLinkURL:       cfg.Reset.LinkURL,
	}, storage.NewTokenSigner(cfg.Reset.Secret, cfg.Reset.TTL), queue)
	sessions := service.NewSessionProvider(authSvc, userRepo, redisClient, cfg.Session.RoleChannel, cfg.Session.RoleCacheTTL, logr)
	users := service.NewUserService(userRepo, sessions, logr)

	settings := service.NewSettingsService(repository.NewSettingsRepository(db), validate, cacheSvc, cfg.PublicCache.TTL, logr).WithDebugErrors(cfg.IsDevelopment())
	exports := service.NewExportService(map[string]service.Roster{
		service.ResourceStaff:    {Title: "Data Guru dan Staf", Headers: service.StaffRosterHeaders, Source: service.ContentRoster[models.StaffMember](content.staff)},
		service.ResourceStudents: {Title: "Data Siswa", Headers: service.StudentRosterHeaders, Source: service.ContentRoster[models.Student](content.students)},
		service.ResourceAlumni:   {Title: "Data Alumni", Headers: service.AlumniRosterHeaders, Source: service.ContentRoster[models.Alumnus](content.alumni)},
		service.ResourceClasses:  {Title: "Data Kelas", Headers: service.ClassRosterHeaders, Source: service.ContentRoster[models.Class](content.classes)},
	}, logr)
	dashboard := service.NewDashboardService(content.statsProviders(), cacheSvc, 30*time.Second, logr)

	checks := map[string]handler.Pinger{"database": db.PingContext}
	if cacheRepo != nil {
		checks["redis"] = cacheRepo.Ping
	}

	router := newRouter(routerDeps{
		cfg:       cfg,
		logger:    logr,
		metrics:   metrics,
		checks:    checks,
		bucketDir: bucket.Dir(),
		bucket:    bucket.Name(),
		content:   content,
		tree:      structureTree,
		auth:      authSvc,
		sessions:  sessions,
		users:     users,
		uploads:   uploads,
		settings:  settings,
		exports:   exports,
		dashboard: dashboard,
	})
	return &app{router: router, queue: queue, sessions: sessions}, nil
}
