package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/handler"
	"github.com/noah-isme/sma-web-api/internal/middleware"
	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/internal/service"
	"github.com/noah-isme/sma-web-api/pkg/config"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-web-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-web-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-web-api/pkg/response"
	"github.com/noah-isme/sma-web-api/pkg/storage"
)

type contentServices struct {
	news          *service.ContentService[models.NewsPost, *models.NewsPost]
	gallery       *service.ContentService[models.GalleryImage, *models.GalleryImage]
	announcements *service.ContentService[models.Announcement, *models.Announcement]
	staff         *service.ContentService[models.StaffMember, *models.StaffMember]
	students      *service.ContentService[models.Student, *models.Student]
	alumni        *service.ContentService[models.Alumnus, *models.Alumnus]
	classes       *service.ContentService[models.Class, *models.Class]
	calendar      *service.ContentService[models.CalendarEvent, *models.CalendarEvent]
	structure     *service.ContentService[models.StructureNode, *models.StructureNode]
}

func (s contentServices) statsProviders() []service.StatsProvider {
	return []service.StatsProvider{s.news, s.gallery, s.announcements, s.staff, s.students, s.alumni, s.classes, s.calendar, s.structure}
}

func (s contentServices) publicSections() map[string]handler.PublicSource {
	return map[string]handler.PublicSource{
		service.ResourceNews:          handler.PublicSection[models.NewsPost](s.news),
		service.ResourceGallery:       handler.PublicSection[models.GalleryImage](s.gallery),
		service.ResourceAnnouncements: handler.PublicSection[models.Announcement](s.announcements),
		service.ResourceStaff:         handler.PublicSection[models.StaffMember](s.staff),
		service.ResourceStudents:      handler.PublicSection[models.Student](s.students),
		service.ResourceAlumni:        handler.PublicSection[models.Alumnus](s.alumni),
		service.ResourceClasses:       handler.PublicSection[models.Class](s.classes),
		service.ResourceCalendar:      handler.PublicSection[models.CalendarEvent](s.calendar),
		service.ResourceStructure:     handler.PublicSection[models.StructureNode](s.structure),
	}
}

func (s contentServices) registerAdmin(group *gin.RouterGroup) {
	handler.NewContentHandler[models.NewsPost](s.news).Register(group.Group("/" + service.ResourceNews))
	handler.NewContentHandler[models.GalleryImage](s.gallery).Register(group.Group("/" + service.ResourceGallery))
	handler.NewContentHandler[models.Announcement](s.announcements).Register(group.Group("/" + service.ResourceAnnouncements))
	handler.NewContentHandler[models.StaffMember](s.staff).Register(group.Group("/" + service.ResourceStaff))
	handler.NewContentHandler[models.Student](s.students).Register(group.Group("/" + service.ResourceStudents))
	handler.NewContentHandler[models.Alumnus](s.alumni).Register(group.Group("/" + service.ResourceAlumni))
	handler.NewContentHandler[models.Class](s.classes).Register(group.Group("/" + service.ResourceClasses))
	handler.NewContentHandler[models.CalendarEvent](s.calendar).Register(group.Group("/" + service.ResourceCalendar))
	handler.NewContentHandler[models.StructureNode](s.structure).Register(group.Group("/" + service.ResourceStructure))
}

type routerDeps struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *service.MetricsService
	checks    map[string]handler.Pinger
	bucketDir string
	bucket    string
	content   contentServices
	tree      *service.StructureService
	auth      *service.AuthService
	sessions  *service.SessionProvider
	users     *service.UserService
	uploads   *service.UploadService
	settings  *service.SettingsService
	exports   *service.ExportService
	dashboard *service.DashboardService
}

func newRouter(d routerDeps) *gin.Engine {
	if d.cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger, d.cfg.IsDevelopment()))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	observability := handler.NewMetricsHandler(d.metrics, d.checks)
	r.GET("/health", observability.Health)
	r.GET("/ready", observability.Ready)
	r.GET("/metrics", observability.Prometheus)
	if d.cfg.Env != "production" {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	files := r.Group(storage.PublicPrefix+"/"+d.bucket, func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	})
	files.StaticFS("/", gin.Dir(d.bucketDir, false))
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "Halaman tidak ditemukan"))
	})

	api := r.Group(d.cfg.APIPrefix)
	api.Use(middleware.Session(d.sessions))

	handler.NewPublicHandler(d.content.publicSections(), d.content.news, d.tree, d.settings).Register(api.Group("/public"))

	authHandler := handler.NewAuthHandler(d.auth)
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/session", authHandler.Session)
	authenticated := auth.Group("", middleware.RequireSession(d.cfg.Session.LoginPath))
	authenticated.POST("/logout", authHandler.Logout)
	authenticated.POST("/change-password", authHandler.ChangePassword)

	admin := api.Group("/admin", middleware.AdminGate(d.cfg.Session.LoginPath, d.cfg.Session.HomePath))
	d.content.registerAdmin(admin)

	uploadHandler := handler.NewUploadHandler(d.uploads)
	admin.POST("/uploads", uploadHandler.Upload)
	admin.DELETE("/uploads", uploadHandler.Delete)

	settingsHandler := handler.NewSettingsHandler(d.settings)
	admin.GET("/settings", settingsHandler.List)
	admin.GET("/settings/:key", settingsHandler.Get)
	admin.PUT("/settings/:key", settingsHandler.Update)

	admin.GET("/exports/:resource", handler.NewExportHandler(d.exports).Export)
	admin.GET("/dashboard", handler.NewDashboardHandler(d.dashboard).Admin)

	userHandler := handler.NewUserHandler(d.users)
	admin.GET("/users", userHandler.List)
	admin.PUT("/users/:id/roles/admin", userHandler.GrantAdmin)
	admin.DELETE("/users/:id/roles/admin", userHandler.RevokeAdmin)

	return r
}
