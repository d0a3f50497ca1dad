package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/config"
	"github.com/ShahriarTWS/TutorHub-Client/internal/guard"
	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	"github.com/ShahriarTWS/TutorHub-Client/internal/middleware"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/storage"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"

	dashboardHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/dashboard/delivery/http"
	dashboardService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/dashboard/service"

	enrollmentHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/delivery/http"
	enrollmentRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/repository"
	enrollmentService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/service"

	feedbackHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/delivery/http"
	feedbackRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/repository"
	feedbackService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/service"

	materialHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/material/delivery/http"
	materialRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/material/repository"
	materialService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/material/service"

	noteHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/note/delivery/http"
	noteRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/note/repository"
	noteService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/note/service"

	notiHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/delivery/http"
	notifRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/repository"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"

	searchHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/search/delivery/http"
	searchService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/search/service"

	sessionHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/delivery/http"
	sessionRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/repository"
	sessionService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/service"

	tutorHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/tutor/delivery/http"
	tutorRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/tutor/repository"
	tutorService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/tutor/service"

	userHttp "github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/delivery/http"
	userRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/repository"
	userService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type Server struct {
	engine      *gin.Engine
	redisClient *redis.Client
}

// NewServer wires the web tier. redisClient may be nil, in which case the
// role and query caches are skipped and latches only cover this process.
func NewServer(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) (*Server, error) {
	if err := validator.Register(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{}

	identityClient := apiclient.New(cfg.IdentityURL, httpClient,
		apiclient.WithMetrics("identity"),
		apiclient.WithTimeout(cfg.BackendTimeout),
	)
	accounts := identity.NewRESTAccounts(identityClient, cfg.IdentityAPIKey)

	var google *identity.GoogleConnector
	if cfg.GoogleEnabled() {
		google = identity.NewGoogleConnector(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	provider := identity.NewProvider(
		identity.NewCookieStore(cfg.SessionSecret, !cfg.IsDevelopment()),
		accounts,
		google,
		identity.NewTokenMinter(cfg.IdentityTokenSecret, cfg.IdentityTokenTTL),
		identity.ProviderConfig{
			ResolveTimeout: cfg.IdentityResolveTimeout,
			Revalidate:     cfg.IdentityRevalidate,
		},
	)

	// metrics outermost so timeouts and revocations are counted too
	backend := apiclient.New(cfg.BackendURL, httpClient,
		apiclient.WithMetrics("backend"),
		apiclient.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.BackendRPS), int(cfg.BackendRPS)+1)),
		apiclient.WithTimeout(cfg.BackendTimeout),
		apiclient.WithBearer(provider),
		apiclient.WithAuthFailure(identity.RevokeFromContext),
	)

	roleResolver := role.NewResolver(role.NewBackendFetcher(backend), redisClient, cfg.RoleCacheTTL)
	queryCache := querycache.New(redisClient, cfg.QueryCacheTTL)
	actionLatch := latch.New(redisClient, cfg.LatchTTL)

	fileStorage, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL)
	if err != nil {
		if !errors.Is(err, storage.ErrNotConfigured) {
			return nil, err
		}
		logger.Warn("cloudinary not configured, file uploads are disabled")
	}

	search := newSearch(cfg, logger)

	// Notification Module
	notificationSvc := notifService.NewNotificationService(notifRepo.NewNotificationRepository(redisClient), redisClient)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient, originChecker(cfg.AllowedOrigins))

	usersSvc := userService.NewUserService(userRepo.NewUserRepository(backend), roleResolver, actionLatch, queryCache, notificationSvc)
	userHandler := userHttp.NewUserHandler(usersSvc)

	authSvc := userService.NewAuthService(provider, usersSvc, fileStorage, cfg.CloudinaryUploadFolder)
	authHandler := userHttp.NewAuthHandler(authSvc, cfg.GoogleEnabled(), !cfg.IsDevelopment())

	sessionSvc := sessionService.NewService(sessionRepo.NewRepository(backend), fileStorage, actionLatch, queryCache, search, notificationSvc, cfg.CloudinaryUploadFolder)
	sessionHandler := sessionHttp.NewSessionHandler(sessionSvc)

	enrollmentSvc := enrollmentService.NewService(enrollmentRepo.NewRepository(backend), sessionSvc, actionLatch, queryCache, notificationSvc, cfg.StripePublishableKey)
	enrollmentHandler := enrollmentHttp.NewEnrollmentHandler(enrollmentSvc)

	materialSvc := materialService.NewService(materialRepo.NewRepository(backend), sessionSvc, enrollmentSvc, fileStorage, actionLatch, queryCache, notificationSvc, cfg.CloudinaryUploadFolder)
	materialHandler := materialHttp.NewMaterialHandler(materialSvc)

	tutorSvc := tutorService.NewService(tutorRepo.NewRepository(backend), roleResolver, actionLatch, queryCache, notificationSvc)
	tutorHandler := tutorHttp.NewTutorHandler(tutorSvc)

	noteHandler := noteHttp.NewNoteHandler(noteService.NewService(noteRepo.NewRepository(backend), queryCache))
	feedbackHandler := feedbackHttp.NewFeedbackHandler(feedbackService.NewService(feedbackRepo.NewRepository(backend), enrollmentSvc, actionLatch, queryCache))
	searchHandler := searchHttp.NewSearchHandler(search)
	dashboardHandler := dashboardHttp.NewDashboardHandler(dashboardService.NewService(roleResolver))

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(), middleware.Logging(logger), middleware.Metrics())

	routeGuard := guard.New(provider)
	authMiddleware := middleware.NewAuthMiddleware(roleResolver)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/login", authHandler.LoginPage)

	// Dashboard pages
	router.GET("/dashboard/*page", routeGuard.Require(), dashboardHandler.Page)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
		auth.POST("/logout", authHandler.Logout)
	}
	api.GET("/sessions", sessionHandler.ListApproved)
	api.GET("/sessions/search", searchHandler.SearchSessions)
	api.GET("/tutors", tutorHandler.Directory)

	protected := api.Group("")
	protected.Use(routeGuard.Require())
	{
		protected.GET("/me/role", dashboardHandler.MyRole)
		protected.GET("/dashboard", dashboardHandler.Dashboard)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Any resolved role
		member := protected.Group("")
		member.Use(authMiddleware.RequireRole())
		{
			member.GET("/sessions/:id", sessionHandler.GetSession)
			member.GET("/sessions/:id/reviews", feedbackHandler.SessionReviews)
			member.GET("/become-tutor", tutorHandler.MyApplication)
			member.POST("/become-tutor", tutorHandler.Apply)
		}

		booking := protected.Group("/sessions/:id")
		booking.Use(authMiddleware.RequireRole(role.Student))
		{
			booking.POST("/enroll", enrollmentHandler.Enroll)
			booking.POST("/payment", enrollmentHandler.ConfirmPayment)
			booking.GET("/enrollment", enrollmentHandler.EnrollmentStatus)
			booking.POST("/reviews", feedbackHandler.SaveReview)
		}

		// Student routes
		student := protected.Group("/student")
		student.Use(authMiddleware.RequireRole(role.Student))
		{
			student.GET("/payments", enrollmentHandler.History)
			student.GET("/sessions/:id/materials", materialHandler.SessionMaterials)
			student.GET("/sessions/:id/materials/export", materialHandler.ExportCSV)
			student.POST("/notes", noteHandler.Create)
			student.GET("/notes", noteHandler.List)
			student.PATCH("/notes/:id", noteHandler.Update)
			student.DELETE("/notes/:id", noteHandler.Delete)
		}

		// Tutor routes; admins may create sessions too
		tutor := protected.Group("/tutor")
		tutor.Use(authMiddleware.RequireRole(role.Tutor, role.Admin))
		{
			tutor.POST("/sessions", sessionHandler.CreateSession)
			tutor.GET("/sessions", sessionHandler.MySessions)
			tutor.GET("/sessions/approved", sessionHandler.MyApprovedSessions)
			tutor.POST("/sessions/:id/resubmit", sessionHandler.ResubmitSession)
			tutor.POST("/sessions/:id/materials", materialHandler.Upload)
			tutor.GET("/materials", materialHandler.MyMaterials)
			tutor.PATCH("/materials/:id", materialHandler.Update)
			tutor.DELETE("/materials/:id", materialHandler.Delete)
		}

		// Admin routes
		admin := protected.Group("/admin")
		admin.Use(authMiddleware.RequireRole(role.Admin))
		{
			admin.GET("/users", userHandler.ListUsers)
			admin.PATCH("/users/:id/role", userHandler.UpdateRole)

			admin.GET("/sessions", sessionHandler.ListAll)
			admin.PATCH("/sessions/:id/approve", sessionHandler.ApproveSession)
			admin.PATCH("/sessions/:id/reject", sessionHandler.RejectSession)
			admin.POST("/sessions/reindex", sessionHandler.Reindex)

			admin.GET("/materials", materialHandler.ListAll)
			admin.PATCH("/materials/:id", materialHandler.Update)
			admin.DELETE("/materials/:id", materialHandler.Delete)

			admin.GET("/tutors", tutorHandler.ListAll)
			admin.GET("/tutors/pending", tutorHandler.ListPending)
			admin.PATCH("/tutors/:id/approve", tutorHandler.Approve)
			admin.PATCH("/tutors/:id/reject", tutorHandler.Reject)
			admin.DELETE("/tutors/:id", tutorHandler.Delete)
		}
	}

	return &Server{
		engine:      router,
		redisClient: redisClient,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func newSearch(cfg *config.Config, logger *slog.Logger) searchService.SearchService {
	host := cfg.MeiliSearchHost
	if host == "" {
		logger.Warn("MEILISEARCH_HOST not set, session search is disabled")
		return searchService.NewDisabledSearch()
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}

	client := meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	return searchService.NewMeiliSearchService(client)
}

func splitOrigins(allowed string) []string {
	var origins []string
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return origins
}

func setupCORS(router *gin.Engine, allowed string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitOrigins(allowed),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// originChecker admits websocket upgrades from the CORS origins. Requests
// without an Origin header come from non-browser clients.
func originChecker(allowed string) func(r *http.Request) bool {
	origins := splitOrigins(allowed)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(origins, u.Scheme+"://"+u.Host)
	}
}
