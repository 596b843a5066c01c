package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/Quolls/config"
	"github.com/lshigami/Quolls/database"
	_ "github.com/lshigami/Quolls/docs" // Swagger docs - auto-generated
	adminctrl "github.com/lshigami/Quolls/internal/controller/admin"
	userctrl "github.com/lshigami/Quolls/internal/controller/user"
	"github.com/lshigami/Quolls/internal/logger"
	"github.com/lshigami/Quolls/internal/middleware"
	"github.com/lshigami/Quolls/internal/model"
	"github.com/lshigami/Quolls/internal/repository"
	"github.com/lshigami/Quolls/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// @title CBT Attempt Engine API
// @version 1.0
// @description Computer-based testing platform: timed multiple-choice exams with attempt resume, auto-save and one-shot grading.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
		),

		// Repositories Layer
		fx.Provide(
			repository.NewUserRepository,
			repository.NewTestRepository,
			repository.NewQuestionRepository,
			repository.NewAttemptRepository,
			repository.NewAnswerRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewShuffleService,
			service.NewGradingService,
			service.NewTestService,
			service.NewAdminTestService,
			service.NewAttemptService,
			service.NewExportService,
			func(userRepo repository.UserRepository, cfg *config.Config) service.AuthService {
				return service.NewAuthService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireHours)*time.Hour)
			},
		),

		// API Controllers Layer
		fx.Provide(
			userctrl.NewAuthController,
			userctrl.NewExamController,
			adminctrl.NewAdminTestController,
			adminctrl.NewAdminAttemptController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(SeedAdminUser),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI at /swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	authSvc service.AuthService,
	authCtrl *userctrl.AuthController,
	examCtrl *userctrl.ExamController,
	adminTestCtrl *adminctrl.AdminTestController,
	adminAttemptCtrl *adminctrl.AdminAttemptController,
) {
	api := router.Group("/api/v1")

	api.POST("/auth/login", authCtrl.Login)

	// Student routes: every call re-derives the session from the token.
	studentAPI := api.Group("")
	studentAPI.Use(middleware.Auth(authSvc))
	{
		studentAPI.GET("/tests", examCtrl.GetAvailableTests)
		studentAPI.GET("/tests/:test_id/questions", examCtrl.GetQuestions)
		studentAPI.POST("/tests/:test_id/attempts/init", examCtrl.InitAttempt)
		studentAPI.PUT("/tests/:test_id/attempts/:attempt_id", examCtrl.SaveProgress)
		studentAPI.POST("/tests/:test_id/attempts/:attempt_id/submit", examCtrl.SubmitAttempt)
	}

	adminAPI := api.Group("/admin")
	adminAPI.Use(middleware.Auth(authSvc), middleware.RequireAdmin())
	{
		adminAPI.POST("/tests", adminTestCtrl.CreateTest)
		adminAPI.PUT("/tests/:test_id/status", adminTestCtrl.UpdateTestStatus)
		adminAPI.GET("/tests/:test_id/attempts", adminAttemptCtrl.ListAttempts)
		adminAPI.POST("/tests/:test_id/attempts/reset", adminAttemptCtrl.ResetAttempt)
		adminAPI.GET("/tests/:test_id/export", adminAttemptCtrl.ExportAttempts)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("CBT attempt engine starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.User{},
		&model.Test{},
		&model.Question{},
		&model.Option{},
		&model.Attempt{},
		&model.Answer{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}

// SeedAdminUser bootstraps a first admin account on an empty database so the
// authoring and export routes are reachable out of the box.
func SeedAdminUser(userRepo repository.UserRepository, cfg *config.Config) error {
	count, err := userRepo.Count()
	if err != nil {
		return err
	}
	if count > 0 || cfg.Seed.AdminPassword == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := model.User{
		Username:  cfg.Seed.AdminUsername,
		Email:     cfg.Seed.AdminEmail,
		Password:  string(hash),
		FirstName: "Admin",
		Role:      model.RoleAdmin,
	}
	if err := userRepo.Create(&admin); err != nil {
		return err
	}
	log.Info().Str("username", admin.Username).Msg("Seeded bootstrap admin user")
	return nil
}
