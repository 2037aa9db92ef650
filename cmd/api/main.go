package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/p-stojkovski/glassy-school-nexus-sub001/api/swagger"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/conflict"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/handler"
	internalmiddleware "github.com/p-stojkovski/glassy-school-nexus-sub001/internal/middleware"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/repository"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/service"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/cache"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/config"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/database"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/logger"
	corsmiddleware "github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/middleware/requestid"
)

// @title School Nexus API
// @version 1.0.0
// @description Weekly schedule management with conflict detection
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	// Redis is optional: the snapshot cache degrades to direct reads.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, snapshot cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	scheduleRepo := repository.NewScheduleRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	snapshotCache := repository.NewSnapshotCache(redisClient, logr, cfg.Schedule.SnapshotCacheTTL)

	policy := conflict.Policy{StudentOverlapBlocks: cfg.Schedule.StudentConflictBlocks}
	scheduleSvc := service.NewScheduleService(scheduleRepo, lessonRepo, snapshotCache, metricsSvc, validate, logr, policy)
	exportSvc := service.NewExportService(scheduleSvc, nil, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, exportSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("", internalmiddleware.JWT(authSvc))

	schedules := protected.Group("/schedules")
	schedules.GET("", scheduleHandler.List)
	schedules.POST("", scheduleHandler.Create)
	schedules.POST("/check", scheduleHandler.Check)
	schedules.GET("/export", scheduleHandler.Export)
	schedules.GET("/:id", scheduleHandler.Get)
	schedules.PUT("/:id", scheduleHandler.Update)
	schedules.DELETE("/:id", scheduleHandler.Delete)
	schedules.PATCH("/:id/status", scheduleHandler.UpdateStatus)
	schedules.GET("/:id/lessons", scheduleHandler.ListLessons)
	schedules.POST("/:id/lessons", scheduleHandler.GenerateLessons)

	staffOnly := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleManager)

	teachers := protected.Group("/teachers")
	teachers.GET("", teacherHandler.List)
	teachers.GET("/:id", teacherHandler.Get)
	teachers.POST("", staffOnly, teacherHandler.Create)
	teachers.PUT("/:id", staffOnly, teacherHandler.Update)
	teachers.DELETE("/:id", staffOnly, teacherHandler.Delete)

	classrooms := protected.Group("/classrooms")
	classrooms.GET("", classroomHandler.List)
	classrooms.GET("/:id", classroomHandler.Get)
	classrooms.POST("", staffOnly, classroomHandler.Create)
	classrooms.PUT("/:id", staffOnly, classroomHandler.Update)
	classrooms.DELETE("/:id", staffOnly, classroomHandler.Delete)

	students := protected.Group("/students")
	students.GET("", studentHandler.List)
	students.GET("/:id", studentHandler.Get)
	students.POST("", staffOnly, studentHandler.Create)
	students.PUT("/:id", staffOnly, studentHandler.Update)
	students.DELETE("/:id", staffOnly, studentHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
