package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/config"
	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/routes"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig()

	// 初始化日志
	utils.InitLogger(cfg.Debug)
	utils.InitJWT(cfg.JWTKey, cfg.JWTTTL)

	// 设置Gin模式
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化数据库
	if err := repository.InitMongoDB(cfg.MongoURI, cfg.MongoDB); err != nil {
		utils.Logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer repository.CloseMongoDB()

	utils.Logger.Info().Msg("开始系统初始化...")
	if err := repository.InitializeCollections(); err != nil {
		utils.Logger.Error().Err(err).Msg("初始化数据库集合失败")
	}
	if err := repository.CreateIndexes(); err != nil {
		utils.Logger.Error().Err(err).Msg("创建索引失败")
	}

	rdb, err := repository.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		utils.Logger.Fatal().Err(err).Msg("连接Redis失败")
	}
	defer rdb.Close()

	// 存储层
	db := repository.DB()
	projectStore := repository.NewProjectRepository(db, cfg.MongoTransactions)
	userStore := repository.NewUserRepository(db)
	bookStore := repository.NewMeasurementBookRepository(db)
	activityStore := repository.NewActivityRepository(db)
	statsStore := repository.NewStatsRepository(db)
	operationLogStore := repository.NewOperationLogRepository(db)
	otpStore := repository.NewRedisOTPStore(rdb)
	fileStore, err := repository.NewGridFSFileStore(db)
	if err != nil {
		utils.Logger.Fatal().Err(err).Msg("初始化文件存储失败")
	}

	// 服务层
	evidence := service.NewEvidenceService(fileStore, cfg.MaxUploadBytes, cfg.MaxFilesPerUpdate)
	userService := service.NewUserService(userStore)
	authService := service.NewAuthService(userStore, otpStore, service.LogOTPSender{}, service.AuthConfig{
		OTPTTL:       cfg.OTPTTL,
		MaxAttempts:  cfg.OTPMaxAttempts,
		ResendLimit:  cfg.OTPResendLimit,
		ResendWindow: cfg.OTPResendWindow,
	})
	projectService := service.NewProjectService(projectStore)
	progressService := service.NewProgressService(projectStore, evidence, cfg.ProgressConflictRetries, cfg.HistoryMaxPageSize)
	bookService := service.NewMeasurementBookService(bookStore, projectStore, evidence)
	activityService := service.NewActivityService(activityStore, projectStore)
	statsService := service.NewStatsService(statsStore)

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userService.EnsureAdmin(initCtx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail); err != nil {
		utils.Logger.Error().Err(err).Msg("初始化管理员账户失败")
	}
	initCancel()
	utils.Logger.Info().Msg("系统初始化完成")

	// 每日凌晨巡检进度台账
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	service.ScheduleDailyTaskAt(bgCtx, 2, 0, 0, func(ctx context.Context) {
		result, err := service.IntegritySweep(ctx, projectStore)
		if err != nil {
			utils.Logger.Error().Err(err).Msg("台账巡检失败")
			return
		}
		utils.Logger.Info().
			Int("checked", result.Checked).
			Int("inconsistent", len(result.Inconsistent)).
			Msg("台账巡检完成")
	})

	// 创建Gin实例
	router := gin.New()

	// 应用中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.OperationLoggerMiddleware(operationLogStore))

	// 注册路由
	routes.RegisterRoutes(router, routes.Handlers{
		Auth:             controllers.NewAuthController(authService, userService),
		Users:            controllers.NewUserController(userService),
		Projects:         controllers.NewProjectController(projectService),
		Progress:         controllers.NewProgressController(progressService),
		Activity:         controllers.NewActivityController(activityService),
		Files:            controllers.NewFileController(evidence),
		MeasurementBooks: controllers.NewMeasurementBookController(bookService),
		Stats:            controllers.NewStatsController(statsService, projectStore),
	})

	// 设置HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 启动服务器
	go func() {
		utils.Logger.Info().Msgf("服务器启动，监听端口: %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal().Err(err).Msg("启动服务器失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info().Msg("正在关闭服务器...")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Fatal().Err(err).Msg("服务器关闭异常")
	}

	utils.Logger.Info().Msg("服务器已优雅关闭")
}
