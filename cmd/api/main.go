package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ourclass/backend/internal/config"
	"github.com/ourclass/backend/internal/handler"
	"github.com/ourclass/backend/internal/middleware"
	"github.com/ourclass/backend/internal/migration"
	"github.com/ourclass/backend/internal/repository"
	"github.com/ourclass/backend/internal/service"
	"github.com/ourclass/backend/internal/ws"
	pkgcache "github.com/ourclass/backend/pkg/cache"
	"github.com/ourclass/backend/pkg/jwt"
	pkglogger "github.com/ourclass/backend/pkg/logger"
	pkgredis "github.com/ourclass/backend/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.Init(env)
	logger := pkglogger.GetLogger()
	logger.Info().Str("env", env).Strs("dotenv", dotenvFiles).Msg("starting ourclass backend")

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// MySQL 연결
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info().Msg("connected to MySQL")

	if err := migration.Run(db); err != nil {
		logger.Warn().Err(err).Msg("migration warning")
	}

	// Redis 연결
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to connect to Redis, continuing without Redis")
		redisClient = nil
	} else {
		logger.Info().Msg("connected to Redis")
	}

	// Cache Service
	var cacheService pkgcache.Service
	if redisClient != nil {
		cacheService = pkgcache.NewService(redisClient)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	chatRoomRepo := repository.NewChatRoomRepository(db)
	chatMsgRepo := repository.NewChatMessageRepository(db)
	groupRoomRepo := repository.NewGroupChatRoomRepository(db)
	groupMemberRepo := repository.NewGroupChatMemberRepository(db)
	groupMsgRepo := repository.NewGroupChatMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// WebSocket Hub
	wsHub := ws.NewHub(redisClient, service.NewRoomAuthorizer(chatRoomRepo, groupMemberRepo))
	go wsHub.Run()

	// Services
	directory := service.NewUserDirectory(userRepo, cacheService)
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, wsHub)
	chatSvc := service.NewChatService(chatRoomRepo, chatMsgRepo, directory, notificationSvc, wsHub)
	groupChatSvc := service.NewGroupChatService(groupRoomRepo, groupMemberRepo, groupMsgRepo, directory, notificationSvc, wsHub)

	// Handlers
	chatHandler := handler.NewChatHandler(chatSvc)
	groupChatHandler := handler.NewGroupChatHandler(groupChatSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	wsHandler := handler.NewWSHandler(wsHub, cfg.CORS.AllowOrigins)

	// JWT Manager
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	router := gin.Default()

	// CORS 설정
	allowOrigins := cfg.CORS.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(allowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           86400,
	}))

	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "ourclass-backend",
			"time":    time.Now().Unix(),
		})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtManager))

	chat := api.Group("/chat")
	{
		chat.POST("/rooms", chatHandler.CreateOrGetRoom)
		chat.GET("/rooms", chatHandler.GetMyRooms)
		chat.POST("/rooms/:id/messages", chatHandler.SendMessage)
		chat.GET("/rooms/:id/messages", chatHandler.GetMessages)
		chat.DELETE("/rooms/:id/leave", chatHandler.LeaveRoom)
		chat.DELETE("/messages/:id", chatHandler.DeleteMessage)
		chat.PUT("/mark-all-read", chatHandler.MarkAllAsRead)
	}

	groupChat := api.Group("/group-chat")
	{
		groupChat.POST("/rooms", groupChatHandler.CreateRoom)
		groupChat.GET("/rooms", groupChatHandler.GetMyRooms)
		groupChat.POST("/rooms/:id/messages", groupChatHandler.SendMessage)
		groupChat.GET("/rooms/:id/messages", groupChatHandler.GetMessages)
		groupChat.POST("/rooms/:id/invite", groupChatHandler.Invite)
		groupChat.POST("/rooms/:id/kick", groupChatHandler.Kick)
		groupChat.DELETE("/rooms/:id/leave", groupChatHandler.Leave)
		groupChat.DELETE("/messages/:id", groupChatHandler.DeleteMessage)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", notificationHandler.GetList)
		notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
		notifications.POST("/:id/read", notificationHandler.MarkAsRead)
		notifications.POST("/read-all", notificationHandler.MarkAllAsRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
	}

	api.GET("/ws", wsHandler.Connect)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("listening")
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func splitAndTrim(s string, delimiter string) []string {
	parts := strings.Split(s, delimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// initDB MySQL 연결 초기화
func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("DSN 파싱 실패: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}
	mysqlCfg.Params["time_zone"] = "'+09:00'"

	logMode := gormlogger.Warn
	if cfg.IsDevelopment() {
		logMode = gormlogger.Info
	}

	// TranslateError maps duplicate-key errors to gorm.ErrDuplicatedKey,
	// which the chat room repository relies on to resolve creation races.
	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	db.Exec("SET NAMES utf8mb4")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}
