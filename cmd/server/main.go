package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/logger"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/routes"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		zlog.Fatal("connect database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.Contract{},
		&models.Invoice{},
		&models.BankTransaction{},
		&models.MatchResult{},
		&models.ImportBatch{},
		&models.OperationAuditLog{},
		&models.ReconciliationReport{},
	); err != nil {
		zlog.Fatal("migrate schema", zap.Error(err))
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, zlog)

	zlog.Info("server starting", zap.String("port", cfg.App.Port))
	if err := r.Run(":" + cfg.App.Port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
