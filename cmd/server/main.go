package main

import (
	"fmt"
	"log"

	"appdist/internal/api/controllers"
	"appdist/internal/api/routes"
	"appdist/internal/config"
	"appdist/internal/db"
	"appdist/internal/metrics"
	"appdist/internal/parser"
	releaseservice "appdist/internal/services/release_service"
	webhookservice "appdist/internal/services/webhook_service"
	"appdist/internal/storage"
)

func main() {
	// 1. 설정 로드 (Configuration)
	cfg := config.Load()

	// 2. 데이터베이스 초기화 (Database Initialization)
	db.InitDB()

	// 3. 서비스 초기화 (Services)
	store, err := storage.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize artifact store: %v", err)
	}

	prom := metrics.NewProm()
	notifier := webhookservice.NewWebhookService(db.GetDB(), cfg.WebhookWorkers, prom)
	defer notifier.Close()

	extractor := parser.NewCommandExtractor(cfg.ExtractorCmd)
	releaseService := releaseservice.NewReleaseService(db.GetDB(), extractor, store, notifier, prom)

	// 4. 컨트롤러 초기화 (Controllers)
	uploadController := controllers.NewUploadController(releaseService)
	releaseController := controllers.NewReleaseController(releaseService)
	healthController := controllers.NewHealthController()

	// 5. 라우터 설정 (Router)
	r := routes.SetupRouter(uploadController, releaseController, healthController, prom)

	// 6. 서버 시작 (Start Server)
	log.Printf("Starting server on port %s", cfg.Port)
	if err := r.Run(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
