package main

import (
	"fmt"
	"log"
	"net/http"

	handler "crm-backend-refactor/api"
	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/scheduler"
)

func main() {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	db := database.GetDatabase(database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})
	defer db.Close()

	// 后台任务：每日到期任务扫描
	sched := scheduler.NewScheduler(db)
	if err := sched.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	router := handler.NewRouter(cfg, db)

	addr := ":" + cfg.Port
	fmt.Printf("🚀 CRM backend listening on %s (%s)\n", addr, cfg.Environment)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
}
