package handler

import (
	"fmt"
	"net/http"
	"time"

	"crm-backend-refactor/pkg/config"
	"crm-backend-refactor/pkg/database"
	"crm-backend-refactor/pkg/handlers"
	customMiddleware "crm-backend-refactor/pkg/middleware"
	"crm-backend-refactor/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler 是Vercel函数的入口点
// 单体路由模式：所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Configuration error: %v\n", err)
		utils.WriteServerError(w)
		return
	}

	// 获取数据库连接（进程内复用）
	db := database.GetDatabase(database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})

	// 将请求传递给Chi路由器处理
	NewRouter(cfg, db).ServeHTTP(w, r)
}

// NewRouter 构建完整的API路由器
func NewRouter(cfg *config.Config, db database.CRMDatabase) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, db)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	if cfg.Debug {
		router.Use(customMiddleware.CustomLogger(cfg))
	} else {
		router.Use(customMiddleware.Logger(cfg))
	}
	router.Use(customMiddleware.Recovery(cfg))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 请求体约束
	router.Use(customMiddleware.MaxBodySize(1 << 20)) // 1MB
	router.Use(customMiddleware.ContentTypeJSON)

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.CRMDatabase) {
	// 创建处理器
	authHandler := handlers.NewAuthHandler(cfg, db)
	teamsHandler := handlers.NewTeamsHandler(cfg, db)
	leadsHandler := handlers.NewLeadsHandler(cfg, db)
	dealsHandler := handlers.NewDealsHandler(cfg, db)
	tasksHandler := handlers.NewTasksHandler(cfg, db)
	contactsHandler := handlers.NewContactsHandler(cfg, db)
	companiesHandler := handlers.NewCompaniesHandler(cfg, db)
	dashboardHandler := handlers.NewDashboardHandler(cfg, db)
	mailTemplateHandler := handlers.NewMailTemplateHandler(cfg, db)

	// 健康检查端点
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			fmt.Printf("❌ Health check failed: %v\n", err)
			utils.WriteServerError(w)
			return
		}
		utils.WriteOK(w, "Service is healthy", utils.Payload{
			"environment": cfg.Environment,
			"time":        time.Now().Format(time.RFC3339),
		})
	})

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteOK(w, "Connection stats", utils.Payload{"data": database.GetConnectionStats()})
		})
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		// 看板与报表路由保持开放，供前端首页直接拉取
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/count", dashboardHandler.Count)
			r.Get("/revenue-overview", dashboardHandler.RevenueOverview)
			r.Get("/lead-source", dashboardHandler.LeadSource)
			r.Get("/report-data", dashboardHandler.ReportData)
		})

		// 邮件模板注册
		r.Post("/mail-template/create", mailTemplateHandler.Create)

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Route("/team", func(r chi.Router) {
				r.With(customMiddleware.AdminOnly).Post("/save", teamsHandler.Save)
				r.With(customMiddleware.OrgAdminOrAdmin).Post("/list", teamsHandler.List)
				r.With(customMiddleware.AdminOnly).Get("/get/{id}", teamsHandler.Get)
				r.With(customMiddleware.AdminOnly).Put("/update/{id}", teamsHandler.Update)
				r.With(customMiddleware.AdminOnly).Delete("/delete/{id}", teamsHandler.Delete)
				// 成员查看自己的资料
				r.With(customMiddleware.SelfOrAdmin("id")).Get("/profile/{id}", teamsHandler.Get)
			})

			r.Route("/leads", func(r chi.Router) {
				r.Use(customMiddleware.OrgAdminOrAdmin)
				r.Post("/save", leadsHandler.Save)
				r.Post("/list", leadsHandler.List)
				r.Get("/get/{id}", leadsHandler.Get)
				r.Put("/update/{id}", leadsHandler.Update)
				r.Delete("/delete/{id}", leadsHandler.Delete)
				r.Post("/status/update", leadsHandler.StatusUpdate)
			})

			r.Route("/deals", func(r chi.Router) {
				r.Use(customMiddleware.OrgAdminOrAdmin)
				r.Post("/save", dealsHandler.Save)
				r.Post("/list", dealsHandler.List)
				r.Get("/get/{id}", dealsHandler.Get)
				r.Put("/update/{id}", dealsHandler.Update)
				r.Delete("/delete/{id}", dealsHandler.Delete)
				r.Post("/stage/update", dealsHandler.StageUpdate)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Use(customMiddleware.OrgAdminOrAdmin)
				r.Post("/save", tasksHandler.Save)
				r.Post("/list", tasksHandler.List)
				r.Get("/get/{id}", tasksHandler.Get)
				r.Put("/update/{id}", tasksHandler.Update)
				r.Delete("/delete/{id}", tasksHandler.Delete)
				r.Post("/status/update", tasksHandler.StatusUpdate)
				r.Get("/dashboard", tasksHandler.Dashboard)
			})

			r.Route("/contacts", func(r chi.Router) {
				r.Use(customMiddleware.OrgAdminOrAdmin)
				r.Post("/save", contactsHandler.Save)
				r.Post("/list", contactsHandler.List)
				r.Get("/get/{id}", contactsHandler.Get)
				r.Put("/update/{id}", contactsHandler.Update)
				r.Delete("/delete/{id}", contactsHandler.Delete)
			})

			r.Route("/companies", func(r chi.Router) {
				r.Use(customMiddleware.OrgAdminOrAdmin)
				r.Post("/save", companiesHandler.Save)
				r.Post("/list", companiesHandler.List)
				r.Get("/get/{id}", companiesHandler.Get)
				r.Put("/update/{id}", companiesHandler.Update)
				r.Delete("/delete/{id}", companiesHandler.Delete)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFound(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteEnvelope(w, http.StatusMethodNotAllowed, http.StatusMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), nil)
	})
}
