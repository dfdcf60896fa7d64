package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hydrofix/backend/config"
	"hydrofix/backend/internal/api/handler"
	"hydrofix/backend/internal/api/middleware"
	"hydrofix/backend/internal/model"
	"hydrofix/backend/pkg/jwt"
	"hydrofix/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(1 << 20))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 客户下单（公开接口，无需认证）
		v1.POST("/orders", h.Order.Create)

		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/profile", h.Auth.Profile)
			authorized.POST("/auth/register", middleware.RoleAuth(string(model.RoleOwner)), h.Auth.Register)

			// 工单模块
			orders := authorized.Group("/orders")
			{
				orders.GET("/mine", h.Order.ListMine)
				orders.GET("/history", h.Order.History)
				orders.GET("/cities", middleware.RoleAuth(string(model.RoleOwner)), h.Order.Cities)
				orders.GET("", middleware.RoleAuth(string(model.RoleOwner)), h.Order.List)
				orders.GET("/:id", h.Order.Get)
				orders.PUT("/:id", middleware.RoleAuth(string(model.RoleOwner)), h.Order.Update)
				orders.POST("/:id/finish", h.Order.Finish)
			}

			// 排班模块
			schedule := authorized.Group("/schedule")
			{
				schedule.GET("/working-days", h.Schedule.WorkingDays)
				schedule.GET("/calendar.ics", h.Schedule.Calendar)
			}

			// 请假模块
			leaves := authorized.Group("/leaves")
			{
				leaves.POST("", h.Leave.Create)
				leaves.GET("/pending", middleware.RoleAuth(string(model.RoleOwner)), h.Leave.ListPending)
				leaves.POST("/:id/review", middleware.RoleAuth(string(model.RoleOwner)), h.Leave.Review)
			}

			// 员工模块
			users := authorized.Group("/users")
			{
				users.GET("/employees", middleware.RoleAuth(string(model.RoleOwner)), h.User.ListEmployees)
			}

			// 导出模块
			exports := authorized.Group("/exports")
			{
				exports.GET("/orders.xlsx", middleware.RoleAuth(string(model.RoleOwner)), h.Export.ExportOrders)
			}
		}
	}

	return r
}
