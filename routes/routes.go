package routes

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"parkingreserve/handlers"
	"parkingreserve/metrics"
	"parkingreserve/models"
	"parkingreserve/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware 驗證 JWT token，並提取 member_id 和 role
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  false,
				"message": "缺少 Authorization 標頭",
				"error":   "Authorization header is required",
				"code":    "ERR_NO_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  false,
				"message": "無效的 Authorization 格式",
				"error":   "Authorization header must be in the format 'Bearer <token>'",
				"code":    "ERR_INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1], secret)
		if err != nil {
			log.Printf("Token parsing error: %v", err)
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"status":  false,
					"message": "token 已過期",
					"error":   "Token has expired",
					"code":    "ERR_TOKEN_EXPIRED",
				})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{
					"status":  false,
					"message": "無效的 token",
					"error":   err.Error(),
					"code":    "ERR_INVALID_TOKEN",
				})
			}
			c.Abort()
			return
		}

		if claims.Role != models.RoleCustomer && claims.Role != models.RoleAdmin {
			log.Printf("Missing or invalid role in token: %q", claims.Role)
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  false,
				"message": "無效的角色",
				"error":   "Invalid role in token",
				"code":    "ERR_INVALID_ROLE",
			})
			c.Abort()
			return
		}

		c.Set("member_id", claims.MemberID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RoleMiddleware 檢查會員角色是否符合要求
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  false,
				"message": "無法獲取角色資訊",
				"error":   "Role not found in context",
				"code":    "ERR_ROLE_NOT_FOUND",
			})
			c.Abort()
			return
		}

		// 允許 admin 角色訪問所有端點
		if role == models.RoleAdmin {
			c.Next()
			return
		}
		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"status":  false,
			"message": "權限不足",
			"error":   "Insufficient role permissions",
			"code":    "ERR_INSUFFICIENT_PERMISSIONS",
		})
		c.Abort()
	}
}

// Path 註冊 /v1 底下所有路由；router 通常是 /api 群組
func Path(router *gin.RouterGroup, h *handlers.Handler, jwtSecret string) {
	v1 := router.Group("/v1")
	{
		// 會員路由：公開
		members := v1.Group("/members")
		{
			members.POST("/register", h.RegisterMember) // 註冊會員
			members.POST("/login", h.LoginMember)       // 登入會員並獲取 token
		}

		auth := v1.Group("")
		auth.Use(AuthMiddleware(jwtSecret))
		{
			// 停車場查詢
			locations := auth.Group("/locations")
			{
				locations.GET("", h.GetLocations)                     // 列表，可查附近
				locations.GET("/:id", h.GetLocation)                  // 單一停車場
				locations.GET("/:id/availability", h.GetAvailability) // 指定時段的可用車位
			}

			// 預約路由
			reservations := auth.Group("/reservations")
			{
				reservations.POST("", RoleMiddleware(models.RoleCustomer), h.CreateReservation) // 建立預約
				reservations.GET("", h.GetMyReservations)                                       // 我的預約
				reservations.GET("/:id", h.GetReservation)                                      // 單筆預約
				reservations.POST("/:id/cancel", h.CancelReservation)                           // 取消並退款
				reservations.POST("/:id/check-in", h.CheckIn)                                   // 入場
				reservations.POST("/:id/check-out", h.CheckOut)                                 // 出場
				reservations.POST("/:id/pay", h.PayReservation)                                 // 錢包付款
				reservations.POST("/:id/feedback", h.SubmitFeedback)                            // 評價
			}

			// 車輛路由
			vehicles := auth.Group("/vehicles")
			{
				vehicles.GET("", h.GetMyVehicles)
				vehicles.POST("", h.CreateVehicle)
				vehicles.PUT("/default", h.SetDefaultVehicle)
				vehicles.DELETE("/:plate", h.DeleteVehicle)
			}

			// 錢包路由
			wallet := auth.Group("/wallet")
			{
				wallet.GET("", h.GetWallet)
				wallet.POST("/deposit", h.Deposit)
			}

			// 管理員專屬路由
			admin := auth.Group("/admin")
			admin.Use(RoleMiddleware(models.RoleAdmin))
			{
				admin.POST("/locations", h.CreateLocation)
				admin.PUT("/locations/:id/capacity", h.UpdateLocationCapacity)
				admin.PUT("/locations/:id/active", h.UpdateLocationActive)
				admin.GET("/locations/:id/reservations", h.GetLocationReservations)
				admin.POST("/scan/:code/check-in", h.ScanCheckIn)
				admin.POST("/scan/:code/check-out", h.ScanCheckOut)
				admin.POST("/expiry/run", h.RunExpiry)
			}
		}
	}
}

// Register 掛上 /healthz、/metrics 與 /api 路由
func Register(r *gin.Engine, h *handlers.Handler, jwtSecret string) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	Path(api, h, jwtSecret)
}
