package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"parkingreserve/models"
	"parkingreserve/services"

	"github.com/gin-gonic/gin"
)

// Handler 持有注入的服務，供 routes 綁定
type Handler struct {
	Members   *services.MemberService
	Vehicles  *services.VehicleService
	Locations *services.LocationService
	Engine    *services.ReservationEngine
	Lifecycle *services.LifecycleCoordinator
	Wallet    *services.WalletService

	JWTSecret string
	TokenTTL  time.Duration

	// Ping 健康檢查用，通常是資料庫 ping
	Ping func(ctx context.Context) error
}

// currentMember 取出 AuthMiddleware 設定的 member_id 與 role
func currentMember(c *gin.Context) (int, string, bool) {
	v, exists := c.Get("member_id")
	if !exists {
		ErrorResponse(c, http.StatusUnauthorized, "ERR_NO_MEMBER_ID", "未授權", "member_id not found in token")
		return 0, "", false
	}
	memberID, ok := v.(int)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "ERR_INVALID_MEMBER_ID", "未授權", "invalid member_id type")
		return 0, "", false
	}
	return memberID, c.GetString("role"), true
}

// actingMember 管理員可代為操作任何預約，回傳 0 表示不檢查擁有者
func actingMember(c *gin.Context) (int, bool) {
	memberID, role, ok := currentMember(c)
	if !ok {
		return 0, false
	}
	if role == models.RoleAdmin {
		return 0, true
	}
	return memberID, true
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "無效的 ID", fmt.Errorf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}

// parseTime 接受 RFC 3339 或不帶時區的 'YYYY-MM-DDThh:mm:ss'（視為 UTC），一律轉成 UTC
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("time must be in 'YYYY-MM-DDThh:mm:ss' or RFC 3339 format, got %q", value)
}

// Healthz 存活與資料庫連線檢查
func (h *Handler) Healthz(c *gin.Context) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			ErrorResponse(c, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE", "資料庫暫時無法使用", err.Error())
			return
		}
	}
	SuccessResponse(c, http.StatusOK, "ok", nil)
}
