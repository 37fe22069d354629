package handlers

import (
	"net/http"

	"parkingreserve/models"

	"github.com/gin-gonic/gin"
)

// GetMyVehicles 取得我的所有車輛
func (h *Handler) GetMyVehicles(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	vehicles, err := h.Vehicles.List(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]models.VehicleResponse, len(vehicles))
	for i, v := range vehicles {
		resp[i] = v.ToResponse()
	}
	SuccessResponse(c, http.StatusOK, "查詢成功", resp)
}

// CreateVehicle 新增車輛
func (h *Handler) CreateVehicle(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	var input struct {
		LicensePlate string  `json:"license_plate" binding:"required,max=20"`
		Brand        *string `json:"brand,omitempty"`
		Model        *string `json:"model,omitempty"`
		Color        *string `json:"color,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "輸入格式錯誤", err)
		return
	}

	vehicle := models.Vehicle{
		LicensePlate: input.LicensePlate,
		MemberID:     memberID,
		Brand:        getString(input.Brand),
		Model:        getString(input.Model),
		Color:        getString(input.Color),
	}
	if err := h.Vehicles.Create(c.Request.Context(), &vehicle); err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "車輛新增成功", vehicle.ToResponse())
}

// SetDefaultVehicle 設為預設車輛（用 JSON 傳 license_plate）
func (h *Handler) SetDefaultVehicle(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	var input struct {
		LicensePlate string `json:"license_plate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "請提供 license_plate", err)
		return
	}
	vehicle, err := h.Vehicles.SetDefault(c.Request.Context(), memberID, input.LicensePlate)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "已設為預設車輛", vehicle.ToResponse())
}

// DeleteVehicle 刪除車輛
func (h *Handler) DeleteVehicle(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	if err := h.Vehicles.Delete(c.Request.Context(), memberID, c.Param("plate")); err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "車輛刪除成功", nil)
}

// 工具函數：*string → string
func getString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
