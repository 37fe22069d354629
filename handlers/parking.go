package handlers

import (
	"log"
	"net/http"
	"strconv"

	"parkingreserve/models"
	"parkingreserve/services"

	"github.com/gin-gonic/gin"
)

// GetLocations 取得停車場列表，可帶 latitude/longitude/radius 查詢附近
func (h *Handler) GetLocations(c *gin.Context) {
	var near *services.NearbyFilter
	if latStr, lngStr := c.Query("latitude"), c.Query("longitude"); latStr != "" || lngStr != "" {
		lat, err1 := strconv.ParseFloat(latStr, 64)
		lng, err2 := strconv.ParseFloat(lngStr, 64)
		if err1 != nil || err2 != nil {
			badRequest(c, "無效的經緯度", nil)
			return
		}
		near = &services.NearbyFilter{Latitude: lat, Longitude: lng}
		if radiusStr := c.Query("radius"); radiusStr != "" {
			radius, err := strconv.ParseFloat(radiusStr, 64)
			if err != nil || radius <= 0 {
				badRequest(c, "無效的搜尋半徑", err)
				return
			}
			near.RadiusKm = radius
		}
	}

	locations, err := h.Locations.List(c.Request.Context(), true, near)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]models.ParkingLocationResponse, len(locations))
	for i := range locations {
		resp[i] = locations[i].ToResponse()
	}
	SuccessResponse(c, http.StatusOK, "停車場列表取得成功", resp)
}

// GetLocation 取得單一停車場
func (h *Handler) GetLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loc, err := h.Locations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "停車場資料取得成功", loc.ToResponse())
}

// GetAvailability 查詢指定時段的可用車位
func (h *Handler) GetAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	start, err := parseTime(c.Query("start"))
	if err != nil {
		badRequest(c, "無效的開始時間", err)
		return
	}
	end, err := parseTime(c.Query("end"))
	if err != nil {
		badRequest(c, "無效的結束時間", err)
		return
	}

	a, err := h.Engine.Availability(c.Request.Context(), id, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "可用車位查詢成功", a)
}

// CreateLocation 管理員新增停車場
func (h *Handler) CreateLocation(c *gin.Context) {
	var req models.CreateParkingLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "無效的停車場資料", err)
		return
	}
	loc, err := h.Locations.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("Admin created parking location %d (%s)", loc.ID, loc.Name)
	SuccessResponse(c, http.StatusCreated, "停車場新增成功", loc.ToResponse())
}

// UpdateLocationCapacity 管理員修改總車位，可用車位依現有預約重新計算
func (h *Handler) UpdateLocationCapacity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "請提供 total_slots", err)
		return
	}
	loc, err := h.Locations.UpdateCapacity(c.Request.Context(), id, *req.TotalSlots)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "車位數更新成功", loc.ToResponse())
}

// UpdateLocationActive 管理員啟用或停用停車場
func (h *Handler) UpdateLocationActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "請提供 is_active", err)
		return
	}
	loc, err := h.Locations.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "停車場狀態更新成功", loc.ToResponse())
}
