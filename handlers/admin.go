package handlers

import (
	"net/http"

	"parkingreserve/models"

	"github.com/gin-gonic/gin"
)

// ScanCheckIn 管理員掃碼入場
func (h *Handler) ScanCheckIn(c *gin.Context) {
	r, err := h.Lifecycle.CheckInByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "入場成功", r.ToResponse())
}

// ScanCheckOut 管理員掃碼出場
func (h *Handler) ScanCheckOut(c *gin.Context) {
	r, err := h.Lifecycle.CheckOutByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "出場成功", r.ToResponse())
}

// RunExpiry 手動執行逾期預約掃描，與排程相同
func (h *Handler) RunExpiry(c *gin.Context) {
	n, err := h.Lifecycle.ExpireOverdue(c.Request.Context())
	if err != nil {
		// 部分成功時仍回報已處理筆數
		c.JSON(http.StatusInternalServerError, APIResponse{
			Status:  false,
			Message: "部分預約逾期處理失敗",
			Data:    gin.H{"expired": n},
			Error:   err.Error(),
			Code:    "ERR_EXPIRY_PARTIAL",
		})
		return
	}
	SuccessResponse(c, http.StatusOK, "逾期預約處理完成", gin.H{"expired": n})
}

// GetLocationReservations 管理員查看停車場的預約，可帶 status 篩選
func (h *Handler) GetLocationReservations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	status := models.ReservationStatus(c.Query("status"))
	switch status {
	case "", models.StatusPending, models.StatusConfirmed, models.StatusActive,
		models.StatusCompleted, models.StatusCancelled, models.StatusExpired:
	default:
		badRequest(c, "無效的預約狀態", nil)
		return
	}
	if _, err := h.Locations.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	rs, err := h.Engine.ListByLocation(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "停車場預約列表取得成功", toReservationResponses(rs))
}
