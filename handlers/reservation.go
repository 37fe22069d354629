package handlers

import (
	"log"
	"net/http"

	"parkingreserve/models"
	"parkingreserve/services"

	"github.com/gin-gonic/gin"
)

type createReservationInput struct {
	LocationID int    `json:"location_id" binding:"required,gt=0"`
	VehicleID  string `json:"vehicle_id" binding:"omitempty,max=20"`
	StartTime  string `json:"start_time" binding:"required"`
	EndTime    string `json:"end_time" binding:"required"`
	Notes      string `json:"notes" binding:"omitempty,max=255"`
}

type cancelReservationInput struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

type feedbackInput struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

func toReservationResponses(rs []models.Reservation) []models.ReservationResponse {
	resp := make([]models.ReservationResponse, len(rs))
	for i := range rs {
		resp[i] = rs[i].ToResponse()
	}
	return resp
}

// CreateReservation 建立預約
func (h *Handler) CreateReservation(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	var input createReservationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Printf("Invalid reservation input: %v", err)
		badRequest(c, "無效的預約資料", err)
		return
	}
	start, err := parseTime(input.StartTime)
	if err != nil {
		badRequest(c, "無效的開始時間", err)
		return
	}
	end, err := parseTime(input.EndTime)
	if err != nil {
		badRequest(c, "無效的結束時間", err)
		return
	}

	r, err := h.Engine.Create(c.Request.Context(), services.CreateReservationInput{
		MemberID:   memberID,
		LocationID: input.LocationID,
		VehicleID:  input.VehicleID,
		Start:      start,
		End:        end,
		Notes:      input.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "預約成功", r.ToResponse())
}

// GetMyReservations 取得我的所有預約
func (h *Handler) GetMyReservations(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	rs, err := h.Engine.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "預約列表取得成功", toReservationResponses(rs))
}

// GetReservation 取得單一預約；非管理員只能看自己的
func (h *Handler) GetReservation(c *gin.Context) {
	actor, ok := actingMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Engine.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "預約資料取得成功", r.ToResponse())
}

// CancelReservation 取消預約，依距離開始時間計算退款
func (h *Handler) CancelReservation(c *gin.Context) {
	actor, ok := actingMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input cancelReservationInput
	// body 可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "無效的取消資料", err)
			return
		}
	}

	r, err := h.Lifecycle.Cancel(c.Request.Context(), actor, id, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "預約已取消", r.ToResponse())
}

// CheckIn 入場
func (h *Handler) CheckIn(c *gin.Context) {
	actor, ok := actingMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Lifecycle.CheckIn(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "入場成功", r.ToResponse())
}

// CheckOut 出場，超時會加收費用
func (h *Handler) CheckOut(c *gin.Context) {
	actor, ok := actingMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Lifecycle.CheckOut(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "出場成功", r.ToResponse())
}

// PayReservation 以錢包付款
func (h *Handler) PayReservation(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Wallet.PayReservation(c.Request.Context(), memberID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "付款成功", r.ToResponse())
}

// SubmitFeedback 已完成的預約可評價一次
func (h *Handler) SubmitFeedback(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input feedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "請提供評分", err)
		return
	}
	fb, err := h.Lifecycle.SubmitFeedback(c.Request.Context(), memberID, id, input.Rating, input.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "評價成功", models.FeedbackResponse{
		Rating:    fb.Rating,
		Comment:   fb.Comment,
		CreatedAt: fb.CreatedAt,
	})
}
