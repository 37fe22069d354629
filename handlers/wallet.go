package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetWallet 餘額與交易紀錄
func (h *Handler) GetWallet(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	balance, err := h.Wallet.Balance(ctx, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.Wallet.History(ctx, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "錢包資料取得成功", gin.H{
		"balance":      balance,
		"transactions": history,
	})
}

// Deposit 儲值
func (h *Handler) Deposit(c *gin.Context) {
	memberID, _, ok := currentMember(c)
	if !ok {
		return
	}
	var input struct {
		Amount      float64 `json:"amount" binding:"required"`
		Description string  `json:"description" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "請提供儲值金額", err)
		return
	}
	member, err := h.Wallet.Deposit(c.Request.Context(), memberID, input.Amount, input.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "儲值成功", gin.H{"balance": member.WalletBalance})
}
