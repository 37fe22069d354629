package handlers

import (
	"errors"
	"log"
	"net/http"

	"parkingreserve/services"

	"github.com/gin-gonic/gin"
)

// APIResponse 定義統一的 API 回應結構
type APIResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"` // omitempty 表示如果為空則不顯示
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse 返回成功的回應
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 返回失敗的回應
func ErrorResponse(c *gin.Context, statusCode int, code, message, err string) {
	c.JSON(statusCode, APIResponse{
		Status:  false,
		Message: message,
		Error:   err,
		Code:    code,
	})
}

type errorMapping struct {
	status  int
	message string
}

// 業務錯誤代碼對應 HTTP 狀態與顯示訊息
var errorMappings = map[services.ErrorCode]errorMapping{
	services.CodeInvalidInterval:     {http.StatusBadRequest, "結束時間必須晚於開始時間"},
	services.CodeInvalidRating:       {http.StatusBadRequest, "評分必須介於 1 到 5"},
	services.CodeInvalidAmount:       {http.StatusBadRequest, "金額必須大於 0"},
	services.CodeInvalidCapacity:     {http.StatusBadRequest, "無效的車位數"},
	services.CodeInvalidInput:        {http.StatusBadRequest, "無效的輸入資料"},
	services.CodeInvalidCredentials:  {http.StatusUnauthorized, "無效的電子郵件或密碼"},
	services.CodeForbidden:           {http.StatusForbidden, "無權限操作此預約"},
	services.CodeLocationNotFound:    {http.StatusNotFound, "停車場不存在"},
	services.CodeNotFound:            {http.StatusNotFound, "預約不存在"},
	services.CodeVehicleNotFound:     {http.StatusNotFound, "車輛不存在或不屬於您"},
	services.CodeMemberNotFound:      {http.StatusNotFound, "會員不存在"},
	services.CodeLocationInactive:    {http.StatusConflict, "停車場目前不開放預約"},
	services.CodeCapacityExceeded:    {http.StatusConflict, "該時段已額滿"},
	services.CodeNoCapacity:          {http.StatusConflict, "停車場已無可用車位"},
	services.CodeNotCancellable:      {http.StatusConflict, "此預約無法取消"},
	services.CodeInvalidTransition:   {http.StatusConflict, "預約狀態不允許此操作"},
	services.CodeAlreadyPaid:         {http.StatusConflict, "此預約已付款"},
	services.CodeFeedbackExists:      {http.StatusConflict, "已評價過此預約"},
	services.CodeAlreadyExists:       {http.StatusConflict, "資料已存在"},
	services.CodeCheckInWindow:       {http.StatusUnprocessableEntity, "不在可入場的時段內"},
	services.CodeInsufficientFunds:   {http.StatusPaymentRequired, "錢包餘額不足"},
	services.CodeTransactionConflict: {http.StatusServiceUnavailable, "系統忙碌，請稍後再試"},
	services.CodeStoreUnavailable:    {http.StatusServiceUnavailable, "資料庫暫時無法使用"},
}

// respondError 將 services 錯誤轉成統一回應；錯誤內容帶具體原因
func respondError(c *gin.Context, err error) {
	var be *services.BookingError
	if errors.As(err, &be) {
		if m, ok := errorMappings[be.Code]; ok {
			if m.status >= http.StatusInternalServerError {
				log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
			}
			ErrorResponse(c, m.status, "ERR_"+string(be.Code), m.message, be.Message)
			return
		}
	}
	log.Printf("%s %s failed with unexpected error: %v", c.Request.Method, c.FullPath(), err)
	ErrorResponse(c, http.StatusInternalServerError, "ERR_INTERNAL", "伺服器錯誤", "internal server error")
}

// badRequest 輸入格式錯誤
func badRequest(c *gin.Context, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	ErrorResponse(c, http.StatusBadRequest, "ERR_INVALID_INPUT", message, detail)
}
