package handlers

import (
	"log"
	"net/http"
	"regexp"

	"parkingreserve/utils"

	"github.com/gin-gonic/gin"
)

// 電子郵件驗證 regex
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var (
	letterRegex = regexp.MustCompile(`[a-zA-Z]`)
	digitRegex  = regexp.MustCompile(`[0-9]`)
)

type registerInput struct {
	Name     string `json:"name" binding:"required,max=50"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterMember 註冊會員資料檢查
func (h *Handler) RegisterMember(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Printf("Invalid input data: %v", err)
		badRequest(c, "無效的輸入資料", err)
		return
	}
	if !emailRegex.MatchString(input.Email) {
		badRequest(c, "請提供有效的電子郵件地址", nil)
		return
	}
	// 密碼最少 8 個字元，至少一個字母和一個數字
	if len(input.Password) < 8 || !letterRegex.MatchString(input.Password) || !digitRegex.MatchString(input.Password) {
		badRequest(c, "密碼必須至少8個字符，包含字母和數字", nil)
		return
	}

	member, err := h.Members.Register(c.Request.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "會員註冊成功", member.ToResponse())
}

// LoginMember 登入並取得 token
func (h *Handler) LoginMember(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "請提供電子郵件和密碼", err)
		return
	}

	member, err := h.Members.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := utils.GenerateToken(member.MemberID, member.Role, h.JWTSecret, h.TokenTTL)
	if err != nil {
		log.Printf("Failed to generate token for member %d: %v", member.MemberID, err)
		ErrorResponse(c, http.StatusInternalServerError, "ERR_TOKEN_GENERATION", "產生 token 失敗", err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "登入成功", gin.H{
		"token":  token,
		"member": member.ToResponse(),
	})
}
