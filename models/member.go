package models

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Member 會員（客戶或管理員），WalletBalance 為錢包餘額
type Member struct {
	MemberID      int       `json:"member_id" gorm:"primaryKey;autoIncrement;type:INT"`
	Name          string    `json:"name" gorm:"type:varchar(50);not null"`
	Email         string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password      string    `json:"-" gorm:"type:varchar(100);not null"`
	Role          string    `json:"role" gorm:"type:varchar(16);not null;default:customer"`
	WalletBalance float64   `json:"wallet_balance" gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Member) TableName() string {
	return "member"
}

type MemberResponse struct {
	MemberID      int     `json:"member_id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	WalletBalance float64 `json:"wallet_balance"`
}

func (m *Member) ToResponse() MemberResponse {
	return MemberResponse{
		MemberID:      m.MemberID,
		Name:          m.Name,
		Email:         m.Email,
		Role:          m.Role,
		WalletBalance: m.WalletBalance,
	}
}
