package models

import "time"

// WalletTransactionType 錢包交易類型
type WalletTransactionType string

const (
	WalletDeposit WalletTransactionType = "deposit"
	WalletPayment WalletTransactionType = "payment"
	WalletRefund  WalletTransactionType = "refund"
)

// WalletTransaction 錢包流水，Amount 帶正負號；餘額 = 所有 Amount 的總和
type WalletTransaction struct {
	ID            int                   `json:"id" gorm:"primaryKey;autoIncrement;type:INT"`
	MemberID      int                   `json:"member_id" gorm:"index;not null;type:INT"`
	Amount        float64               `json:"amount" gorm:"type:decimal(10,2);not null"`
	Type          WalletTransactionType `json:"type" gorm:"type:varchar(16);not null"`
	Description   string                `json:"description" gorm:"type:varchar(255)"`
	ReservationID *int                  `json:"reservation_id,omitempty" gorm:"index;type:INT"`
	CreatedAt     time.Time             `json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}

// AllModels 供 AutoMigrate 使用
func AllModels() []interface{} {
	return []interface{}{
		&Member{},
		&Vehicle{},
		&ParkingLocation{},
		&Reservation{},
		&Feedback{},
		&WalletTransaction{},
	}
}
