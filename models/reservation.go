package models

import "time"

// ReservationStatus 預約狀態
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending" // 保留給日後的審核流程，建立時不使用
	StatusConfirmed ReservationStatus = "confirmed"
	StatusActive    ReservationStatus = "active"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusExpired   ReservationStatus = "expired"
)

// CapacityConsumingStatuses 佔用車位的狀態
var CapacityConsumingStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusActive}

// ConsumesCapacity 此狀態是否佔用車位
func (s ReservationStatus) ConsumesCapacity() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusActive:
		return true
	}
	return false
}

// IsTerminal 終止狀態不可再轉移
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

var transitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCancelled, StatusExpired},
	StatusActive:    {StatusCompleted},
}

// CanTransition 檢查狀態機是否允許 from -> to
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reservation 預約（半開區間 [StartTime, EndTime)），永不刪除
type Reservation struct {
	ID              int               `json:"id" gorm:"primaryKey;autoIncrement;type:INT"`
	Code            string            `json:"code" gorm:"type:varchar(36);uniqueIndex;not null"`
	MemberID        int               `json:"member_id" gorm:"index;not null;type:INT"`
	LocationID      int               `json:"location_id" gorm:"index:idx_location_status,priority:1;not null;type:INT"`
	VehicleID       string            `json:"vehicle_id" gorm:"type:varchar(20)"`
	StartTime       time.Time         `json:"start_time" gorm:"not null"`
	EndTime         time.Time         `json:"end_time" gorm:"not null"`
	PricePerHour    float64           `json:"price_per_hour" gorm:"type:decimal(10,2);not null"`
	TotalPrice      float64           `json:"total_price" gorm:"type:decimal(10,2);not null"`
	Status          ReservationStatus `json:"status" gorm:"type:varchar(16);index:idx_location_status,priority:2;not null"`
	Notes           string            `json:"notes" gorm:"type:varchar(255)"`
	CheckedInAt     *time.Time        `json:"checked_in_at"`
	CheckedOutAt    *time.Time        `json:"checked_out_at"`
	CancelledAt     *time.Time        `json:"cancelled_at"`
	CancelReason    string            `json:"cancel_reason" gorm:"type:varchar(255)"`
	CancellationFee *float64          `json:"cancellation_fee" gorm:"type:decimal(10,2)"`
	RefundAmount    *float64          `json:"refund_amount" gorm:"type:decimal(10,2)"`
	OverstayFee     *float64          `json:"overstay_fee" gorm:"type:decimal(10,2)"`
	PaidAt          *time.Time        `json:"paid_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Feedback        *Feedback         `json:"-" gorm:"foreignKey:ReservationID;references:ID"`
}

func (Reservation) TableName() string {
	return "reservation"
}

// Feedback 已完成預約的評價，每筆預約最多一則
type Feedback struct {
	ID            int       `json:"id" gorm:"primaryKey;autoIncrement;type:INT"`
	ReservationID int       `json:"reservation_id" gorm:"uniqueIndex;not null;type:INT"`
	MemberID      int       `json:"member_id" gorm:"index;not null;type:INT"`
	Rating        int       `json:"rating" gorm:"type:tinyint;not null"`
	Comment       string    `json:"comment" gorm:"type:varchar(500)"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Feedback) TableName() string {
	return "reservation_feedback"
}

type FeedbackResponse struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ReservationResponse struct {
	ID              int               `json:"id"`
	Code            string            `json:"code"`
	MemberID        int               `json:"member_id"`
	LocationID      int               `json:"location_id"`
	VehicleID       string            `json:"vehicle_id,omitempty"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	PricePerHour    float64           `json:"price_per_hour"`
	TotalPrice      float64           `json:"total_price"`
	Status          ReservationStatus `json:"status"`
	Notes           string            `json:"notes,omitempty"`
	CheckedInAt     *time.Time        `json:"checked_in_at,omitempty"`
	CheckedOutAt    *time.Time        `json:"checked_out_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason    string            `json:"cancel_reason,omitempty"`
	CancellationFee *float64          `json:"cancellation_fee,omitempty"`
	RefundAmount    *float64          `json:"refund_amount,omitempty"`
	OverstayFee     *float64          `json:"overstay_fee,omitempty"`
	Paid            bool              `json:"paid"`
	Feedback        *FeedbackResponse `json:"feedback,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (r *Reservation) ToResponse() ReservationResponse {
	resp := ReservationResponse{
		ID:              r.ID,
		Code:            r.Code,
		MemberID:        r.MemberID,
		LocationID:      r.LocationID,
		VehicleID:       r.VehicleID,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		PricePerHour:    r.PricePerHour,
		TotalPrice:      r.TotalPrice,
		Status:          r.Status,
		Notes:           r.Notes,
		CheckedInAt:     r.CheckedInAt,
		CheckedOutAt:    r.CheckedOutAt,
		CancelledAt:     r.CancelledAt,
		CancelReason:    r.CancelReason,
		CancellationFee: r.CancellationFee,
		RefundAmount:    r.RefundAmount,
		OverstayFee:     r.OverstayFee,
		Paid:            r.PaidAt != nil,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Feedback != nil {
		resp.Feedback = &FeedbackResponse{
			Rating:    r.Feedback.Rating,
			Comment:   r.Feedback.Comment,
			CreatedAt: r.Feedback.CreatedAt,
		}
	}
	return resp
}
