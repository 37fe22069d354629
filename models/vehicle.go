package models

import "time"

// Vehicle 車輛表：支援一人多車 + 預設車牌
type Vehicle struct {
	LicensePlate string    `gorm:"primaryKey;size:20;column:license_plate" json:"license_plate" binding:"required"`
	MemberID     int       `gorm:"column:member_id;index:idx_member" json:"member_id"`
	Brand        string    `gorm:"size:50;column:brand" json:"brand,omitempty"`
	Model        string    `gorm:"size:50;column:model" json:"model,omitempty"`
	Color        string    `gorm:"size:20;column:color" json:"color,omitempty"`
	IsDefault    bool      `gorm:"column:is_default;default:false" json:"is_default"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Vehicle) TableName() string {
	return "vehicle"
}

// VehicleResponse 時間一律以 UTC 輸出
type VehicleResponse struct {
	LicensePlate string    `json:"license_plate"`
	MemberID     int       `json:"member_id"`
	Brand        string    `json:"brand,omitempty"`
	Model        string    `json:"model,omitempty"`
	Color        string    `json:"color,omitempty"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

func (v *Vehicle) ToResponse() VehicleResponse {
	return VehicleResponse{
		LicensePlate: v.LicensePlate,
		MemberID:     v.MemberID,
		Brand:        v.Brand,
		Model:        v.Model,
		Color:        v.Color,
		IsDefault:    v.IsDefault,
		CreatedAt:    v.CreatedAt.UTC(),
	}
}
