package models

import (
	"strings"
	"time"
)

// ParkingLocation 停車場：固定總車位數與可用車位計數
// AvailableSlots 只能經由 services.CapacityLedger 修改
type ParkingLocation struct {
	ID             int       `json:"id" gorm:"primaryKey;autoIncrement;type:INT"`
	Name           string    `json:"name" gorm:"type:varchar(100);not null"`
	Address        string    `json:"address" gorm:"type:varchar(200)"`
	Latitude       float64   `json:"latitude" gorm:"type:decimal(9,6);default:0.0"`
	Longitude      float64   `json:"longitude" gorm:"type:decimal(9,6);default:0.0"`
	TotalSlots     int       `json:"total_slots" gorm:"type:INT;not null"`
	AvailableSlots int       `json:"available_slots" gorm:"type:INT;not null"`
	PricePerHour   float64   `json:"price_per_hour" gorm:"type:decimal(10,2);not null"`
	Amenities      string    `json:"-" gorm:"type:varchar(255)"` // 以逗號分隔
	IsActive       bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (ParkingLocation) TableName() string {
	return "parking_location"
}

// AmenityList 將 Amenities 欄位拆成切片
func (p *ParkingLocation) AmenityList() []string {
	if p.Amenities == "" {
		return []string{}
	}
	parts := strings.Split(p.Amenities, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinAmenities 將標籤組回資料庫格式
func JoinAmenities(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return strings.Join(cleaned, ",")
}

// ParkingLocationResponse 停車場回應結構
type ParkingLocationResponse struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	TotalSlots     int       `json:"total_slots"`
	AvailableSlots int       `json:"available_slots"`
	PricePerHour   float64   `json:"price_per_hour"`
	Amenities      []string  `json:"amenities"`
	IsActive       bool      `json:"is_active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p *ParkingLocation) ToResponse() ParkingLocationResponse {
	return ParkingLocationResponse{
		ID:             p.ID,
		Name:           p.Name,
		Address:        p.Address,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		TotalSlots:     p.TotalSlots,
		AvailableSlots: p.AvailableSlots,
		PricePerHour:   p.PricePerHour,
		Amenities:      p.AmenityList(),
		IsActive:       p.IsActive,
		UpdatedAt:      p.UpdatedAt,
	}
}

// CreateParkingLocationRequest 管理員新增停車場
type CreateParkingLocationRequest struct {
	Name         string   `json:"name" binding:"required,max=100"`
	Address      string   `json:"address" binding:"omitempty,max=200"`
	Latitude     float64  `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude    float64  `json:"longitude" binding:"gte=-180,lte=180"`
	TotalSlots   int      `json:"total_slots" binding:"required,gt=0"`
	PricePerHour float64  `json:"price_per_hour" binding:"required,gt=0"`
	Amenities    []string `json:"amenities"`
}

// UpdateCapacityRequest 管理員修改總車位
type UpdateCapacityRequest struct {
	TotalSlots *int `json:"total_slots" binding:"required,gte=0"`
}

// UpdateActiveRequest 管理員啟用/停用停車場
type UpdateActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}
