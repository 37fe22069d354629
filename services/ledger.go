package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"parkingreserve/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CapacityLedger 唯一可以寫入 available_slots 的元件
// 所有方法都必須在呼叫端的交易內執行
type CapacityLedger struct {
	now func() time.Time
}

func NewCapacityLedger(now func() time.Time) *CapacityLedger {
	if now == nil {
		now = utcNow
	}
	return &CapacityLedger{now: now}
}

// Reserve 佔用一個車位，可用車位 <= 0 時回傳 ErrNoCapacity
func (l *CapacityLedger) Reserve(ctx context.Context, tx *gorm.DB, locationID int) error {
	loc, err := lockLocation(tx.WithContext(ctx), locationID)
	if err != nil {
		return err
	}
	if loc.AvailableSlots <= 0 {
		return ErrNoCapacity
	}
	return l.swap(tx.WithContext(ctx), loc, loc.AvailableSlots-1)
}

// Release 釋放一個車位，上限為 total_slots
func (l *CapacityLedger) Release(ctx context.Context, tx *gorm.DB, locationID int) error {
	loc, err := lockLocation(tx.WithContext(ctx), locationID)
	if err != nil {
		return err
	}
	next := loc.AvailableSlots + 1
	if next > loc.TotalSlots {
		log.Printf("Release clamped at capacity: location_id=%d, available=%d, total=%d", loc.ID, loc.AvailableSlots, loc.TotalSlots)
		next = loc.TotalSlots
	}
	return l.swap(tx.WithContext(ctx), loc, next)
}

// Reconcile 管理員修改總車位後重算可用車位：clamp(newTotal - 佔用中預約數, 0, newTotal)
func (l *CapacityLedger) Reconcile(ctx context.Context, tx *gorm.DB, locationID, newTotal int) (*models.ParkingLocation, error) {
	if newTotal < 0 {
		return nil, ErrInvalidCapacity
	}
	db := tx.WithContext(ctx)
	loc, err := lockLocation(db, locationID)
	if err != nil {
		return nil, err
	}

	var outstanding int64
	if err := db.Model(&models.Reservation{}).
		Where("location_id = ? AND status IN ?", locationID, models.CapacityConsumingStatuses).
		Count(&outstanding).Error; err != nil {
		return nil, fmt.Errorf("count outstanding reservations: %w", err)
	}

	available := newTotal - int(outstanding)
	if available < 0 {
		available = 0
	}
	if available > newTotal {
		available = newTotal
	}

	now := l.now()
	res := db.Model(&models.ParkingLocation{}).
		Where("id = ? AND available_slots = ?", loc.ID, loc.AvailableSlots).
		Updates(map[string]interface{}{
			"total_slots":     newTotal,
			"available_slots": available,
			"updated_at":      now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("reconcile parking location %d: %w", loc.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errConflict
	}
	log.Printf("Reconciled location %d: total %d -> %d, available %d -> %d (outstanding %d)",
		loc.ID, loc.TotalSlots, newTotal, loc.AvailableSlots, available, outstanding)

	loc.TotalSlots = newTotal
	loc.AvailableSlots = available
	loc.UpdatedAt = now
	return loc, nil
}

// swap 以讀到的值做 compare-and-set，0 筆更新代表有人搶先寫入
func (l *CapacityLedger) swap(db *gorm.DB, loc *models.ParkingLocation, next int) error {
	res := db.Model(&models.ParkingLocation{}).
		Where("id = ? AND available_slots = ?", loc.ID, loc.AvailableSlots).
		Updates(map[string]interface{}{
			"available_slots": next,
			"updated_at":      l.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update available slots for location %d: %w", loc.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return errConflict
	}
	return nil
}

// lockLocation SELECT ... FOR UPDATE 鎖住停車場列
func lockLocation(db *gorm.DB, locationID int) (*models.ParkingLocation, error) {
	var loc models.ParkingLocation
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&loc, locationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock parking location %d: %w", locationID, err)
	}
	return &loc, nil
}

// lockReservation SELECT ... FOR UPDATE 鎖住預約列
func lockReservation(db *gorm.DB, id int) (*models.Reservation, error) {
	var r models.Reservation
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock reservation %d: %w", id, err)
	}
	return &r, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
