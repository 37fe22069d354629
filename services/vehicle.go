package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"parkingreserve/models"

	"gorm.io/gorm"
)

// VehicleService 一人多車；第一台車自動設為預設
type VehicleService struct {
	runner *TxRunner
}

func NewVehicleService(runner *TxRunner) *VehicleService {
	return &VehicleService{runner: runner}
}

func (s *VehicleService) List(ctx context.Context, memberID int) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := s.runner.DB(ctx).
		Where("member_id = ?", memberID).
		Order("is_default DESC, created_at ASC").
		Find(&vehicles).Error; err != nil {
		return nil, storeError("list vehicles", err)
	}
	return vehicles, nil
}

// Create 車牌全域唯一
func (s *VehicleService) Create(ctx context.Context, v *models.Vehicle) error {
	v.LicensePlate = strings.ToUpper(strings.TrimSpace(v.LicensePlate))
	if v.LicensePlate == "" {
		return invalidInput("license_plate is required")
	}
	err := s.runner.Run(ctx, "vehicle.create", func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Vehicle{}).Where("license_plate = ?", v.LicensePlate).Count(&n).Error; err != nil {
			return fmt.Errorf("check license plate: %w", err)
		}
		if n > 0 {
			return alreadyExists("license plate %s is already registered", v.LicensePlate)
		}
		var owned int64
		if err := tx.Model(&models.Vehicle{}).Where("member_id = ?", v.MemberID).Count(&owned).Error; err != nil {
			return fmt.Errorf("count member vehicles: %w", err)
		}
		v.IsDefault = owned == 0
		if err := tx.Create(v).Error; err != nil {
			if isDuplicateKey(err) {
				return alreadyExists("license plate %s is already registered", v.LicensePlate)
			}
			return fmt.Errorf("insert vehicle: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("Vehicle %s registered for member %d (default=%v)", v.LicensePlate, v.MemberID, v.IsDefault)
	return nil
}

// SetDefault 同一會員只會有一台預設車
func (s *VehicleService) SetDefault(ctx context.Context, memberID int, plate string) (*models.Vehicle, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	var v models.Vehicle
	err := s.runner.Run(ctx, "vehicle.default", func(tx *gorm.DB) error {
		err := tx.Where("license_plate = ? AND member_id = ?", plate, memberID).First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVehicleNotFound
		}
		if err != nil {
			return fmt.Errorf("get vehicle: %w", err)
		}
		if err := tx.Model(&models.Vehicle{}).Where("member_id = ?", memberID).
			Update("is_default", false).Error; err != nil {
			return fmt.Errorf("clear default vehicle: %w", err)
		}
		if err := tx.Model(&models.Vehicle{}).Where("license_plate = ?", plate).
			Update("is_default", true).Error; err != nil {
			return fmt.Errorf("set default vehicle: %w", err)
		}
		v.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete 刪除預設車時改由最早登記的車接手
func (s *VehicleService) Delete(ctx context.Context, memberID int, plate string) error {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	return s.runner.Run(ctx, "vehicle.delete", func(tx *gorm.DB) error {
		var v models.Vehicle
		err := tx.Where("license_plate = ? AND member_id = ?", plate, memberID).First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVehicleNotFound
		}
		if err != nil {
			return fmt.Errorf("get vehicle: %w", err)
		}
		if err := tx.Delete(&v).Error; err != nil {
			return fmt.Errorf("delete vehicle: %w", err)
		}
		if !v.IsDefault {
			return nil
		}
		var next models.Vehicle
		err = tx.Where("member_id = ?", memberID).Order("created_at ASC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find next default vehicle: %w", err)
		}
		return tx.Model(&models.Vehicle{}).Where("license_plate = ?", next.LicensePlate).
			Update("is_default", true).Error
	})
}
