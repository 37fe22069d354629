package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"parkingreserve/metrics"
	"parkingreserve/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletService 會員錢包：餘額異動與流水寫入永遠在同一交易
type WalletService struct {
	runner *TxRunner
	now    func() time.Time
}

func NewWalletService(runner *TxRunner, now func() time.Time) *WalletService {
	if now == nil {
		now = utcNow
	}
	return &WalletService{runner: runner, now: now}
}

// Deposit 儲值
func (s *WalletService) Deposit(ctx context.Context, memberID int, amount float64, description string) (*models.Member, error) {
	amount = roundCents(amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		description = "wallet deposit"
	}

	var member models.Member
	err := s.runner.Run(ctx, "wallet.deposit", func(tx *gorm.DB) error {
		if err := applyWalletEntry(tx, memberID, amount, models.WalletDeposit, description, nil, s.now()); err != nil {
			return err
		}
		return tx.First(&member, memberID).Error
	})
	metrics.Booking().ObserveOperation("deposit", outcomeOf(err))
	if err != nil {
		log.Printf("Deposit failed: member_id=%d, amount=%.2f, error=%v", memberID, amount, err)
		return nil, err
	}
	log.Printf("Deposit %.2f for member %d, balance %.2f", amount, memberID, member.WalletBalance)
	return &member, nil
}

// PayReservation 從錢包扣除預約總額並標記 PaidAt
func (s *WalletService) PayReservation(ctx context.Context, memberID, reservationID int) (*models.Reservation, error) {
	var paid *models.Reservation
	err := s.runner.Run(ctx, "wallet.pay", func(tx *gorm.DB) error {
		r, err := lockReservation(tx, reservationID)
		if err != nil {
			return err
		}
		if r.MemberID != memberID {
			return ErrForbidden
		}
		if r.PaidAt != nil {
			return ErrAlreadyPaid
		}
		if r.Status == models.StatusCancelled || r.Status == models.StatusExpired {
			return &BookingError{
				Code:    CodeInvalidTransition,
				Message: fmt.Sprintf("reservation with status %s cannot be paid", r.Status),
			}
		}

		now := s.now()
		desc := fmt.Sprintf("payment for reservation %s", r.Code)
		if err := applyWalletEntry(tx, memberID, -r.TotalPrice, models.WalletPayment, desc, &r.ID, now); err != nil {
			return err
		}
		res := tx.Model(&models.Reservation{}).
			Where("id = ? AND paid_at IS NULL", r.ID).
			Updates(map[string]interface{}{"paid_at": now, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("mark reservation %d paid: %w", r.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return errConflict
		}
		r.PaidAt = &now
		r.UpdatedAt = now
		paid = r
		return nil
	})
	metrics.Booking().ObserveOperation("pay", outcomeOf(err))
	if err != nil {
		log.Printf("Pay reservation %d failed: member_id=%d, error=%v", reservationID, memberID, err)
		return nil, err
	}
	log.Printf("Reservation %s paid: %.2f by member %d", paid.Code, paid.TotalPrice, memberID)
	return paid, nil
}

func (s *WalletService) Balance(ctx context.Context, memberID int) (float64, error) {
	var member models.Member
	err := s.runner.DB(ctx).Select("member_id", "wallet_balance").First(&member, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrMemberNotFound
	}
	if err != nil {
		return 0, storeError("get wallet balance", err)
	}
	return member.WalletBalance, nil
}

// History 依時間由新到舊
func (s *WalletService) History(ctx context.Context, memberID int) ([]models.WalletTransaction, error) {
	var txs []models.WalletTransaction
	if err := s.runner.DB(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC, id DESC").
		Find(&txs).Error; err != nil {
		return nil, storeError("list wallet transactions", err)
	}
	return txs, nil
}

// applyWalletEntry 鎖住會員列、更新餘額並寫入一筆流水；餘額不可為負
func applyWalletEntry(tx *gorm.DB, memberID int, amount float64, typ models.WalletTransactionType, description string, reservationID *int, now time.Time) error {
	var member models.Member
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&member, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMemberNotFound
	}
	if err != nil {
		return fmt.Errorf("lock member %d: %w", memberID, err)
	}

	balance := roundCents(member.WalletBalance + amount)
	if balance < 0 {
		return ErrInsufficientFunds
	}
	if err := tx.Model(&models.Member{}).
		Where("member_id = ?", memberID).
		Updates(map[string]interface{}{"wallet_balance": balance, "updated_at": now}).Error; err != nil {
		return fmt.Errorf("update wallet balance for member %d: %w", memberID, err)
	}

	entry := models.WalletTransaction{
		MemberID:      memberID,
		Amount:        roundCents(amount),
		Type:          typ,
		Description:   description,
		ReservationID: reservationID,
		CreatedAt:     now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}
