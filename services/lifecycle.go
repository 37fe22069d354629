package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"parkingreserve/metrics"
	"parkingreserve/models"

	"gorm.io/gorm"
)

// LifecycleCoordinator 依狀態機推進預約：入場、出場、取消、逾期、評價
type LifecycleCoordinator struct {
	runner *TxRunner
	ledger *CapacityLedger
	engine *ReservationEngine
	events *Dispatcher
	grace  time.Duration
	now    func() time.Time
}

func NewLifecycleCoordinator(runner *TxRunner, ledger *CapacityLedger, engine *ReservationEngine, events *Dispatcher, grace time.Duration, now func() time.Time) *LifecycleCoordinator {
	if now == nil {
		now = utcNow
	}
	if grace < 0 {
		grace = 0
	}
	return &LifecycleCoordinator{runner: runner, ledger: ledger, engine: engine, events: events, grace: grace, now: now}
}

// applyFunc 回傳要寫入的欄位；可回傳業務錯誤中止轉移
type applyFunc func(r *models.Reservation, now time.Time) (map[string]interface{}, error)

// transition 鎖住預約、驗證狀態轉移並以 status 做 compare-and-set
// 離開佔用狀態時釋放一個車位
func (c *LifecycleCoordinator) transition(ctx context.Context, op string, memberID, id int, to models.ReservationStatus, apply applyFunc) (*models.Reservation, error) {
	var out *models.Reservation
	err := c.runner.Run(ctx, op, func(tx *gorm.DB) error {
		r, err := lockReservation(tx, id)
		if err != nil {
			return err
		}
		if memberID != 0 && r.MemberID != memberID {
			return ErrForbidden
		}
		from := r.Status
		if !models.CanTransition(from, to) {
			return transitionError(string(from), string(to))
		}

		now := c.now()
		updates := map[string]interface{}{}
		if apply != nil {
			if updates, err = apply(r, now); err != nil {
				return err
			}
		}
		if updates == nil {
			updates = map[string]interface{}{}
		}
		updates["status"] = to
		updates["updated_at"] = now

		res := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ?", r.ID, from).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("%s reservation %d: %w", op, r.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return errConflict
		}

		if from.ConsumesCapacity() && !to.ConsumesCapacity() {
			if err := c.ledger.Release(ctx, tx, r.LocationID); err != nil {
				return err
			}
		}

		if err := tx.First(r, r.ID).Error; err != nil {
			return fmt.Errorf("reload reservation %d: %w", r.ID, err)
		}
		out = r
		return nil
	})
	metrics.Booking().ObserveOperation(strings.TrimPrefix(op, "reservation."), outcomeOf(err))
	if err != nil {
		return nil, err
	}
	// 提交後立即讓可用車位快取失效，不經過限速的事件訂閱
	if c.engine != nil {
		c.engine.cache.Invalidate(ctx, out.LocationID)
	}
	return out, nil
}

// CheckIn confirmed -> active，只能在 [開始 - 寬限, 結束) 之間；不異動車位
func (c *LifecycleCoordinator) CheckIn(ctx context.Context, memberID, id int) (*models.Reservation, error) {
	r, err := c.transition(ctx, "reservation.check_in", memberID, id, models.StatusActive,
		func(r *models.Reservation, now time.Time) (map[string]interface{}, error) {
			if now.Before(r.StartTime.Add(-c.grace)) || !now.Before(r.EndTime) {
				return nil, ErrCheckInWindow
			}
			return map[string]interface{}{"checked_in_at": now}, nil
		})
	if err != nil {
		log.Printf("Check-in failed for reservation %d: %v", id, err)
		return nil, err
	}
	log.Printf("Reservation %s checked in at location %d", r.Code, r.LocationID)
	c.events.Publish(eventFrom(EventCheckedIn, r, c.now()))
	return r, nil
}

// CheckOut active -> completed，超過結束時間則加收超時費用
func (c *LifecycleCoordinator) CheckOut(ctx context.Context, memberID, id int) (*models.Reservation, error) {
	r, err := c.transition(ctx, "reservation.check_out", memberID, id, models.StatusCompleted,
		func(r *models.Reservation, now time.Time) (map[string]interface{}, error) {
			updates := map[string]interface{}{"checked_out_at": now}
			if fee := OverstayFee(r.EndTime, now, r.PricePerHour); fee > 0 {
				updates["overstay_fee"] = fee
				updates["total_price"] = roundCents(r.TotalPrice + fee)
			}
			return updates, nil
		})
	if err != nil {
		log.Printf("Check-out failed for reservation %d: %v", id, err)
		return nil, err
	}
	log.Printf("Reservation %s checked out, total %.2f", r.Code, r.TotalPrice)
	c.events.Publish(eventFrom(EventCompleted, r, c.now()))
	return r, nil
}

// Cancel 交給 ReservationEngine 計算退款
func (c *LifecycleCoordinator) Cancel(ctx context.Context, memberID, id int, reason string) (*models.Reservation, error) {
	return c.engine.Cancel(ctx, CancelReservationInput{ReservationID: id, MemberID: memberID, Reason: reason})
}

// CheckInByCode 管理員掃描預約代碼入場
func (c *LifecycleCoordinator) CheckInByCode(ctx context.Context, code string) (*models.Reservation, error) {
	r, err := c.engine.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.CheckIn(ctx, 0, r.ID)
}

// CheckOutByCode 管理員掃描預約代碼出場
func (c *LifecycleCoordinator) CheckOutByCode(ctx context.Context, code string) (*models.Reservation, error) {
	r, err := c.engine.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.CheckOut(ctx, 0, r.ID)
}

// ExpireOverdue 將已過結束時間仍未入場的 confirmed 預約標記為 expired
// 每筆一個交易，已被入場或取消搶先的預約略過
func (c *LifecycleCoordinator) ExpireOverdue(ctx context.Context) (int, error) {
	now := c.now().UTC()
	var candidates []models.Reservation
	if err := c.runner.DB(ctx).Select("id", "code", "end_time").
		Where("status = ? AND end_time < ?", models.StatusConfirmed, now).
		Find(&candidates).Error; err != nil {
		return 0, storeError("query overdue reservations", err)
	}

	expired := 0
	var errs []error
	for _, cand := range candidates {
		r, err := c.transition(ctx, "reservation.expire", 0, cand.ID, models.StatusExpired,
			func(r *models.Reservation, now time.Time) (map[string]interface{}, error) {
				if !now.After(r.EndTime) {
					return nil, transitionError(string(r.Status), string(models.StatusExpired))
				}
				return map[string]interface{}{}, nil
			})
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				log.Printf("Skip expiring reservation %s: %v", cand.Code, err)
				continue
			}
			log.Printf("Expire reservation %s failed: %v", cand.Code, err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		expired++
		c.events.Publish(eventFrom(EventExpired, r, c.now()))
	}

	if expired > 0 {
		log.Printf("Expired %d overdue reservations", expired)
	}
	return expired, errors.Join(errs...)
}

// SubmitFeedback 只有擁有者能對 completed 的預約評價一次
func (c *LifecycleCoordinator) SubmitFeedback(ctx context.Context, memberID, id, rating int, comment string) (*models.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	var fb models.Feedback
	err := c.runner.Run(ctx, "reservation.feedback", func(tx *gorm.DB) error {
		r, err := lockReservation(tx, id)
		if err != nil {
			return err
		}
		if r.MemberID != memberID {
			return ErrForbidden
		}
		if r.Status != models.StatusCompleted {
			return &BookingError{
				Code:    CodeInvalidTransition,
				Message: fmt.Sprintf("feedback is only accepted for completed reservations, got %s", r.Status),
			}
		}
		var n int64
		if err := tx.Model(&models.Feedback{}).Where("reservation_id = ?", r.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("check existing feedback: %w", err)
		}
		if n > 0 {
			return ErrFeedbackExists
		}
		fb = models.Feedback{
			ReservationID: r.ID,
			MemberID:      memberID,
			Rating:        rating,
			Comment:       strings.TrimSpace(comment),
			CreatedAt:     c.now(),
		}
		if err := tx.Create(&fb).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrFeedbackExists
			}
			return fmt.Errorf("insert feedback: %w", err)
		}
		return nil
	})
	metrics.Booking().ObserveOperation("feedback", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	log.Printf("Feedback %d stars recorded for reservation %d", rating, id)
	return &fb, nil
}
