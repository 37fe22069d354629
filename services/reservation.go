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

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateReservationInput 建立預約；MemberID 由身分驗證層提供
type CreateReservationInput struct {
	MemberID   int
	LocationID int
	VehicleID  string
	Start      time.Time
	End        time.Time
	Notes      string
}

// CancelReservationInput MemberID 為 0 表示由管理員操作，不檢查擁有者
type CancelReservationInput struct {
	ReservationID int
	MemberID      int
	Reason        string
}

// ReservationEngine 預約建立與取消：容量感知的重疊檢查、原子寫入、退款計算
type ReservationEngine struct {
	runner *TxRunner
	ledger *CapacityLedger
	events *Dispatcher
	cache  *AvailabilityCache
	now    func() time.Time

	// beforeCommit 在所有寫入完成、提交之前呼叫，回傳錯誤會讓整筆交易回滾
	beforeCommit func() error
}

func NewReservationEngine(runner *TxRunner, ledger *CapacityLedger, events *Dispatcher, cache *AvailabilityCache, now func() time.Time) *ReservationEngine {
	if now == nil {
		now = utcNow
	}
	return &ReservationEngine{runner: runner, ledger: ledger, events: events, cache: cache, now: now}
}

// Create 在單一交易內重新驗證停車場、計算重疊數、寫入預約並佔用車位
func (e *ReservationEngine) Create(ctx context.Context, in CreateReservationInput) (*models.Reservation, error) {
	start, end := in.Start.UTC(), in.End.UTC()
	in.VehicleID = strings.ToUpper(strings.TrimSpace(in.VehicleID))
	if !end.After(start) {
		metrics.Booking().ObserveOperation("create", outcomeOf(ErrInvalidInterval))
		return nil, ErrInvalidInterval
	}

	var created models.Reservation
	err := e.runner.Run(ctx, "reservation.create", func(tx *gorm.DB) error {
		// 先鎖停車場列，同一停車場的建立請求在此序列化
		loc, err := lockLocation(tx, in.LocationID)
		if err != nil {
			return err
		}
		if !loc.IsActive {
			return ErrLocationInactive
		}
		if in.VehicleID != "" {
			if err := checkVehicleOwner(tx, in.MemberID, in.VehicleID); err != nil {
				return err
			}
		}

		overlapping, err := countOverlapping(tx, loc.ID, start, end)
		if err != nil {
			return err
		}
		if overlapping >= loc.TotalSlots {
			return capacityExceeded(loc.TotalSlots, overlapping)
		}

		price, err := CalculatePrice(start, end, loc.PricePerHour)
		if err != nil {
			return err
		}
		created = models.Reservation{
			Code:         uuid.NewString(),
			MemberID:     in.MemberID,
			LocationID:   loc.ID,
			VehicleID:    in.VehicleID,
			StartTime:    start,
			EndTime:      end,
			PricePerHour: loc.PricePerHour,
			TotalPrice:   price,
			Status:       models.StatusConfirmed,
			Notes:        in.Notes,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		if err := e.ledger.Reserve(ctx, tx, loc.ID); err != nil {
			return err
		}
		if e.beforeCommit != nil {
			return e.beforeCommit()
		}
		return nil
	})
	metrics.Booking().ObserveOperation("create", outcomeOf(err))
	if err != nil {
		log.Printf("Create reservation failed: member_id=%d, location_id=%d, start=%s, end=%s, error=%v",
			in.MemberID, in.LocationID, start.Format(time.RFC3339), end.Format(time.RFC3339), err)
		return nil, err
	}

	log.Printf("Reservation %s created: member_id=%d, location_id=%d, %s - %s, total %.2f",
		created.Code, created.MemberID, created.LocationID,
		start.Format(time.RFC3339), end.Format(time.RFC3339), created.TotalPrice)
	e.cache.Invalidate(ctx, created.LocationID)
	e.events.Publish(eventFrom(EventCreated, &created, e.now()))
	return &created, nil
}

// Cancel pending/confirmed 才能取消；已付款則退款回錢包，並釋放一個車位
func (e *ReservationEngine) Cancel(ctx context.Context, in CancelReservationInput) (*models.Reservation, error) {
	var cancelled *models.Reservation
	err := e.runner.Run(ctx, "reservation.cancel", func(tx *gorm.DB) error {
		r, err := lockReservation(tx, in.ReservationID)
		if err != nil {
			return err
		}
		if in.MemberID != 0 && r.MemberID != in.MemberID {
			return ErrForbidden
		}
		if !models.CanTransition(r.Status, models.StatusCancelled) {
			return notCancellable(string(r.Status))
		}

		now := e.now()
		refund, fee := RefundFor(r.TotalPrice, r.StartTime, now)
		res := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Updates(map[string]interface{}{
				"status":           models.StatusCancelled,
				"cancelled_at":     now,
				"cancel_reason":    in.Reason,
				"cancellation_fee": fee,
				"refund_amount":    refund,
				"updated_at":       now,
			})
		if res.Error != nil {
			return fmt.Errorf("cancel reservation %d: %w", r.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return errConflict
		}

		if r.PaidAt != nil && refund > 0 {
			desc := fmt.Sprintf("refund for reservation %s", r.Code)
			if err := applyWalletEntry(tx, r.MemberID, refund, models.WalletRefund, desc, &r.ID, now); err != nil {
				return err
			}
		}
		if err := e.ledger.Release(ctx, tx, r.LocationID); err != nil {
			return err
		}

		r.Status = models.StatusCancelled
		r.CancelledAt = &now
		r.CancelReason = in.Reason
		r.CancellationFee = &fee
		r.RefundAmount = &refund
		r.UpdatedAt = now
		cancelled = r
		return nil
	})
	metrics.Booking().ObserveOperation("cancel", outcomeOf(err))
	if err != nil {
		log.Printf("Cancel reservation %d failed: %v", in.ReservationID, err)
		return nil, err
	}

	log.Printf("Reservation %s cancelled: refund %.2f, fee %.2f",
		cancelled.Code, *cancelled.RefundAmount, *cancelled.CancellationFee)
	e.cache.Invalidate(ctx, cancelled.LocationID)
	e.events.Publish(eventFrom(EventCancelled, cancelled, e.now()))
	return cancelled, nil
}

// Get memberID 為 0 時不檢查擁有者
func (e *ReservationEngine) Get(ctx context.Context, memberID, id int) (*models.Reservation, error) {
	var r models.Reservation
	err := e.runner.DB(ctx).Preload("Feedback").First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, storeError("get reservation", err)
	}
	if memberID != 0 && r.MemberID != memberID {
		return nil, ErrForbidden
	}
	return &r, nil
}

// GetByCode 管理員掃碼查詢
func (e *ReservationEngine) GetByCode(ctx context.Context, code string) (*models.Reservation, error) {
	var r models.Reservation
	err := e.runner.DB(ctx).Preload("Feedback").Where("code = ?", code).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, storeError("get reservation by code", err)
	}
	return &r, nil
}

func (e *ReservationEngine) ListByMember(ctx context.Context, memberID int) ([]models.Reservation, error) {
	var rs []models.Reservation
	if err := e.runner.DB(ctx).Preload("Feedback").
		Where("member_id = ?", memberID).
		Order("start_time DESC").
		Find(&rs).Error; err != nil {
		return nil, storeError("list member reservations", err)
	}
	log.Printf("Fetched %d reservations for member %d", len(rs), memberID)
	return rs, nil
}

// ListByLocation status 為空時回傳全部狀態
func (e *ReservationEngine) ListByLocation(ctx context.Context, locationID int, status models.ReservationStatus) ([]models.Reservation, error) {
	q := e.runner.DB(ctx).Where("location_id = ?", locationID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rs []models.Reservation
	if err := q.Order("start_time ASC").Find(&rs).Error; err != nil {
		return nil, storeError("list location reservations", err)
	}
	return rs, nil
}

// Availability 唯讀的容量檢視；有 Redis 時先查快取
func (e *ReservationEngine) Availability(ctx context.Context, locationID int, start, end time.Time) (*Availability, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}
	cached, cacheKey, ok := e.cache.Get(ctx, locationID, start, end)
	if ok {
		return cached, nil
	}

	db := e.runner.DB(ctx)
	var loc models.ParkingLocation
	err := db.First(&loc, locationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, storeError("get parking location", err)
	}
	overlapping, err := countOverlapping(db, loc.ID, start, end)
	if err != nil {
		return nil, storeError("count overlapping reservations", err)
	}

	free := loc.TotalSlots - overlapping
	if free < 0 {
		free = 0
	}
	if !loc.IsActive {
		free = 0
	}
	a := &Availability{
		LocationID:      loc.ID,
		TotalSlots:      loc.TotalSlots,
		AvailableSlots:  loc.AvailableSlots,
		Overlapping:     overlapping,
		FreeForInterval: free,
		Start:           start,
		End:             end,
	}
	e.cache.Set(ctx, cacheKey, a)
	return a, nil
}

// countOverlapping 佔用中狀態且與 [start, end) 重疊的預約數，由資料庫做區間比較
func countOverlapping(db *gorm.DB, locationID int, start, end time.Time) (int, error) {
	var n int64
	if err := db.Model(&models.Reservation{}).
		Where("location_id = ? AND status IN ?", locationID, models.CapacityConsumingStatuses).
		Where("start_time < ? AND end_time > ?", end, start).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("query overlapping reservations: %w", err)
	}
	return int(n), nil
}

func checkVehicleOwner(db *gorm.DB, memberID int, plate string) error {
	var n int64
	if err := db.Model(&models.Vehicle{}).
		Where("license_plate = ? AND member_id = ?", plate, memberID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("verify vehicle %s: %w", plate, err)
	}
	if n == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// storeError 交易外的讀取錯誤包成 StoreUnavailable
func storeError(op string, err error) error {
	return &BookingError{Code: CodeStoreUnavailable, Message: op + " failed", Err: err}
}
