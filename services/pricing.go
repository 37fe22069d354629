package services

import (
	"math"
	"time"
)

// 退款級距（距開始時間的小時數）
const (
	fullRefundWindowHours    = 24.0
	partialRefundWindowHours = 2.0
	fullRefundRate           = 0.9
	partialRefundRate        = 0.5
)

// CalculatePrice 依時段計算費用，不足一小時以一小時計
func CalculatePrice(start, end time.Time, pricePerHour float64) (float64, error) {
	if !end.After(start) {
		return 0, ErrInvalidInterval
	}
	hours := math.Ceil(end.Sub(start).Minutes() / 60.0)
	return roundCents(hours * pricePerHour), nil
}

// RefundFor 依取消當下距開始時間計算退款與手續費
// > 24h 退 90%，2~24h 退 50%，< 2h 不退
func RefundFor(totalPrice float64, start, now time.Time) (refund, fee float64) {
	hoursUntilStart := start.Sub(now).Hours()
	rate := 0.0
	switch {
	case hoursUntilStart > fullRefundWindowHours:
		rate = fullRefundRate
	case hoursUntilStart >= partialRefundWindowHours:
		rate = partialRefundRate
	}
	refund = roundCents(totalPrice * rate)
	return refund, roundCents(totalPrice - refund)
}

// OverstayFee 超時離場的加收費用，同樣以整小時計
func OverstayFee(end, checkedOut time.Time, pricePerHour float64) float64 {
	if !checkedOut.After(end) {
		return 0
	}
	hours := math.Ceil(checkedOut.Sub(end).Minutes() / 60.0)
	return roundCents(hours * pricePerHour)
}

// Overlaps 半開區間 [aStart, aEnd) 與 [bStart, bEnd) 是否重疊
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
