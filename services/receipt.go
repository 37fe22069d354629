package services

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// ReceiptGenerator 完成或取消後產生收據，失敗不影響預約狀態
type ReceiptGenerator interface {
	Generate(ctx context.Context, ev Event) error
}

// LogReceiptGenerator 將純文字收據寫入日誌
type LogReceiptGenerator struct{}

func (LogReceiptGenerator) Generate(_ context.Context, ev Event) error {
	log.Printf("Receipt for reservation %s\n%s", ev.Code, RenderReceipt(ev))
	return nil
}

// RenderReceipt 產生純文字收據內容
func RenderReceipt(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reservation: %s\n", ev.Code)
	fmt.Fprintf(&b, "Location:    %d\n", ev.LocationID)
	fmt.Fprintf(&b, "Period:      %s - %s\n", ev.StartTime.Format("2006-01-02 15:04"), ev.EndTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Status:      %s\n", ev.Status)
	fmt.Fprintf(&b, "Total:       %.2f\n", ev.TotalPrice)

	switch ev.Type {
	case EventCancelled:
		fmt.Fprintf(&b, "Fee:         %.2f\n", ev.CancellationFee)
		fmt.Fprintf(&b, "Refund:      %.2f\n", ev.RefundAmount)
	case EventCompleted:
		if ev.OverstayFee > 0 {
			fmt.Fprintf(&b, "Overstay:    %.2f\n", ev.OverstayFee)
		}
	}
	fmt.Fprintf(&b, "Issued:      %s", ev.At.Format("2006-01-02 15:04:05"))
	return b.String()
}
