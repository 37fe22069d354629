package services

import (
	"testing"
	"time"

	"parkingreserve/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAndPay(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 2, 25)
	member := f.addMember(t)
	other := f.addMember(t)
	ctx := testContext(t)

	_, err := f.wallet.Deposit(ctx, member.MemberID, 0, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.wallet.Deposit(ctx, 9999, 10, "")
	require.ErrorIs(t, err, ErrMemberNotFound)

	m, err := f.wallet.Deposit(ctx, member.MemberID, 30, "top up")
	require.NoError(t, err)
	assert.InDelta(t, 30, m.WalletBalance, 0.001)

	r := f.book(t, member.MemberID, loc.ID, day(10, 0), day(12, 0))
	require.InDelta(t, 50, r.TotalPrice, 0.001)

	_, err = f.wallet.PayReservation(ctx, member.MemberID, r.ID)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	balance, err := f.wallet.Balance(ctx, member.MemberID)
	require.NoError(t, err)
	assert.InDelta(t, 30, balance, 0.001)

	_, err = f.wallet.Deposit(ctx, member.MemberID, 20, "")
	require.NoError(t, err)
	_, err = f.wallet.PayReservation(ctx, other.MemberID, r.ID)
	require.ErrorIs(t, err, ErrForbidden)

	paid, err := f.wallet.PayReservation(ctx, member.MemberID, r.ID)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.ToResponse().Paid)

	_, err = f.wallet.PayReservation(ctx, member.MemberID, r.ID)
	require.ErrorIs(t, err, ErrAlreadyPaid)

	balance, err = f.wallet.Balance(ctx, member.MemberID)
	require.NoError(t, err)
	assert.InDelta(t, 0, balance, 0.001)

	history, err := f.wallet.History(ctx, member.MemberID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	sum := 0.0
	for _, h := range history {
		sum += h.Amount
	}
	assert.InDelta(t, balance, sum, 0.001)
	assert.Equal(t, models.WalletPayment, history[0].Type)
	require.NotNil(t, history[0].ReservationID)
	assert.Equal(t, r.ID, *history[0].ReservationID)
}

func TestCannotPayCancelledReservation(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 1, 10)
	member := f.addMember(t)
	_, err := f.wallet.Deposit(testContext(t), member.MemberID, 100, "")
	require.NoError(t, err)

	start := f.clock.Now().Add(time.Hour)
	r := f.book(t, member.MemberID, loc.ID, start, start.Add(time.Hour))
	_, err = f.engine.Cancel(testContext(t), CancelReservationInput{ReservationID: r.ID})
	require.NoError(t, err)

	_, err = f.wallet.PayReservation(testContext(t), member.MemberID, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	balance, err := f.wallet.Balance(testContext(t), member.MemberID)
	require.NoError(t, err)
	assert.InDelta(t, 100, balance, 0.001)
}
