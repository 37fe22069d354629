package services

import (
	"testing"

	"parkingreserve/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInWindow(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 2, 20)
	member := f.addMember(t)
	r := f.book(t, member.MemberID, loc.ID, day(10, 0), day(12, 0))
	ctx := testContext(t)

	f.clock.Set(day(9, 30))
	_, err := f.lifecycle.CheckIn(ctx, member.MemberID, r.ID)
	require.ErrorIs(t, err, ErrCheckInWindow)

	f.clock.Set(day(9, 50))
	active, err := f.lifecycle.CheckIn(ctx, member.MemberID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, active.Status)
	require.NotNil(t, active.CheckedInAt)
	assert.True(t, active.CheckedInAt.Equal(day(9, 50)))
	// 入場不影響車位
	assert.Equal(t, 1, f.available(t, loc.ID))

	_, err = f.lifecycle.CheckIn(ctx, member.MemberID, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	late := f.book(t, member.MemberID, loc.ID, day(10, 0), day(11, 0))
	f.clock.Set(day(11, 0))
	_, err = f.lifecycle.CheckIn(ctx, member.MemberID, late.ID)
	assert.ErrorIs(t, err, ErrCheckInWindow)
}

func TestCheckOutReleasesOnce(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 1, 30)
	member := f.addMember(t)
	r := f.book(t, member.MemberID, loc.ID, day(10, 0), day(12, 0))
	ctx := testContext(t)

	_, err := f.lifecycle.CheckOut(ctx, member.MemberID, r.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	f.clock.Set(day(10, 5))
	_, err = f.lifecycle.CheckIn(ctx, member.MemberID, r.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.Cancel(ctx, member.MemberID, r.ID, "too late")
	require.ErrorIs(t, err, ErrNotCancellable)

	f.clock.Set(day(11, 45))
	done, err := f.lifecycle.CheckOut(ctx, member.MemberID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Nil(t, done.OverstayFee)
	assert.InDelta(t, 60, done.TotalPrice, 0.001)
	assert.Equal(t, 1, f.available(t, loc.ID))

	_, err = f.lifecycle.CheckOut(ctx, member.MemberID, r.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, f.available(t, loc.ID))
}

func TestCheckOutChargesOverstay(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 1, 30)
	member := f.addMember(t)
	r := f.book(t, member.MemberID, loc.ID, day(10, 0), day(12, 0))

	f.clock.Set(day(10, 0))
	_, err := f.lifecycle.CheckIn(testContext(t), 0, r.ID)
	require.NoError(t, err)

	f.clock.Set(day(13, 20))
	done, err := f.lifecycle.CheckOut(testContext(t), 0, r.ID)
	require.NoError(t, err)
	require.NotNil(t, done.OverstayFee)
	assert.InDelta(t, 60, *done.OverstayFee, 0.001)
	assert.InDelta(t, 120, done.TotalPrice, 0.001)
	require.NotNil(t, done.CheckedOutAt)
	assert.True(t, done.CheckedOutAt.Equal(day(13, 20)))
}

func TestScanByCode(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 1, 30)
	member := f.addMember(t)
	r := f.book(t, member.MemberID, loc.ID, day(10, 0), day(12, 0))

	f.clock.Set(day(10, 0))
	active, err := f.lifecycle.CheckInByCode(testContext(t), r.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, active.Status)

	done, err := f.lifecycle.CheckOutByCode(testContext(t), r.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)

	_, err = f.lifecycle.CheckInByCode(testContext(t), "missing")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestExpireOverdue(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 4, 10)
	member := f.addMember(t)
	overdue := f.book(t, member.MemberID, loc.ID, day(9, 0), day(10, 0))
	checkedIn := f.book(t, member.MemberID, loc.ID, day(9, 0), day(10, 0))
	future := f.book(t, member.MemberID, loc.ID, day(12, 0), day(13, 0))
	require.Equal(t, 1, f.available(t, loc.ID))

	f.clock.Set(day(9, 10))
	_, err := f.lifecycle.CheckIn(testContext(t), member.MemberID, checkedIn.ID)
	require.NoError(t, err)

	f.clock.Set(day(10, 0))
	n, err := f.lifecycle.ExpireOverdue(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, n, "end time itself is not overdue")

	f.clock.Set(day(10, 1))
	n, err = f.lifecycle.ExpireOverdue(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, f.available(t, loc.ID))

	got, err := f.engine.Get(testContext(t), 0, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	got, err = f.engine.Get(testContext(t), 0, checkedIn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	got, err = f.engine.Get(testContext(t), 0, future.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	// 終止狀態不可再轉移
	_, err = f.lifecycle.CheckIn(testContext(t), 0, overdue.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.lifecycle.Cancel(testContext(t), 0, overdue.ID, "")
	assert.ErrorIs(t, err, ErrNotCancellable)

	n, err = f.lifecycle.ExpireOverdue(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, f.available(t, loc.ID))
}

func TestCapacityInvariantAcrossOperations(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 2, 10)
	member := f.addMember(t)
	ctx := testContext(t)

	check := func() {
		avail := f.available(t, loc.ID)
		assert.GreaterOrEqual(t, avail, 0)
		assert.LessOrEqual(t, avail, 2)
	}

	a := f.book(t, member.MemberID, loc.ID, day(10, 0), day(11, 0))
	check()
	b := f.book(t, member.MemberID, loc.ID, day(10, 0), day(11, 0))
	check()
	_, err := f.engine.Create(ctx, CreateReservationInput{MemberID: member.MemberID, LocationID: loc.ID, Start: day(10, 30), End: day(11, 30)})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	check()

	f.clock.Set(day(10, 0))
	_, err = f.lifecycle.CheckIn(ctx, 0, a.ID)
	require.NoError(t, err)
	check()
	_, err = f.lifecycle.Cancel(ctx, 0, b.ID, "")
	require.NoError(t, err)
	check()
	_, err = f.lifecycle.CheckOut(ctx, 0, a.ID)
	require.NoError(t, err)
	check()
	assert.Equal(t, 2, f.available(t, loc.ID))
}

func TestSubmitFeedback(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 1, 10)
	member := f.addMember(t)
	stranger := f.addMember(t)
	r := f.book(t, member.MemberID, loc.ID, day(10, 0), day(11, 0))
	ctx := testContext(t)

	_, err := f.lifecycle.SubmitFeedback(ctx, member.MemberID, r.ID, 5, "great")
	require.ErrorIs(t, err, ErrInvalidTransition)

	f.clock.Set(day(10, 0))
	_, err = f.lifecycle.CheckIn(ctx, member.MemberID, r.ID)
	require.NoError(t, err)
	f.clock.Set(day(10, 50))
	_, err = f.lifecycle.CheckOut(ctx, member.MemberID, r.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.SubmitFeedback(ctx, member.MemberID, r.ID, 6, "")
	require.ErrorIs(t, err, ErrInvalidRating)
	_, err = f.lifecycle.SubmitFeedback(ctx, stranger.MemberID, r.ID, 4, "")
	require.ErrorIs(t, err, ErrForbidden)

	fb, err := f.lifecycle.SubmitFeedback(ctx, member.MemberID, r.ID, 4, "  easy exit  ")
	require.NoError(t, err)
	assert.Equal(t, "easy exit", fb.Comment)

	_, err = f.lifecycle.SubmitFeedback(ctx, member.MemberID, r.ID, 3, "again")
	require.ErrorIs(t, err, ErrFeedbackExists)

	got, err := f.engine.Get(ctx, member.MemberID, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Feedback)
	assert.Equal(t, 4, got.Feedback.Rating)
}
