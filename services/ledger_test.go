package services

import (
	"testing"

	"parkingreserve/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLedgerReserveAndRelease(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 1, 10)
	ctx := testContext(t)

	require.NoError(t, f.runner.Run(ctx, "test", func(tx *gorm.DB) error {
		return f.ledger.Reserve(ctx, tx, loc.ID)
	}))
	assert.Equal(t, 0, f.available(t, loc.ID))

	err := f.runner.Run(ctx, "test", func(tx *gorm.DB) error {
		return f.ledger.Reserve(ctx, tx, loc.ID)
	})
	require.ErrorIs(t, err, ErrNoCapacity)
	assert.Equal(t, 0, f.available(t, loc.ID))

	for i := 0; i < 3; i++ {
		require.NoError(t, f.runner.Run(ctx, "test", func(tx *gorm.DB) error {
			return f.ledger.Release(ctx, tx, loc.ID)
		}))
	}
	// 釋放上限為 total_slots
	assert.Equal(t, 1, f.available(t, loc.ID))
}

func TestLedgerStampsUpdatedAt(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.addLocation(t, 2, 10)
	f.clock.Set(day(9, 30))

	require.NoError(t, f.runner.Run(testContext(t), "test", func(tx *gorm.DB) error {
		return f.ledger.Reserve(testContext(t), tx, loc.ID)
	}))
	var got models.ParkingLocation
	require.NoError(t, f.db.First(&got, loc.ID).Error)
	assert.True(t, got.UpdatedAt.Equal(day(9, 30)), "updated_at %s", got.UpdatedAt)
}

func TestLedgerUnknownLocation(t *testing.T) {
	f := newFixture(t, nil)
	err := f.runner.Run(testContext(t), "test", func(tx *gorm.DB) error {
		return f.ledger.Reserve(testContext(t), tx, 404)
	})
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestReconcileCapacity(t *testing.T) {
	f := newFixture(t, nil)
	member := f.addMember(t)
	loc := f.addLocation(t, 5, 10)
	for i := 0; i < 3; i++ {
		f.book(t, member.MemberID, loc.ID, day(10, 0), day(12, 0))
	}
	require.Equal(t, 2, f.available(t, loc.ID))

	got, err := f.locations.UpdateCapacity(testContext(t), loc.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalSlots)
	assert.Equal(t, 0, got.AvailableSlots)

	got, err = f.locations.UpdateCapacity(testContext(t), loc.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, got.AvailableSlots)
	assert.Equal(t, 7, f.available(t, loc.ID))

	_, err = f.locations.UpdateCapacity(testContext(t), loc.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}
