package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"parkingreserve/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 每個測試一個獨立的 in-memory SQLite；單一連線讓交易依序執行
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	db        *gorm.DB
	clock     *testClock
	runner    *TxRunner
	ledger    *CapacityLedger
	engine    *ReservationEngine
	lifecycle *LifecycleCoordinator
	wallet    *WalletService
	locations *LocationService
}

// day 測試基準日 2026-03-01 (UTC)
func day(hour, min int) time.Time {
	return time.Date(2026, 3, 1, hour, min, 0, 0, time.UTC)
}

func newFixture(t *testing.T, events *Dispatcher) *fixture {
	t.Helper()
	db := setupTestDB(t)
	clock := &testClock{now: day(8, 0)}
	runner := NewTxRunner(db, 3, time.Millisecond)
	ledger := NewCapacityLedger(clock.Now)
	engine := NewReservationEngine(runner, ledger, events, nil, clock.Now)
	return &fixture{
		db:        db,
		clock:     clock,
		runner:    runner,
		ledger:    ledger,
		engine:    engine,
		lifecycle: NewLifecycleCoordinator(runner, ledger, engine, events, 15*time.Minute, clock.Now),
		wallet:    NewWalletService(runner, clock.Now),
		locations: NewLocationService(runner, ledger, nil),
	}
}

func (f *fixture) addLocation(t *testing.T, totalSlots int, pricePerHour float64) *models.ParkingLocation {
	t.Helper()
	loc := models.ParkingLocation{
		Name:           fmt.Sprintf("Lot %s", uuid.NewString()[:8]),
		TotalSlots:     totalSlots,
		AvailableSlots: totalSlots,
		PricePerHour:   pricePerHour,
		IsActive:       true,
	}
	require.NoError(t, f.db.Create(&loc).Error)
	return &loc
}

func (f *fixture) addMember(t *testing.T) *models.Member {
	t.Helper()
	m := models.Member{Name: "driver", Email: uuid.NewString() + "@example.com", Password: "x", Role: models.RoleCustomer}
	require.NoError(t, f.db.Create(&m).Error)
	return &m
}

func (f *fixture) available(t *testing.T, locationID int) int {
	t.Helper()
	var loc models.ParkingLocation
	require.NoError(t, f.db.First(&loc, locationID).Error)
	return loc.AvailableSlots
}

func (f *fixture) book(t *testing.T, memberID, locationID int, start, end time.Time) *models.Reservation {
	t.Helper()
	r, err := f.engine.Create(testContext(t), CreateReservationInput{
		MemberID: memberID, LocationID: locationID, Start: start, End: end,
	})
	require.NoError(t, err)
	return r
}
