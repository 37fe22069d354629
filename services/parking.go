package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"parkingreserve/metrics"
	"parkingreserve/models"

	"gorm.io/gorm"
)

// LocationService 停車場管理：新增、查詢、修改總車位、啟用/停用
// available_slots 的變動一律交給 CapacityLedger
type LocationService struct {
	runner *TxRunner
	ledger *CapacityLedger
	cache  *AvailabilityCache
}

func NewLocationService(runner *TxRunner, ledger *CapacityLedger, cache *AvailabilityCache) *LocationService {
	return &LocationService{runner: runner, ledger: ledger, cache: cache}
}

// NearbyFilter 以經緯度與半徑（公里）篩選
type NearbyFilter struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// Create 新增停車場，初始可用車位等於總車位
func (s *LocationService) Create(ctx context.Context, req models.CreateParkingLocationRequest) (*models.ParkingLocation, error) {
	if req.TotalSlots < 0 {
		return nil, ErrInvalidCapacity
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, invalidInput("invalid latitude or longitude: %.6f, %.6f", req.Latitude, req.Longitude)
	}
	loc := models.ParkingLocation{
		Name:           req.Name,
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		TotalSlots:     req.TotalSlots,
		AvailableSlots: req.TotalSlots,
		PricePerHour:   roundCents(req.PricePerHour),
		Amenities:      models.JoinAmenities(req.Amenities),
		IsActive:       true,
	}
	if err := s.runner.DB(ctx).Create(&loc).Error; err != nil {
		log.Printf("Failed to create parking location: %v", err)
		return nil, storeError("create parking location", err)
	}
	log.Printf("Successfully created parking location %d (%s) with %d slots", loc.ID, loc.Name, loc.TotalSlots)
	return &loc, nil
}

func (s *LocationService) Get(ctx context.Context, id int) (*models.ParkingLocation, error) {
	var loc models.ParkingLocation
	err := s.runner.DB(ctx).First(&loc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, storeError("get parking location", err)
	}
	return &loc, nil
}

// List activeOnly 只列出啟用中的停車場；near 不為 nil 時依距離由近到遠排序
func (s *LocationService) List(ctx context.Context, activeOnly bool, near *NearbyFilter) ([]models.ParkingLocation, error) {
	q := s.runner.DB(ctx).Model(&models.ParkingLocation{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var locs []models.ParkingLocation
	if err := q.Order("id ASC").Find(&locs).Error; err != nil {
		return nil, storeError("list parking locations", err)
	}
	if near == nil {
		return locs, nil
	}

	radius := near.RadiusKm
	if radius <= 0 {
		radius = 3.0
	}
	if radius > 50 {
		radius = 50.0
	}
	type ranked struct {
		loc  models.ParkingLocation
		dist float64
	}
	var within []ranked
	for _, l := range locs {
		if d := distanceKm(near.Latitude, near.Longitude, l.Latitude, l.Longitude); d <= radius {
			within = append(within, ranked{loc: l, dist: d})
		}
	}
	sort.SliceStable(within, func(i, j int) bool { return within[i].dist < within[j].dist })
	out := make([]models.ParkingLocation, len(within))
	for i, r := range within {
		out[i] = r.loc
	}
	log.Printf("Found %d parking locations within %.1f km", len(out), radius)
	return out, nil
}

// UpdateCapacity 修改總車位並重算可用車位
func (s *LocationService) UpdateCapacity(ctx context.Context, id, totalSlots int) (*models.ParkingLocation, error) {
	var loc *models.ParkingLocation
	err := s.runner.Run(ctx, "location.capacity", func(tx *gorm.DB) error {
		var err error
		loc, err = s.ledger.Reconcile(ctx, tx, id, totalSlots)
		return err
	})
	metrics.Booking().ObserveOperation("reconcile", outcomeOf(err))
	if err != nil {
		log.Printf("Update capacity for location %d failed: %v", id, err)
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	return loc, nil
}

// SetActive 停用後不再接受新預約，既有預約不受影響
func (s *LocationService) SetActive(ctx context.Context, id int, active bool) (*models.ParkingLocation, error) {
	var loc models.ParkingLocation
	err := s.runner.Run(ctx, "location.active", func(tx *gorm.DB) error {
		l, err := lockLocation(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.ParkingLocation{}).Where("id = ?", id).
			Update("is_active", active).Error; err != nil {
			return fmt.Errorf("set active flag for location %d: %w", id, err)
		}
		loc = *l
		loc.IsActive = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Parking location %d active=%v", id, active)
	s.cache.Invalidate(ctx, id)
	return &loc, nil
}

// distanceKm 球面距離（haversine）
func distanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
