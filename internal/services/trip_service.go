// Package services provides the business logic layer for Travel Together.
// This file implements trip planning: location ordering and the
// capability checks guarding group and trip operations.
package services

import (
	"context"

	"github.com/parityerror/traveltogether/internal/models"
	"github.com/parityerror/traveltogether/internal/repository"
)

// TripService handles trip and location operations on top of the
// repositories, including the saved display order.
type TripService struct {
	tripRepo     *repository.TripRepository
	locationRepo *repository.LocationRepository
	groupRepo    *repository.GroupRepository
}

// NewTripService creates and returns a new TripService instance.
func NewTripService() *TripService {
	return &TripService{
		tripRepo:     repository.NewTripRepository(),
		locationRepo: repository.NewLocationRepository(),
		groupRepo:    repository.NewGroupRepository(),
	}
}

// ApplyOrder arranges locations according to a saved order of location GUIDs.
// It is pure and total: any combination of stale order entries and locations
// missing from the order degrades gracefully.
//
// Rules:
//   - A location whose GUID appears in order takes that position.
//   - Locations absent from the order come after the ordered ones, keeping
//     their original relative order.
//   - Order entries naming no current location leave no gap.
func ApplyOrder(order []string, locations []models.Location) []models.Location {
	if len(order) == 0 {
		return locations
	}

	position := make(map[string]int, len(order))
	for i, guid := range order {
		position[guid] = i
	}

	slots := make([]*models.Location, len(order))
	var unordered []models.Location
	for i := range locations {
		if p, ok := position[locations[i].GUID]; ok {
			slots[p] = &locations[i]
		} else {
			unordered = append(unordered, locations[i])
		}
	}

	result := make([]models.Location, 0, len(locations))
	for _, slot := range slots {
		if slot != nil {
			result = append(result, *slot)
		}
	}
	return append(result, unordered...)
}

// OrderedLocations retrieves a trip's locations arranged by the saved display
// order. Without a saved order (or with a corrupt one) the locations come
// back in insertion order.
func (s *TripService) OrderedLocations(ctx context.Context, tripGUID string) ([]models.Location, error) {
	locations, err := s.locationRepo.ListByTrip(ctx, tripGUID)
	if err != nil {
		return nil, err
	}

	order, err := s.locationRepo.GetOrder(ctx, tripGUID)
	if err != nil {
		return nil, err
	}

	return ApplyOrder(order, locations), nil
}

// Can reports whether username holds the given capability in the group. The
// allowed-permission set comes from the catalog, so a capability check never
// hardcodes permission names.
func (s *TripService) Can(ctx context.Context, username, groupGUID string, capability models.Capability) (bool, error) {
	allowed, err := s.groupRepo.PermissionsWith(ctx, capability)
	if err != nil {
		return false, err
	}
	return s.groupRepo.HasCapability(ctx, username, groupGUID, allowed)
}

// CanOnTrip is Can with the group resolved from a trip GUID. An unknown trip
// simply lacks every capability.
func (s *TripService) CanOnTrip(ctx context.Context, username, tripGUID string, capability models.Capability) (bool, error) {
	groupGUID, err := s.tripRepo.GroupGUID(ctx, tripGUID)
	if err != nil {
		return false, err
	}
	if groupGUID == "" {
		return false, nil
	}
	return s.Can(ctx, username, groupGUID, capability)
}

// GroupGUIDForTrip resolves the owning group of a trip for handlers that need
// both the gate and the group.
func (s *TripService) GroupGUIDForTrip(ctx context.Context, tripGUID string) (string, error) {
	return s.tripRepo.GroupGUID(ctx, tripGUID)
}
