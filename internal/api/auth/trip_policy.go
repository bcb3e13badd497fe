package auth

import "github.com/FACorreiaa/go-itinerary-planner/internal/types"

// TripPolicy grants admins everything and owners their own trips. Anonymous trips
// belong to nobody, so only admins can reach them.
type TripPolicy struct{}

func (TripPolicy) CanView(p types.Principal, trip *types.Trip) bool {
	return isOwnerOrAdmin(p, trip)
}

func (TripPolicy) CanUpdate(p types.Principal, trip *types.Trip) bool {
	return isOwnerOrAdmin(p, trip)
}

func (TripPolicy) CanDelete(p types.Principal, trip *types.Trip) bool {
	return isOwnerOrAdmin(p, trip)
}

func isOwnerOrAdmin(p types.Principal, trip *types.Trip) bool {
	if trip == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return trip.UserID != nil && *trip.UserID == p.UserID
}
