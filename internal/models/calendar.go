// internal/models/calendar.go
package models

import "time"

type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusPending   EventStatus = "pending"
	EventStatusCancelled EventStatus = "cancelled"
)

// BusyEvent is a calendar entry that occupies a musician's time.
type BusyEvent struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Interval  TimeInterval `json:"interval"`
	Location  string       `json:"location,omitempty"`
	Status    EventStatus  `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Blocks reports whether the event takes part in conflict checks.
func (e BusyEvent) Blocks() bool {
	return e.Status == EventStatusConfirmed || e.Status == EventStatusPending
}

type ConflictCheckRequest struct {
	OwnerID           string       `json:"ownerId"`
	Interval          TimeInterval `json:"interval"`
	Location          string       `json:"location,omitempty"`
	TravelTimeMinutes *int         `json:"travelTimeMinutes,omitempty"`
	BufferTimeMinutes *int         `json:"bufferTimeMinutes,omitempty"`
}

// Padding returns travel+buffer, falling back to the given defaults for unset fields.
func (r ConflictCheckRequest) Padding(defaultTravel, defaultBuffer int) time.Duration {
	travel, buffer := defaultTravel, defaultBuffer
	if r.TravelTimeMinutes != nil {
		travel = *r.TravelTimeMinutes
	}
	if r.BufferTimeMinutes != nil {
		buffer = *r.BufferTimeMinutes
	}
	return Minutes(travel + buffer)
}

type AvailableSlot struct {
	Interval        TimeInterval `json:"interval"`
	DurationMinutes int          `json:"durationMinutes"`
}

// NewAvailableSlot derives DurationMinutes from the interval, truncating partial minutes.
func NewAvailableSlot(interval TimeInterval) AvailableSlot {
	return AvailableSlot{
		Interval:        interval,
		DurationMinutes: int(interval.Duration() / time.Minute),
	}
}

type ConflictCheckResult struct {
	HasConflict          bool            `json:"hasConflict"`
	Conflicts            []BusyEvent     `json:"conflicts"`
	AvailableSlots       []AvailableSlot `json:"availableSlots"`
	RecommendedSlotStart *time.Time      `json:"recommendedSlotStart,omitempty"`
}

// ConflictIDs lists the ids of the conflicting events in result order.
func (r ConflictCheckResult) ConflictIDs() []string {
	ids := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		ids = append(ids, c.ID)
	}
	return ids
}

type MultiAvailabilityResult struct {
	Available           []string            `json:"available"`
	Unavailable         []string            `json:"unavailable"`
	ConflictsByMusician map[string][]string `json:"conflictsByMusician"`
}
