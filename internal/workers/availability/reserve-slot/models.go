package reserveslot

import (
	"time"

	"gigbook-workers/internal/common/validation"
	"gigbook-workers/internal/models"
)

type Input struct {
	MusicianID        string    `json:"musicianId"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	Location          string    `json:"location,omitempty"`
	TravelTimeMinutes *int      `json:"travelTimeMinutes,omitempty"`
	BufferTimeMinutes *int      `json:"bufferTimeMinutes,omitempty"`
}

type Output struct {
	Reserved      bool             `json:"reserved"`
	BookingSlotID string           `json:"bookingSlotId"`
	Event         models.BusyEvent `json:"event"`
}

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"required": ["musicianId", "start", "end"],
	"properties": {
		"musicianId": {"type": "string", "minLength": 1},
		"start": {"type": "string", "format": "date-time"},
		"end": {"type": "string", "format": "date-time"},
		"location": {"type": "string"},
		"travelTimeMinutes": {"type": "integer", "minimum": 0},
		"bufferTimeMinutes": {"type": "integer", "minimum": 0}
	}
}`)
