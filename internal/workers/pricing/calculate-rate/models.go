package calculaterate

import (
	"time"

	"gigbook-workers/internal/common/validation"
	"gigbook-workers/internal/models"
)

type Input struct {
	MusicianID      string     `json:"musicianId,omitempty"`
	Instrument      string     `json:"instrument"`
	Location        string     `json:"location,omitempty"`
	EventType       string     `json:"eventType,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	IsUrgent        bool       `json:"isUrgent,omitempty"`
	EventDate       *time.Time `json:"eventDate,omitempty"`
}

func (in Input) request() models.RateRequest {
	req := models.RateRequest{
		MusicianID:      in.MusicianID,
		Instrument:      in.Instrument,
		Location:        in.Location,
		EventType:       in.EventType,
		DurationMinutes: in.DurationMinutes,
		IsUrgent:        in.IsUrgent,
	}
	if in.EventDate != nil {
		req.EventDate = *in.EventDate
	}
	return req
}

// Output is the rate result plus the fields a gateway usually branches on.
type Output struct {
	models.RateResult
	SuggestedRate float64 `json:"suggestedRate"`
	HasWarnings   bool    `json:"hasWarnings"`
}

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"required": ["instrument", "durationMinutes"],
	"properties": {
		"musicianId": {"type": "string"},
		"instrument": {"type": "string", "minLength": 1},
		"location": {"type": "string"},
		"eventType": {"type": "string"},
		"durationMinutes": {"type": "integer", "minimum": 1},
		"isUrgent": {"type": "boolean"},
		"eventDate": {"type": "string", "format": "date-time"}
	}
}`)
