package dailyavailability

import (
	"gigbook-workers/internal/common/validation"
	"gigbook-workers/internal/models"
)

type Input struct {
	MusicianID      string `json:"musicianId"`
	Date            string `json:"date"` // 2006-01-02
	TimeZone        string `json:"timeZone,omitempty"`
	DurationMinutes int    `json:"durationMinutes"`
}

type Output struct {
	Slots     []models.AvailableSlot `json:"slots"`
	SlotCount int                    `json:"slotCount"`
}

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"required": ["musicianId", "date", "durationMinutes"],
	"properties": {
		"musicianId": {"type": "string", "minLength": 1},
		"date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"timeZone": {"type": "string"},
		"durationMinutes": {"type": "integer", "minimum": 1}
	}
}`)
