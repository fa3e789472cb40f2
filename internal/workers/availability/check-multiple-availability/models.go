package checkmultipleavailability

import (
	"time"

	"gigbook-workers/internal/common/validation"
)

type Input struct {
	MusicianIDs []string  `json:"musicianIds"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type Output struct {
	Available           []string            `json:"available"`
	Unavailable         []string            `json:"unavailable"`
	ConflictsByMusician map[string][]string `json:"conflictsByMusician"`
	AllAvailable        bool                `json:"allAvailable"`
}

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"required": ["musicianIds", "start", "end"],
	"properties": {
		"musicianIds": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		},
		"start": {"type": "string", "format": "date-time"},
		"end": {"type": "string", "format": "date-time"}
	}
}`)
