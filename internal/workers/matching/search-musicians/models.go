package searchmusicians

import (
	"gigbook-workers/internal/common/validation"
	"gigbook-workers/internal/models"
)

type Input struct {
	Event    models.Event         `json:"event"`
	Criteria models.MatchCriteria `json:"criteria"`
}

type Output struct {
	Candidates      []models.ScoredCandidate `json:"candidates"`
	TotalCandidates int                      `json:"totalCandidates"`
	TopMusicianIDs  []string                 `json:"topMusicianIds"`
	HasCandidates   bool                     `json:"hasCandidates"`
	RankingEventID  string                   `json:"rankingEventId,omitempty"`
}

var inputSchema = validation.MustCompile(TaskType, `{
	"type": "object",
	"required": ["event", "criteria"],
	"properties": {
		"event": {
			"type": "object",
			"required": ["id"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"requiresOwnInstrument": {"type": "boolean"}
			}
		},
		"criteria": {
			"type": "object",
			"required": ["instrument", "date", "time", "durationMinutes"],
			"properties": {
				"instrument": {"type": "string", "minLength": 1},
				"location": {"type": "string"},
				"budget": {"type": "number", "minimum": 0},
				"date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
				"time": {"type": "string", "pattern": "^[0-9]{2}:[0-9]{2}$"},
				"timeZone": {"type": "string"},
				"durationMinutes": {"type": "integer", "minimum": 1},
				"eventType": {"type": "string"},
				"maxDistanceKm": {"type": "number", "minimum": 0},
				"isUrgent": {"type": "boolean"}
			}
		}
	}
}`)
