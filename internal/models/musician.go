// internal/models/musician.go
package models

import (
	"fmt"
	"strings"
	"time"
)

type MusicianProfile struct {
	ID                string   `json:"id"`
	Name              string   `json:"name,omitempty"`
	Instruments       []string `json:"instruments"`
	HasOwnInstruments bool     `json:"hasOwnInstruments"`
	ExperienceYears   float64  `json:"experienceYears"`
	Rating            float64  `json:"rating"`
	HourlyRate        float64  `json:"hourlyRate"`
	Location          string   `json:"location,omitempty"`
	CompletedEvents   int      `json:"completedEvents"`
	TotalEvents       int      `json:"totalEvents"`
}

// PlaysInstrument compares case-insensitively after trimming.
func (p MusicianProfile) PlaysInstrument(instrument string) bool {
	want := NormalizeKey(instrument)
	if want == "" {
		return false
	}
	for _, i := range p.Instruments {
		if NormalizeKey(i) == want {
			return true
		}
	}
	return false
}

// CompletionRate is CompletedEvents/TotalEvents, or ok=false when there is no history.
func (p MusicianProfile) CompletionRate() (rate float64, ok bool) {
	if p.TotalEvents <= 0 {
		return 0, false
	}
	return float64(p.CompletedEvents) / float64(p.TotalEvents), true
}

// Event is the organizer's booking request a search is run for.
type Event struct {
	ID                    string `json:"id"`
	OrganizerID           string `json:"organizerId,omitempty"`
	Title                 string `json:"title,omitempty"`
	RequiresOwnInstrument bool   `json:"requiresOwnInstrument"`
}

type MatchCriteria struct {
	Instrument      string   `json:"instrument"`
	Location        string   `json:"location,omitempty"`
	Budget          *float64 `json:"budget,omitempty"`
	Date            string   `json:"date"` // 2006-01-02
	Time            string   `json:"time"` // 15:04
	TimeZone        string   `json:"timeZone,omitempty"`
	DurationMinutes int      `json:"durationMinutes"`
	EventType       string   `json:"eventType,omitempty"`
	MaxDistanceKm   *float64 `json:"maxDistanceKm,omitempty"`
	IsUrgent        bool     `json:"isUrgent,omitempty"`
}

// Interval resolves Date, Time and DurationMinutes into the requested event window.
func (c MatchCriteria) Interval() (TimeInterval, error) {
	loc := time.UTC
	if c.TimeZone != "" {
		l, err := time.LoadLocation(c.TimeZone)
		if err != nil {
			return TimeInterval{}, fmt.Errorf("unknown time zone %q: %w", c.TimeZone, err)
		}
		loc = l
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", c.Date+" "+c.Time, loc)
	if err != nil {
		return TimeInterval{}, fmt.Errorf("parse event start: %w", err)
	}
	return NewTimeInterval(start, start.Add(Minutes(c.DurationMinutes)))
}

type CandidateAvailability struct {
	IsAvailable bool     `json:"isAvailable"`
	Conflicts   []string `json:"conflicts"`
}

type ScoredCandidate struct {
	Profile      MusicianProfile       `json:"profile"`
	MatchScore   int                   `json:"matchScore"`
	Availability CandidateAvailability `json:"availability"`
	DistanceKm   *float64              `json:"distanceKm,omitempty"`
	QuotedRate   *float64              `json:"quotedRate,omitempty"`
}

// NormalizeKey lower-cases and trims a lookup key.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
