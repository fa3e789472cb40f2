package pricing

import "gigbook-workers/internal/models"

// Tables are the static lookups behind the base rate, location and event-type factors.
// Keys are normalized with models.NormalizeKey.
type Tables struct {
	DefaultBaseRate      float64
	BaseRates            map[string]float64
	LocationMultipliers  map[string]float64
	EventTypeMultipliers map[string]float64
}

func DefaultTables() Tables {
	return Tables{
		DefaultBaseRate: 50,
		BaseRates: map[string]float64{
			"guitarra": 50, "guitar": 50,
			"piano":  60,
			"violin": 55, "violín": 55,
			"bateria": 45, "batería": 45, "drums": 45,
			"bajo": 45, "bass": 45,
			"voz": 50, "vocals": 50, "voice": 50,
			"saxofon": 55, "saxofón": 55, "saxophone": 55,
			"trompeta": 50, "trumpet": 50,
			"dj": 70,
		},
		LocationMultipliers: map[string]float64{
			"madrid":    1.2,
			"barcelona": 1.2,
			"valencia":  1.1,
			"bilbao":    1.1,
			"sevilla":   1.05,
		},
		EventTypeMultipliers: map[string]float64{
			"wedding": 1.5, "boda": 1.5,
			"corporate": 1.3, "corporativo": 1.3,
			"festival": 1.25,
			"concert":  1.2, "concierto": 1.2,
			"birthday": 1.1, "cumpleaños": 1.1,
		},
	}
}

// WithOverrides returns a copy of t with the given entries added or replaced.
// A zero defaultBaseRate keeps the current default.
func (t Tables) WithOverrides(defaultBaseRate float64, baseRates, locations, eventTypes map[string]float64) Tables {
	out := Tables{
		DefaultBaseRate:      t.DefaultBaseRate,
		BaseRates:            merge(t.BaseRates, baseRates),
		LocationMultipliers:  merge(t.LocationMultipliers, locations),
		EventTypeMultipliers: merge(t.EventTypeMultipliers, eventTypes),
	}
	if defaultBaseRate > 0 {
		out.DefaultBaseRate = defaultBaseRate
	}
	return out
}

func merge(base, overrides map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(overrides))
	for k, v := range base {
		out[models.NormalizeKey(k)] = v
	}
	for k, v := range overrides {
		if v > 0 {
			out[models.NormalizeKey(k)] = v
		}
	}
	return out
}
