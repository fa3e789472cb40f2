package store

import (
	"context"
	"database/sql"

	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/lib/pq"
)

// ProfileStore reads musician profiles from Postgres.
type ProfileStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewProfileStore(db *sql.DB, log logger.Logger) *ProfileStore {
	return &ProfileStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "profiles"}),
	}
}

const profileColumns = `id, COALESCE(name, ''), instruments, has_own_instruments, experience_years,
		COALESCE(rating, 0), COALESCE(hourly_rate, 0), COALESCE(location, ''),
		completed_events, total_events`

// instrumentMatch compares $1 against the instruments array case-insensitively. An empty $1 matches all rows.
const instrumentMatch = `($1 = '' OR $1 = ANY(SELECT lower(i) FROM unnest(instruments) i))`

// FetchApprovedAvailableMusicians returns every approved musician currently accepting bookings,
// restricted to players of instrument when it is set.
func (s *ProfileStore) FetchApprovedAvailableMusicians(ctx context.Context, instrument string) ([]models.MusicianProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+`
		FROM musicians
		WHERE is_approved = true AND is_available = true
		  AND `+instrumentMatch+`
		ORDER BY id`, models.NormalizeKey(instrument))
	if err != nil {
		return nil, queryError(ctx, "fetch_approved_musicians", err)
	}
	defer rows.Close()

	profiles, err := scanProfiles(rows)
	if err != nil {
		return nil, queryError(ctx, "fetch_approved_musicians", err)
	}

	s.logger.Debug("profiles fetched", map[string]interface{}{"count": len(profiles)})
	return profiles, nil
}

func scanProfiles(rows *sql.Rows) ([]models.MusicianProfile, error) {
	profiles := make([]models.MusicianProfile, 0)
	for rows.Next() {
		var p models.MusicianProfile
		if err := rows.Scan(
			&p.ID, &p.Name, pq.Array(&p.Instruments), &p.HasOwnInstruments, &p.ExperienceYears,
			&p.Rating, &p.HourlyRate, &p.Location,
			&p.CompletedEvents, &p.TotalEvents,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
