// Package store holds the Postgres, Redis and Elasticsearch backed collaborators of the
// availability, matching and pricing engines.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var blockingStatuses = []string{string(models.EventStatusConfirmed), string(models.EventStatusPending)}

const busyEventColumns = `id, musician_id, start_time, end_time, COALESCE(location, ''), status, created_at, updated_at`

// CalendarStore reads and writes the calendar_events table.
type CalendarStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewCalendarStore(db *sql.DB, log logger.Logger) *CalendarStore {
	return &CalendarStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "calendar"}),
		now:    time.Now,
	}
}

// FetchBusyEvents returns the confirmed and pending events of musicianID that intersect [from, to).
func (s *CalendarStore) FetchBusyEvents(ctx context.Context, musicianID string, from, to time.Time) ([]models.BusyEvent, error) {
	query := `SELECT ` + busyEventColumns + `
		FROM calendar_events
		WHERE musician_id = $1
		  AND status = ANY($2)
		  AND start_time < $4
		  AND end_time > $3
		ORDER BY start_time, id`

	rows, err := s.db.QueryContext(ctx, query, musicianID, pq.Array(blockingStatuses), from.UTC(), to.UTC())
	if err != nil {
		return nil, queryError(ctx, "fetch_busy_events", err)
	}
	defer rows.Close()

	events, err := scanBusyEvents(rows)
	if err != nil {
		return nil, queryError(ctx, "fetch_busy_events", err)
	}
	return events, nil
}

// FetchDailyBusyEvents returns the blocking events touching the 24 hours that start at day.
func (s *CalendarStore) FetchDailyBusyEvents(ctx context.Context, musicianID string, day time.Time) ([]models.BusyEvent, error) {
	return s.FetchBusyEvents(ctx, musicianID, day, day.Add(24*time.Hour))
}

// Reservation asks for a new pending event for MusicianID. Padding is applied on both sides
// when re-checking for conflicts.
type Reservation struct {
	MusicianID string
	Interval   models.TimeInterval
	Location   string
	Padding    time.Duration
}

// ReserveSlot inserts a pending event unless a blocking event overlaps the padded interval.
// The musician row is locked for the duration of the transaction so concurrent reservations
// for the same musician are serialized; a losing reservation gets SLOT_ALREADY_BOOKED.
func (s *CalendarStore) ReserveSlot(ctx context.Context, r Reservation) (event *models.BusyEvent, err error) {
	if err := r.Interval.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("rollback failed", map[string]interface{}{"error": rbErr})
			}
		}
	}()

	var lockedID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM musicians WHERE id = $1 FOR UPDATE`, r.MusicianID).Scan(&lockedID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewValidationFailedError(fmt.Sprintf("unknown musician %q", r.MusicianID))
		}
		return nil, queryError(ctx, "lock_musician", err)
	}

	padded := r.Interval.Expand(r.Padding, r.Padding)
	rows, err := tx.QueryContext(ctx, `SELECT `+busyEventColumns+`
		FROM calendar_events
		WHERE musician_id = $1
		  AND status = ANY($2)
		  AND start_time < $4
		  AND end_time > $3
		ORDER BY start_time, id
		FOR UPDATE`,
		r.MusicianID, pq.Array(blockingStatuses), padded.Start.UTC(), padded.End.UTC())
	if err != nil {
		return nil, queryError(ctx, "reserve_slot_check", err)
	}
	existing, err := scanBusyEvents(rows)
	rows.Close()
	if err != nil {
		return nil, queryError(ctx, "reserve_slot_check", err)
	}

	var conflicts []string
	for _, e := range existing {
		if e.Blocks() && models.Overlaps(padded, e.Interval) {
			conflicts = append(conflicts, e.ID)
		}
	}
	if len(conflicts) > 0 {
		err = errors.NewSlotAlreadyBookedError(r.MusicianID, conflicts)
		return nil, err
	}

	now := s.now().UTC()
	event = &models.BusyEvent{
		ID:        uuid.New().String(),
		OwnerID:   r.MusicianID,
		Interval:  models.TimeInterval{Start: r.Interval.Start.UTC(), End: r.Interval.End.UTC()},
		Location:  r.Location,
		Status:    models.EventStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calendar_events (
			id, musician_id, start_time, end_time, location, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		event.ID, event.OwnerID, event.Interval.Start, event.Interval.End,
		event.Location, string(event.Status), now,
	)
	if err != nil {
		return nil, queryError(ctx, "reserve_slot_insert", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, queryError(ctx, "reserve_slot_commit", err)
	}

	s.logger.Info("slot reserved", map[string]interface{}{
		"musicianId": r.MusicianID,
		"eventId":    event.ID,
		"start":      event.Interval.Start,
		"end":        event.Interval.End,
	})

	return event, nil
}

func scanBusyEvents(rows *sql.Rows) ([]models.BusyEvent, error) {
	events := make([]models.BusyEvent, 0)
	for rows.Next() {
		var (
			e      models.BusyEvent
			status string
		)
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.Interval.Start, &e.Interval.End,
			&e.Location, &status, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		e.Status = models.EventStatus(status)
		events = append(events, e)
	}
	return events, rows.Err()
}

// queryError maps a driver error to QUERY_TIMEOUT, CANCELLED or QUERY_EXECUTION_FAILED.
func queryError(ctx context.Context, queryType string, err error) error {
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewQueryTimeoutError(queryType)
	case ctx.Err() != nil:
		return errors.NewCancelledError(queryType, ctx.Err())
	default:
		return errors.NewQueryExecutionFailedError(queryType, err)
	}
}
