package reserveslot

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"gigbook-workers/internal/common/errors"
	"gigbook-workers/internal/common/logger"
	"gigbook-workers/internal/common/metrics"
	"gigbook-workers/internal/models"
	"gigbook-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "reserve-booking-slot"
)

var errInvalidJSON = stderrors.New("job variables are not valid JSON")

// SlotReserver is implemented by store.CalendarStore.
type SlotReserver interface {
	ReserveSlot(ctx context.Context, r store.Reservation) (*models.BusyEvent, error)
}

type Handler struct {
	config       *Config
	reserver     SlotReserver
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, reserver SlotReserver, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		reserver:     reserver,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := parseInput(job.Variables)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func parseInput(variables string) (*Input, error) {
	raw := []byte(variables)
	if !json.Valid(raw) {
		return nil, errors.NewInputParsingFailedError(errInvalidJSON)
	}
	if err := inputSchema.Validate(raw).Err(); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	return &input, nil
}

// execute pads the requested interval the same way the conflict check does, so a slot that
// passed check-musician-conflicts only fails here if another booking landed in between.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	interval, err := models.NewTimeInterval(input.Start, input.End)
	if err != nil {
		return nil, err
	}

	req := models.ConflictCheckRequest{
		TravelTimeMinutes: input.TravelTimeMinutes,
		BufferTimeMinutes: input.BufferTimeMinutes,
	}
	event, err := h.reserver.ReserveSlot(ctx, store.Reservation{
		MusicianID: input.MusicianID,
		Interval:   interval,
		Location:   input.Location,
		Padding:    req.Padding(h.config.DefaultTravelTimeMinutes, h.config.DefaultBufferTimeMinutes),
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeSlotAlreadyBooked) {
			h.logger.Warn("slot already booked", map[string]interface{}{
				"musicianId": input.MusicianID,
				"start":      input.Start,
			})
		}
		return nil, err
	}

	h.logger.Info("booking slot reserved", map[string]interface{}{
		"musicianId":    input.MusicianID,
		"bookingSlotId": event.ID,
	})

	return &Output{
		Reserved:      true,
		BookingSlotID: event.ID,
		Event:         *event,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
