package service

import (
	"context"
	"time"

	"campushub/internal/occupancy/repository"
	"campushub/internal/occupancy/validator"
	"campushub/pkg/config"
	apperrors "campushub/pkg/errors"
	"campushub/pkg/events"
	"campushub/pkg/model"
	"campushub/pkg/notify"
	"campushub/pkg/sanitizer"

	"github.com/google/uuid"
)

// OccupancyService is the state machine over the occupancy document:
// EMPTY, OCCUPIED, or RESERVED. While a reservation is active every
// check-in/check-out call refuses with a conflict and leaves the
// document untouched.
type OccupancyService interface {
	State(ctx context.Context) (*model.OccupancyState, error)
	Activity(ctx context.Context, limit, offset int) ([]model.ActivityEntry, int, error)
	CheckIn(ctx context.Context, req *model.CheckInRequest, user string) (*model.CheckInRecord, error)
	CheckOutSingle(ctx context.Context, user string) error
	CheckOutGroup(ctx context.Context, checkInID, user string) error
	Reserve(ctx context.Context, req *model.ReservationRequest, user string) (*model.Reservation, error)
	EndReservation(ctx context.Context, user string) error
	Reset(ctx context.Context) error
	NightlyReset(ctx context.Context, now time.Time) (bool, error)
}

type occupancyService struct {
	repo      repository.OccupancyRepository
	validator *validator.OccupancyValidator
	publisher events.Publisher
	hub       *notify.Hub
	cfg       *config.Config
}

func NewOccupancyService(
	repo repository.OccupancyRepository,
	occupancyValidator *validator.OccupancyValidator,
	publisher events.Publisher,
	hub *notify.Hub,
	cfg *config.Config,
) OccupancyService {
	return &occupancyService{
		repo:      repo,
		validator: occupancyValidator,
		publisher: publisher,
		hub:       hub,
		cfg:       cfg,
	}
}

func (s *occupancyService) State(ctx context.Context) (*model.OccupancyState, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to read occupancy state", err)
	}
	return state, nil
}

// Activity returns the log newest-first, paginated.
func (s *occupancyService) Activity(ctx context.Context, limit, offset int) ([]model.ActivityEntry, int, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to read occupancy state", err)
	}

	total := len(state.ActivityLog)
	entries := make([]model.ActivityEntry, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, state.ActivityLog[i])
	}
	return entries, total, nil
}

func (s *occupancyService) CheckIn(ctx context.Context, req *model.CheckInRequest, user string) (*model.CheckInRecord, error) {
	if err := s.validator.ValidateCheckIn(req); err != nil {
		s.cfg.Log.Warn("Check-in validation failed", "user", user, "error", err)
		return nil, apperrors.Validation("Invalid check-in input", map[string]any{"error": err.Error()})
	}

	state, err := s.repo.Get(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to read occupancy state", err)
	}
	if state.Reserved() {
		return nil, apperrors.Conflict("The local is reserved; check-ins are blocked")
	}

	record := model.CheckInRecord{
		ID:        uuid.New().String(),
		User:      user,
		People:    req.People,
		Timestamp: time.Now().UTC(),
	}
	state.CheckIns = append(state.CheckIns, record)
	s.appendLog(state, model.ActivityEntry{
		Type:      model.ActivityCheckIn,
		User:      user,
		People:    record.People,
		CheckInID: record.ID,
	})

	if err := s.repo.Replace(ctx, state); err != nil {
		s.cfg.Log.Error("Failed to persist check-in", "user", user, "error", err)
		return nil, apperrors.Internal("Failed to persist check-in", err)
	}

	s.cfg.Log.Info("Check-in recorded",
		"check_in_id", record.ID,
		"user", user,
		"people", record.People,
		"count", state.Count(),
	)
	s.afterMutation(ctx, state.ActivityLog[len(state.ActivityLog)-1])
	return &record, nil
}

// CheckOutSingle removes one person from the most recently added
// record, whoever it belongs to. Callers invoke it to remove
// themselves, so it is only accurate when the caller's record is last;
// the behavior is kept as-is pending product clarification.
func (s *occupancyService) CheckOutSingle(ctx context.Context, user string) error {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return apperrors.Internal("Failed to read occupancy state", err)
	}
	if state.Reserved() {
		return apperrors.Conflict("The local is reserved; check-outs are blocked")
	}
	if len(state.CheckIns) == 0 {
		return apperrors.Conflict("Nobody is checked in")
	}

	last := len(state.CheckIns) - 1
	if state.CheckIns[last].People > 1 {
		state.CheckIns[last].People--
	} else {
		state.CheckIns = state.CheckIns[:last]
	}
	s.appendLog(state, model.ActivityEntry{
		Type: model.ActivityCheckOutSingle,
		User: user,
	})

	if err := s.repo.Replace(ctx, state); err != nil {
		s.cfg.Log.Error("Failed to persist single check-out", "user", user, "error", err)
		return apperrors.Internal("Failed to persist check-out", err)
	}

	s.cfg.Log.Info("Single check-out recorded", "user", user, "count", state.Count())
	s.afterMutation(ctx, state.ActivityLog[len(state.ActivityLog)-1])
	return nil
}

func (s *occupancyService) CheckOutGroup(ctx context.Context, checkInID, user string) error {
	if checkInID == "" {
		return apperrors.InvalidInput("Check-in ID cannot be empty")
	}

	state, err := s.repo.Get(ctx)
	if err != nil {
		return apperrors.Internal("Failed to read occupancy state", err)
	}
	if state.Reserved() {
		return apperrors.Conflict("The local is reserved; check-outs are blocked")
	}

	found := -1
	for i, record := range state.CheckIns {
		if record.ID == checkInID {
			found = i
			break
		}
	}
	if found < 0 {
		return apperrors.NotFoundWithID("Check-in record", checkInID)
	}

	freed := state.CheckIns[found].People
	state.CheckIns = append(state.CheckIns[:found], state.CheckIns[found+1:]...)
	s.appendLog(state, model.ActivityEntry{
		Type:      model.ActivityCheckOutGroup,
		User:      user,
		People:    freed,
		CheckInID: checkInID,
	})

	if err := s.repo.Replace(ctx, state); err != nil {
		s.cfg.Log.Error("Failed to persist group check-out", "check_in_id", checkInID, "error", err)
		return apperrors.Internal("Failed to persist check-out", err)
	}

	s.cfg.Log.Info("Group check-out recorded",
		"check_in_id", checkInID,
		"user", user,
		"people", freed,
		"count", state.Count(),
	)
	s.afterMutation(ctx, state.ActivityLog[len(state.ActivityLog)-1])
	return nil
}

// Reserve sets the hold unconditionally and clears any active
// check-ins; the ledger does not require the local to be empty first.
func (s *occupancyService) Reserve(ctx context.Context, req *model.ReservationRequest, user string) (*model.Reservation, error) {
	s.sanitizeReservation(req)
	if err := s.validator.ValidateReservation(req); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "user", user, "error", err)
		return nil, apperrors.Validation("Invalid reservation input", map[string]any{"error": err.Error()})
	}

	state, err := s.repo.Get(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to read occupancy state", err)
	}

	reservation := model.Reservation{
		Reason:       req.Reason,
		ContactPhone: req.ContactPhone,
		EndTime:      req.EndTime,
		ReservedAt:   time.Now().UTC(),
	}
	state.Reservation = &reservation
	state.CheckIns = []model.CheckInRecord{}
	s.appendLog(state, model.ActivityEntry{
		Type:   model.ActivityReservationStart,
		User:   user,
		Reason: reservation.Reason,
	})

	if err := s.repo.Replace(ctx, state); err != nil {
		s.cfg.Log.Error("Failed to persist reservation", "user", user, "error", err)
		return nil, apperrors.Internal("Failed to persist reservation", err)
	}

	s.cfg.Log.Info("Reservation started",
		"user", user,
		"reason", reservation.Reason,
		"end_time", reservation.EndTime,
	)
	s.afterMutation(ctx, state.ActivityLog[len(state.ActivityLog)-1])
	return &reservation, nil
}

func (s *occupancyService) EndReservation(ctx context.Context, user string) error {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return apperrors.Internal("Failed to read occupancy state", err)
	}
	if !state.Reserved() {
		return apperrors.Conflict("No active reservation")
	}

	reason := state.Reservation.Reason
	state.Reservation = nil
	state.CheckIns = []model.CheckInRecord{}
	s.appendLog(state, model.ActivityEntry{
		Type:   model.ActivityReservationEnd,
		User:   user,
		Reason: reason,
	})

	if err := s.repo.Replace(ctx, state); err != nil {
		s.cfg.Log.Error("Failed to persist reservation end", "user", user, "error", err)
		return apperrors.Internal("Failed to persist reservation end", err)
	}

	s.cfg.Log.Info("Reservation ended", "user", user, "reason", reason)
	s.afterMutation(ctx, state.ActivityLog[len(state.ActivityLog)-1])
	return nil
}

// Reset clears everything, activity log included. Irreversible.
func (s *occupancyService) Reset(ctx context.Context) error {
	state := model.NewOccupancyState()
	if err := s.repo.Replace(ctx, state); err != nil {
		s.cfg.Log.Error("Failed to reset occupancy state", "error", err)
		return apperrors.Internal("Failed to reset occupancy state", err)
	}

	s.cfg.Log.Info("Occupancy state reset")
	s.hub.Broadcast()
	return nil
}

// NightlyReset clears check-ins and any reservation once per calendar
// day at the configured hour; the activity log is retained. The
// last-fired marker makes a second invocation within the same day a
// no-op.
func (s *occupancyService) NightlyReset(ctx context.Context, now time.Time) (bool, error) {
	if now.Hour() != s.cfg.NightlyResetHour {
		return false, nil
	}

	day := now.Format("2006-01-02")
	lastDay, err := s.repo.LastResetDay(ctx)
	if err != nil {
		return false, apperrors.Internal("Failed to read reset marker", err)
	}
	if lastDay == day {
		return false, nil
	}

	state, err := s.repo.Get(ctx)
	if err != nil {
		return false, apperrors.Internal("Failed to read occupancy state", err)
	}

	total := state.Count()
	state.CheckIns = []model.CheckInRecord{}
	state.Reservation = nil
	s.appendLog(state, model.ActivityEntry{
		Type:   model.ActivitySystemReset,
		User:   model.SystemActor,
		People: total,
	})

	if err := s.repo.Replace(ctx, state); err != nil {
		s.cfg.Log.Error("Failed to persist nightly reset", "error", err)
		return false, apperrors.Internal("Failed to persist nightly reset", err)
	}
	if err := s.repo.SetLastResetDay(ctx, day); err != nil {
		s.cfg.Log.Error("Failed to stamp reset marker", "day", day, "error", err)
		return false, apperrors.Internal("Failed to stamp reset marker", err)
	}

	s.cfg.Log.Info("Nightly reset fired", "day", day, "people_cleared", total)
	s.afterMutation(ctx, state.ActivityLog[len(state.ActivityLog)-1])
	return true, nil
}

// --- Helpers ---

func (s *occupancyService) appendLog(state *model.OccupancyState, entry model.ActivityEntry) {
	entry.Timestamp = time.Now().UTC()
	state.ActivityLog = append(state.ActivityLog, entry)
}

// afterMutation fans the change out: a Kafka activity event for
// external consumers and a payload-free broadcast for connected views.
// Event delivery failures are logged, never surfaced — the state write
// already succeeded.
func (s *occupancyService) afterMutation(ctx context.Context, entry model.ActivityEntry) {
	if err := s.publisher.PublishActivity(ctx, entry); err != nil {
		s.cfg.Log.Warn("Failed to publish activity event", "type", entry.Type, "error", err)
	}
	s.hub.Broadcast()
}

func (s *occupancyService) sanitizeReservation(req *model.ReservationRequest) {
	req.Reason = sanitizer.CleanText(req.Reason)
	req.ContactPhone = sanitizer.CleanPhone(req.ContactPhone)
	req.EndTime = sanitizer.CleanText(req.EndTime)
}
