package service

import (
	"context"
	"testing"
	"time"

	occvalidator "campushub/internal/occupancy/validator"
	"campushub/pkg/config"
	apperrors "campushub/pkg/errors"
	"campushub/pkg/events"
	"campushub/pkg/logger"
	"campushub/pkg/model"
	"campushub/pkg/notify"
)

// ────────────────────────────────────────────────
// In-memory repository for testing
// ────────────────────────────────────────────────

type memoryOccupancyRepository struct {
	state        *model.OccupancyState
	lastResetDay string
}

func newMemoryOccupancyRepository() *memoryOccupancyRepository {
	return &memoryOccupancyRepository{state: model.NewOccupancyState()}
}

func (m *memoryOccupancyRepository) Get(ctx context.Context) (*model.OccupancyState, error) {
	clone := *m.state
	clone.CheckIns = append([]model.CheckInRecord{}, m.state.CheckIns...)
	clone.ActivityLog = append([]model.ActivityEntry{}, m.state.ActivityLog...)
	if m.state.Reservation != nil {
		reservation := *m.state.Reservation
		clone.Reservation = &reservation
	}
	return &clone, nil
}

func (m *memoryOccupancyRepository) Replace(ctx context.Context, state *model.OccupancyState) error {
	m.state = state
	return nil
}

func (m *memoryOccupancyRepository) LastResetDay(ctx context.Context) (string, error) {
	return m.lastResetDay, nil
}

func (m *memoryOccupancyRepository) SetLastResetDay(ctx context.Context, day string) error {
	m.lastResetDay = day
	return nil
}

func newTestService(repo *memoryOccupancyRepository) OccupancyService {
	log := logger.New(logger.Config{Level: logger.LevelError, Service: "test"})
	cfg := &config.Config{
		Log:              log,
		NightlyResetHour: 22,
	}
	return NewOccupancyService(
		repo,
		occvalidator.NewOccupancyValidator(log),
		events.NewNoopPublisher(),
		notify.NewHub(),
		cfg,
	)
}

func mustCheckIn(t *testing.T, svc OccupancyService, people int, user string) *model.CheckInRecord {
	t.Helper()
	record, err := svc.CheckIn(context.Background(), &model.CheckInRequest{People: people}, user)
	if err != nil {
		t.Fatalf("CheckIn(%d, %s) failed: %v", people, user, err)
	}
	return record
}

func currentState(t *testing.T, svc OccupancyService) *model.OccupancyState {
	t.Helper()
	state, err := svc.State(context.Background())
	if err != nil {
		t.Fatalf("State() failed: %v", err)
	}
	return state
}

func assertInvariant(t *testing.T, state *model.OccupancyState) {
	t.Helper()
	if state.Reservation != nil && len(state.CheckIns) != 0 {
		t.Fatalf("invariant violated: reservation active with %d check-ins", len(state.CheckIns))
	}
}

// ────────────────────────────────────────────────
// Check-in / check-out
// ────────────────────────────────────────────────

func TestCheckIn_CountSumsPeople(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())

	groups := []int{3, 1, 5, 2}
	expected := 0
	for _, people := range groups {
		mustCheckIn(t, svc, people, "alice")
		expected += people
	}

	state := currentState(t, svc)
	if state.Count() != expected {
		t.Errorf("Count() = %d, want %d", state.Count(), expected)
	}
	if len(state.CheckIns) != len(groups) {
		t.Errorf("len(CheckIns) = %d, want %d", len(state.CheckIns), len(groups))
	}
	if len(state.ActivityLog) != len(groups) {
		t.Errorf("len(ActivityLog) = %d, want %d", len(state.ActivityLog), len(groups))
	}
	assertInvariant(t, state)
}

func TestCheckIn_SameUserAccumulatesRecords(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())

	mustCheckIn(t, svc, 2, "alice")
	mustCheckIn(t, svc, 1, "alice")

	state := currentState(t, svc)
	if len(state.CheckIns) != 2 {
		t.Errorf("expected no dedup by user, got %d records", len(state.CheckIns))
	}
}

func TestCheckIn_RejectsInvalidPeople(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())

	for _, people := range []int{0, -1} {
		_, err := svc.CheckIn(context.Background(), &model.CheckInRequest{People: people}, "alice")
		if err == nil {
			t.Errorf("CheckIn(%d) should fail validation", people)
			continue
		}
		if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
			t.Errorf("CheckIn(%d): expected %s, got %s", people, apperrors.CodeValidation, apperrors.AsAppError(err).Code)
		}
	}

	if got := len(currentState(t, svc).CheckIns); got != 0 {
		t.Errorf("invalid check-ins must not change state, got %d records", got)
	}
}

func TestCheckOutSingle_RemovesFromLastRecord(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())

	// alice brings 3, then bob arrives alone. Single check-out affects
	// bob's record because it was added last.
	mustCheckIn(t, svc, 3, "alice")
	mustCheckIn(t, svc, 1, "bob")

	state := currentState(t, svc)
	if state.Count() != 4 || len(state.CheckIns) != 2 {
		t.Fatalf("setup: count=%d records=%d, want 4/2", state.Count(), len(state.CheckIns))
	}

	if err := svc.CheckOutSingle(context.Background(), "bob"); err != nil {
		t.Fatalf("CheckOutSingle failed: %v", err)
	}

	state = currentState(t, svc)
	if state.Count() != 3 {
		t.Errorf("Count() = %d, want 3", state.Count())
	}
	if len(state.CheckIns) != 1 {
		t.Errorf("len(CheckIns) = %d, want 1", len(state.CheckIns))
	}
	if state.CheckIns[0].User != "alice" || state.CheckIns[0].People != 3 {
		t.Errorf("remaining record = %+v, want alice's group of 3", state.CheckIns[0])
	}
}

func TestCheckOutSingle_DecrementsGroup(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	mustCheckIn(t, svc, 3, "alice")

	if err := svc.CheckOutSingle(context.Background(), "alice"); err != nil {
		t.Fatalf("CheckOutSingle failed: %v", err)
	}

	state := currentState(t, svc)
	if len(state.CheckIns) != 1 || state.CheckIns[0].People != 2 {
		t.Errorf("expected one record with people=2, got %+v", state.CheckIns)
	}
}

func TestCheckOutSingle_RemovesRecordAtZero(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	mustCheckIn(t, svc, 1, "alice")

	if err := svc.CheckOutSingle(context.Background(), "alice"); err != nil {
		t.Fatalf("CheckOutSingle failed: %v", err)
	}

	state := currentState(t, svc)
	if len(state.CheckIns) != 0 {
		t.Errorf("expected record removed entirely, got %+v", state.CheckIns)
	}
}

func TestCheckOutSingle_EmptyLedger(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())

	err := svc.CheckOutSingle(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected error on empty ledger")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("expected %s, got %s", apperrors.CodeConflict, apperrors.AsAppError(err).Code)
	}
}

func TestCheckOutGroup_RemovesWholeRecord(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	record := mustCheckIn(t, svc, 3, "alice")
	mustCheckIn(t, svc, 2, "bob")

	if err := svc.CheckOutGroup(context.Background(), record.ID, "alice"); err != nil {
		t.Fatalf("CheckOutGroup failed: %v", err)
	}

	state := currentState(t, svc)
	if state.Count() != 2 || len(state.CheckIns) != 1 {
		t.Errorf("count=%d records=%d, want 2/1", state.Count(), len(state.CheckIns))
	}
	last := state.ActivityLog[len(state.ActivityLog)-1]
	if last.Type != model.ActivityCheckOutGroup || last.People != 3 {
		t.Errorf("expected group check-out log with people=3, got %+v", last)
	}
}

func TestCheckOutGroup_UnknownID(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	mustCheckIn(t, svc, 2, "alice")

	err := svc.CheckOutGroup(context.Background(), "missing", "alice")
	if err == nil {
		t.Fatal("expected error for unknown check-in id")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("expected %s, got %s", apperrors.CodeNotFound, apperrors.AsAppError(err).Code)
	}
	if got := currentState(t, svc).Count(); got != 2 {
		t.Errorf("state must be unchanged, count=%d", got)
	}
}

// ────────────────────────────────────────────────
// Reservations
// ────────────────────────────────────────────────

func reservationRequest() *model.ReservationRequest {
	return &model.ReservationRequest{
		Reason:       "meeting",
		ContactPhone: "+972541234567",
		EndTime:      "around 18:00",
	}
}

func TestReserve_ClearsCheckIns(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	mustCheckIn(t, svc, 3, "alice")

	if _, err := svc.Reserve(context.Background(), reservationRequest(), "alice"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	state := currentState(t, svc)
	if !state.Reserved() {
		t.Fatal("expected reservation to be set")
	}
	if len(state.CheckIns) != 0 || state.Count() != 0 {
		t.Errorf("expected check-ins cleared, got %+v", state.CheckIns)
	}
	assertInvariant(t, state)
}

func TestReservedLedger_BlocksMutations(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	if _, err := svc.Reserve(context.Background(), reservationRequest(), "alice"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	before := currentState(t, svc)

	tests := []struct {
		name string
		call func() error
	}{
		{"check-in", func() error {
			_, err := svc.CheckIn(context.Background(), &model.CheckInRequest{People: 2}, "bob")
			return err
		}},
		{"single check-out", func() error {
			return svc.CheckOutSingle(context.Background(), "bob")
		}},
		{"group check-out", func() error {
			return svc.CheckOutGroup(context.Background(), "any-id", "bob")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("expected conflict while reserved")
			}
			if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
				t.Errorf("expected %s, got %s", apperrors.CodeConflict, apperrors.AsAppError(err).Code)
			}

			after := currentState(t, svc)
			if len(after.CheckIns) != len(before.CheckIns) ||
				len(after.ActivityLog) != len(before.ActivityLog) ||
				!after.Reserved() {
				t.Error("state changed by a refused operation")
			}
			assertInvariant(t, after)
		})
	}
}

func TestEndReservation_ClearsReservation(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	if _, err := svc.Reserve(context.Background(), reservationRequest(), "alice"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if err := svc.EndReservation(context.Background(), "alice"); err != nil {
		t.Fatalf("EndReservation failed: %v", err)
	}

	state := currentState(t, svc)
	if state.Reserved() {
		t.Error("expected reservation cleared")
	}
	last := state.ActivityLog[len(state.ActivityLog)-1]
	if last.Type != model.ActivityReservationEnd || last.Reason != "meeting" {
		t.Errorf("expected reservation-end log carrying the prior reason, got %+v", last)
	}

	// Check-ins work again.
	mustCheckIn(t, svc, 2, "bob")
	if got := currentState(t, svc).Count(); got != 2 {
		t.Errorf("count after re-opening = %d, want 2", got)
	}
}

func TestEndReservation_NoActiveReservation(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())

	err := svc.EndReservation(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected conflict when no reservation is active")
	}
}

func TestReserve_RejectsInvalidInput(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())

	_, err := svc.Reserve(context.Background(), &model.ReservationRequest{}, "alice")
	if err == nil {
		t.Fatal("expected validation error for empty reservation")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
		t.Errorf("expected %s, got %s", apperrors.CodeValidation, apperrors.AsAppError(err).Code)
	}
	if currentState(t, svc).Reserved() {
		t.Error("invalid reservation must not change state")
	}
}

// ────────────────────────────────────────────────
// Reset and nightly reset
// ────────────────────────────────────────────────

func TestReset_ClearsEverything(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	mustCheckIn(t, svc, 4, "alice")

	if err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	state := currentState(t, svc)
	if len(state.CheckIns) != 0 || state.Reservation != nil || len(state.ActivityLog) != 0 {
		t.Errorf("expected pristine state after reset, got %+v", state)
	}
}

func TestNightlyReset_FiresOncePerDay(t *testing.T) {
	repo := newMemoryOccupancyRepository()
	svc := newTestService(repo)
	mustCheckIn(t, svc, 3, "alice")
	mustCheckIn(t, svc, 2, "bob")

	at := time.Date(2024, 3, 15, 22, 0, 30, 0, time.UTC)
	fired, err := svc.NightlyReset(context.Background(), at)
	if err != nil {
		t.Fatalf("NightlyReset failed: %v", err)
	}
	if !fired {
		t.Fatal("expected first invocation to fire")
	}

	state := currentState(t, svc)
	if len(state.CheckIns) != 0 || state.Reservation != nil {
		t.Errorf("expected check-ins and reservation cleared, got %+v", state)
	}
	last := state.ActivityLog[len(state.ActivityLog)-1]
	if last.Type != model.ActivitySystemReset || last.User != model.SystemActor || last.People != 5 {
		t.Errorf("expected system-reset log with people=5, got %+v", last)
	}
	logLen := len(state.ActivityLog)

	// Same day, minutes later: the marker suppresses the second firing.
	fired, err = svc.NightlyReset(context.Background(), at.Add(45*time.Minute))
	if err != nil {
		t.Fatalf("NightlyReset (second) failed: %v", err)
	}
	if fired {
		t.Error("expected second invocation within the same day to be a no-op")
	}
	if got := len(currentState(t, svc).ActivityLog); got != logLen {
		t.Errorf("activity log grew on a suppressed reset: %d -> %d", logLen, got)
	}

	// Next day it fires again.
	fired, err = svc.NightlyReset(context.Background(), at.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("NightlyReset (next day) failed: %v", err)
	}
	if !fired {
		t.Error("expected reset to fire on the following day")
	}
}

func TestNightlyReset_WrongHourIsNoop(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	mustCheckIn(t, svc, 2, "alice")

	fired, err := svc.NightlyReset(context.Background(), time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NightlyReset failed: %v", err)
	}
	if fired {
		t.Error("reset must not fire outside the configured hour")
	}
	if got := currentState(t, svc).Count(); got != 2 {
		t.Errorf("state changed outside the reset hour, count=%d", got)
	}
}

func TestNightlyReset_RetainsActivityLog(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	mustCheckIn(t, svc, 2, "alice")
	logBefore := len(currentState(t, svc).ActivityLog)

	fired, err := svc.NightlyReset(context.Background(), time.Date(2024, 3, 15, 22, 5, 0, 0, time.UTC))
	if err != nil || !fired {
		t.Fatalf("NightlyReset fired=%v err=%v", fired, err)
	}

	if got := len(currentState(t, svc).ActivityLog); got != logBefore+1 {
		t.Errorf("expected log retained plus system-reset entry, got %d entries", got)
	}
}

// ────────────────────────────────────────────────
// Activity pagination
// ────────────────────────────────────────────────

func TestActivity_NewestFirstPagination(t *testing.T) {
	svc := newTestService(newMemoryOccupancyRepository())
	mustCheckIn(t, svc, 1, "alice")
	mustCheckIn(t, svc, 2, "bob")
	mustCheckIn(t, svc, 3, "carol")

	entries, total, err := svc.Activity(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("Activity failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].User != "carol" || entries[1].User != "bob" {
		t.Errorf("expected newest-first order, got %s then %s", entries[0].User, entries[1].User)
	}

	entries, _, err = svc.Activity(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("Activity (offset) failed: %v", err)
	}
	if len(entries) != 1 || entries[0].User != "alice" {
		t.Errorf("expected the oldest entry at offset 2, got %+v", entries)
	}
}
