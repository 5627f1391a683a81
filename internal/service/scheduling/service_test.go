package scheduling

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/provider-scheduler/internal/distance"
	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/service/optimizer"
	"github.com/example/provider-scheduler/internal/store"
)

type memWindows struct {
	items map[uuid.UUID]domain.Availability
}

func newMemWindows() *memWindows {
	return &memWindows{items: map[uuid.UUID]domain.Availability{}}
}

func (r *memWindows) Create(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	if av.ID == uuid.Nil {
		av.ID = uuid.New()
	}
	r.items[av.ID] = av
	return av, nil
}

func (r *memWindows) Update(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	if _, ok := r.items[av.ID]; !ok {
		return domain.Availability{}, store.ErrNotFound
	}
	r.items[av.ID] = av
	return av, nil
}

func (r *memWindows) Delete(ctx context.Context, providerID string, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memWindows) Get(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
	av, ok := r.items[id]
	if !ok {
		return domain.Availability{}, store.ErrNotFound
	}
	return av, nil
}

func (r *memWindows) ListForProvider(ctx context.Context, providerID string) ([]domain.Availability, error) {
	var out []domain.Availability
	for _, av := range r.items {
		if av.ProviderID == providerID {
			out = append(out, av)
		}
	}
	return out, nil
}

func (r *memWindows) ListActive(ctx context.Context, providerID string) ([]domain.Availability, error) {
	var out []domain.Availability
	for _, av := range r.items {
		if av.ProviderID == providerID && av.Active {
			out = append(out, av)
		}
	}
	return out, nil
}

func (r *memWindows) ListActiveForDay(ctx context.Context, providerID string, day time.Time) ([]domain.Availability, error) {
	var out []domain.Availability
	for _, av := range r.items {
		if av.ProviderID == providerID && av.Active && av.AppliesOn(day) {
			out = append(out, av)
		}
	}
	return out, nil
}

type memAbsences struct {
	items map[uuid.UUID]domain.Absence
}

func newMemAbsences() *memAbsences {
	return &memAbsences{items: map[uuid.UUID]domain.Absence{}}
}

func (r *memAbsences) Create(ctx context.Context, ab domain.Absence) (domain.Absence, error) {
	if ab.ID == uuid.Nil {
		ab.ID = uuid.New()
	}
	r.items[ab.ID] = ab
	return ab, nil
}

func (r *memAbsences) Update(ctx context.Context, ab domain.Absence) (domain.Absence, error) {
	if _, ok := r.items[ab.ID]; !ok {
		return domain.Absence{}, store.ErrNotFound
	}
	r.items[ab.ID] = ab
	return ab, nil
}

func (r *memAbsences) Get(ctx context.Context, id uuid.UUID) (domain.Absence, error) {
	ab, ok := r.items[id]
	if !ok {
		return domain.Absence{}, store.ErrNotFound
	}
	return ab, nil
}

func (r *memAbsences) ListActiveForPeriod(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Absence, error) {
	var out []domain.Absence
	for _, ab := range r.items {
		if ab.ProviderID == providerID && ab.IsActive() && domain.IntervalsOverlap(ab.StartDate, ab.EndDate, periodStart, periodEnd) {
			out = append(out, ab)
		}
	}
	return out, nil
}

type memBookings struct {
	bookings     []domain.Booking
	replacements map[uuid.UUID]int
}

func (r *memBookings) ListForPeriod(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range r.bookings {
		if b.ProviderID == providerID && domain.IntervalsOverlap(b.ScheduledStart, b.End(), periodStart, periodEnd) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBookings) CountReplacements(ctx context.Context, absenceID uuid.UUID) (int, error) {
	return r.replacements[absenceID], nil
}

var mondayDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fixture struct {
	windows  *memWindows
	absences *memAbsences
	bookings *memBookings
	service  *Service
}

func newFixture(horizon time.Duration) *fixture {
	windows := newMemWindows()
	absences := newMemAbsences()
	bookings := &memBookings{replacements: map[uuid.UUID]int{}}

	zeroLeg := distance.EstimatorFunc(func(ctx context.Context, from, to string) (distance.Leg, error) {
		return distance.Leg{}, nil
	})
	opt := optimizer.NewOptimizer(zeroLeg, windows, absences, bookings, optimizer.DefaultConfig())

	return &fixture{
		windows:  windows,
		absences: absences,
		bookings: bookings,
		service:  NewService(windows, absences, bookings, opt, horizon),
	}
}

func (f *fixture) addWindow(weekday time.Weekday, startMin, endMin int) domain.Availability {
	av, _ := f.windows.Create(context.Background(), domain.Availability{
		ProviderID:  "p1",
		Weekday:     int16(weekday),
		StartMinute: startMin,
		EndMinute:   endMin,
		Recurring:   true,
		Active:      true,
	})
	return av
}

func (f *fixture) addBooking(start time.Time, minutes int) domain.Booking {
	b := domain.Booking{
		ID:              uuid.New(),
		ProviderID:      "p1",
		ScheduledStart:  start,
		DurationMinutes: minutes,
		Status:          "confirmed",
	}
	f.bookings.bookings = append(f.bookings.bookings, b)
	return b
}

func TestCreateAbsence(t *testing.T) {
	f := newFixture(0)

	created, conflicts, err := f.service.CreateAbsence(context.Background(), CreateAbsenceInput{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 3),
		Reason:     "vacation",
	})
	if err != nil {
		t.Fatalf("CreateAbsence: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(conflicts))
	}
	if created.Status != domain.AbsenceStatusActive {
		t.Fatalf("expected active status, got %s", created.Status)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected an id on the created absence")
	}
}

func TestCreateAbsence_OverlappingBookingIsReported(t *testing.T) {
	f := newFixture(0)
	booked := f.addBooking(mondayDate.Add(10*time.Hour), 60)

	_, conflicts, err := f.service.CreateAbsence(context.Background(), CreateAbsenceInput{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 1),
		Reason:     "illness",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Kind != domain.ConflictAbsenceOverlap {
		t.Fatalf("expected absence_overlap, got %s", conflicts[0].Kind)
	}
	if conflicts[0].BookingID != booked.ID {
		t.Fatalf("conflict references booking %s, want %s", conflicts[0].BookingID, booked.ID)
	}
}

func TestCreateAbsence_Validation(t *testing.T) {
	f := newFixture(0)

	_, _, err := f.service.CreateAbsence(context.Background(), CreateAbsenceInput{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty period, got %v", err)
	}

	_, _, err = f.service.CreateAbsence(context.Background(), CreateAbsenceInput{
		StartDate: mondayDate,
		EndDate:   mondayDate.AddDate(0, 0, 1),
	})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing provider, got %v", err)
	}
}

func TestUpdateAbsence_CancelledIsImmutable(t *testing.T) {
	f := newFixture(0)
	ab, _ := f.absences.Create(context.Background(), domain.Absence{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 1),
		Status:     domain.AbsenceStatusCancelled,
	})

	_, _, err := f.service.UpdateAbsence(context.Background(), ab.ID, mondayDate, mondayDate.AddDate(0, 0, 2), "longer")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCancelAbsence(t *testing.T) {
	f := newFixture(0)
	ab, _ := f.absences.Create(context.Background(), domain.Absence{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 1),
		Status:     domain.AbsenceStatusActive,
	})

	cancelled, err := f.service.CancelAbsence(context.Background(), ab.ID)
	if err != nil {
		t.Fatalf("CancelAbsence: %v", err)
	}
	if cancelled.Status != domain.AbsenceStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}

	if _, err := f.service.CancelAbsence(context.Background(), ab.ID); err == nil {
		t.Fatal("expected error cancelling twice")
	}
}

func TestCancelAbsence_BlockedByReplacements(t *testing.T) {
	f := newFixture(0)
	ab, _ := f.absences.Create(context.Background(), domain.Absence{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 1),
		Status:     domain.AbsenceStatusActive,
	})
	f.bookings.replacements[ab.ID] = 2

	_, err := f.service.CancelAbsence(context.Background(), ab.ID)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, _ := f.absences.Get(context.Background(), ab.ID)
	if got.Status != domain.AbsenceStatusActive {
		t.Fatalf("blocked cancel must not change status, got %s", got.Status)
	}
}

func TestGetCompleteSchedule(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 17*60)
	f.addBooking(mondayDate.Add(10*time.Hour), 60)
	f.absences.Create(context.Background(), domain.Absence{
		ProviderID: "p1",
		StartDate:  mondayDate.AddDate(0, 0, 2),
		EndDate:    mondayDate.AddDate(0, 0, 3),
		Status:     domain.AbsenceStatusActive,
	})

	schedule, err := f.service.GetCompleteSchedule(context.Background(), "p1", mondayDate, mondayDate.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("GetCompleteSchedule: %v", err)
	}
	if len(schedule.Availabilities) != 1 || len(schedule.Bookings) != 1 || len(schedule.Absences) != 1 {
		t.Fatalf("unexpected assembly: %d windows, %d bookings, %d absences",
			len(schedule.Availabilities), len(schedule.Bookings), len(schedule.Absences))
	}
	if schedule.Conflicts == nil {
		t.Fatal("conflicts must be an empty list, not nil")
	}
	if len(schedule.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", schedule.Conflicts)
	}
}

func TestIsPeriodFree(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 17*60)
	f.addBooking(mondayDate.Add(10*time.Hour), 60)

	free, err := f.service.IsPeriodFree(context.Background(), "p1", mondayDate.Add(14*time.Hour), mondayDate.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("IsPeriodFree: %v", err)
	}
	if !free {
		t.Fatal("expected 14:00-15:00 to be free")
	}

	free, err = f.service.IsPeriodFree(context.Background(), "p1", mondayDate.Add(10*time.Hour+30*time.Minute), mondayDate.Add(11*time.Hour+30*time.Minute))
	if err != nil {
		t.Fatalf("IsPeriodFree: %v", err)
	}
	if free {
		t.Fatal("expected overlap with the booking to block the period")
	}

	free, err = f.service.IsPeriodFree(context.Background(), "p1", mondayDate.Add(18*time.Hour), mondayDate.Add(19*time.Hour))
	if err != nil {
		t.Fatalf("IsPeriodFree: %v", err)
	}
	if free {
		t.Fatal("expected time outside the window to be not free")
	}
}

func TestIsPeriodFree_SubMinutePeriod(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 17*60)

	free, err := f.service.IsPeriodFree(context.Background(), "p1", mondayDate.Add(10*time.Hour), mondayDate.Add(10*time.Hour+30*time.Second))
	if err != nil {
		t.Fatalf("IsPeriodFree: %v", err)
	}
	if !free {
		t.Fatal("expected a 30-second period inside the window to be free")
	}
}

func TestIsPeriodFree_AbsenceBlocks(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 17*60)
	f.absences.Create(context.Background(), domain.Absence{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 1),
		Status:     domain.AbsenceStatusActive,
	})

	free, err := f.service.IsPeriodFree(context.Background(), "p1", mondayDate.Add(10*time.Hour), mondayDate.Add(11*time.Hour))
	if err != nil {
		t.Fatalf("IsPeriodFree: %v", err)
	}
	if free {
		t.Fatal("expected the absence to block the period")
	}
}

func TestFindNextAvailableSlot(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 12*60)

	slot, err := f.service.FindNextAvailableSlot(context.Background(), "p1", mondayDate.Add(10*time.Hour+30*time.Minute), 60)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot: %v", err)
	}
	if want := mondayDate.Add(11 * time.Hour); !slot.Start.Equal(want) {
		t.Fatalf("expected slot at %s, got %s", want, slot.Start)
	}

	// From Tuesday the next candidate day is the following Monday.
	slot, err = f.service.FindNextAvailableSlot(context.Background(), "p1", mondayDate.AddDate(0, 0, 1), 60)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot: %v", err)
	}
	if want := mondayDate.AddDate(0, 0, 7).Add(9 * time.Hour); !slot.Start.Equal(want) {
		t.Fatalf("expected slot at %s, got %s", want, slot.Start)
	}
}

func TestFindNextAvailableSlot_SkipsActiveAbsence(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 12*60)
	f.absences.Create(context.Background(), domain.Absence{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 7),
		Status:     domain.AbsenceStatusActive,
	})

	slot, err := f.service.FindNextAvailableSlot(context.Background(), "p1", mondayDate, 60)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot: %v", err)
	}
	if want := mondayDate.AddDate(0, 0, 7).Add(9 * time.Hour); !slot.Start.Equal(want) {
		t.Fatalf("expected first slot after the absence at %s, got %s", want, slot.Start)
	}

	free, err := f.service.IsPeriodFree(context.Background(), "p1", slot.Start, slot.End)
	if err != nil {
		t.Fatalf("IsPeriodFree: %v", err)
	}
	if !free {
		t.Fatal("returned slot must be free by the service's own definition")
	}
}

func TestFindNextAvailableSlot_CancelledAbsenceDoesNotBlock(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 12*60)
	f.absences.Create(context.Background(), domain.Absence{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 7),
		Status:     domain.AbsenceStatusCancelled,
	})

	slot, err := f.service.FindNextAvailableSlot(context.Background(), "p1", mondayDate, 60)
	if err != nil {
		t.Fatalf("FindNextAvailableSlot: %v", err)
	}
	if want := mondayDate.Add(9 * time.Hour); !slot.Start.Equal(want) {
		t.Fatalf("expected slot at %s, got %s", want, slot.Start)
	}
}

func TestFindNextAvailableSlot_AbsenceCoversHorizon(t *testing.T) {
	f := newFixture(6 * 24 * time.Hour)
	f.addWindow(time.Monday, 9*60, 12*60)
	f.absences.Create(context.Background(), domain.Absence{
		ProviderID: "p1",
		StartDate:  mondayDate,
		EndDate:    mondayDate.AddDate(0, 0, 7),
		Status:     domain.AbsenceStatusActive,
	})

	_, err := f.service.FindNextAvailableSlot(context.Background(), "p1", mondayDate, 60)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound when the absence fills the horizon, got %v", err)
	}
}

func TestFindNextAvailableSlot_HorizonBound(t *testing.T) {
	f := newFixture(24 * time.Hour)
	f.addWindow(time.Monday, 9*60, 12*60)

	_, err := f.service.FindNextAvailableSlot(context.Background(), "p1", mondayDate.AddDate(0, 0, 1), 60)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound beyond the horizon, got %v", err)
	}
}

func TestSuggestOptimizations(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 12*60)
	// Two bookings at the same time: a double booking plus full occupancy.
	f.addBooking(mondayDate.Add(9*time.Hour), 90)
	f.addBooking(mondayDate.Add(9*time.Hour+30*time.Minute), 90)

	recs, err := f.service.SuggestOptimizations(context.Background(), "p1", mondayDate, mondayDate.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("SuggestOptimizations: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	if recs[0].Priority != PriorityHigh || recs[0].Category != "conflicts" {
		t.Fatalf("expected the conflict recommendation first, got %+v", recs[0])
	}
	for i := 1; i < len(recs); i++ {
		if priorityRank(recs[i-1].Priority) > priorityRank(recs[i].Priority) {
			t.Fatalf("recommendations out of priority order: %+v", recs)
		}
	}
}

func TestSuggestOptimizations_QuietWeek(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 12*60)
	f.addBooking(mondayDate.Add(9*time.Hour), 60)

	recs, err := f.service.SuggestOptimizations(context.Background(), "p1", mondayDate, mondayDate.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("SuggestOptimizations: %v", err)
	}
	for _, r := range recs {
		if r.Category == "conflicts" {
			t.Fatalf("no conflicts expected, got %+v", r)
		}
	}
}

func TestExportScheduleCSV(t *testing.T) {
	f := newFixture(0)
	f.addWindow(time.Monday, 9*60, 12*60)
	f.addBooking(mondayDate.Add(10*time.Hour), 60)

	var buf bytes.Buffer
	if err := f.service.ExportScheduleCSV(context.Background(), &buf, "p1", mondayDate, mondayDate.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("ExportScheduleCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "record_type,") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "availability,") {
		t.Fatalf("expected availability row, got %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "booking,") {
		t.Fatalf("expected booking row, got %s", lines[2])
	}
}
