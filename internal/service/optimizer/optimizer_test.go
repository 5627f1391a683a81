package optimizer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/provider-scheduler/internal/distance"
	"github.com/example/provider-scheduler/internal/domain"
)

// gridEstimator treats addresses as "x,y" grid points with Manhattan
// distance and one minute of travel per km.
func gridEstimator() distance.Estimator {
	return distance.EstimatorFunc(func(ctx context.Context, from, to string) (distance.Leg, error) {
		if from == to {
			return distance.Leg{}, nil
		}
		fx, fy, err := gridPoint(from)
		if err != nil {
			return distance.Leg{}, err
		}
		tx, ty, err := gridPoint(to)
		if err != nil {
			return distance.Leg{}, err
		}
		km := abs(fx-tx) + abs(fy-ty)
		return distance.Leg{Km: km, TravelTime: time.Duration(km * float64(time.Minute))}, nil
	})
}

func gridPoint(addr string) (float64, float64, error) {
	parts := strings.SplitN(addr, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad grid address %q", addr)
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

type stubWindows struct {
	windows []domain.Availability
}

func (s *stubWindows) Create(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	panic("not used")
}

func (s *stubWindows) Update(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	panic("not used")
}

func (s *stubWindows) Delete(ctx context.Context, providerID string, id uuid.UUID) error {
	panic("not used")
}

func (s *stubWindows) Get(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
	panic("not used")
}

func (s *stubWindows) ListForProvider(ctx context.Context, providerID string) ([]domain.Availability, error) {
	return s.windows, nil
}

func (s *stubWindows) ListActive(ctx context.Context, providerID string) ([]domain.Availability, error) {
	return s.windows, nil
}

func (s *stubWindows) ListActiveForDay(ctx context.Context, providerID string, day time.Time) ([]domain.Availability, error) {
	var out []domain.Availability
	for _, w := range s.windows {
		if w.AppliesOn(day) {
			out = append(out, w)
		}
	}
	return out, nil
}

type stubAbsences struct {
	absences []domain.Absence
}

func (s *stubAbsences) Create(ctx context.Context, ab domain.Absence) (domain.Absence, error) {
	panic("not used")
}

func (s *stubAbsences) Update(ctx context.Context, ab domain.Absence) (domain.Absence, error) {
	panic("not used")
}

func (s *stubAbsences) Get(ctx context.Context, id uuid.UUID) (domain.Absence, error) {
	panic("not used")
}

func (s *stubAbsences) ListActiveForPeriod(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Absence, error) {
	return s.absences, nil
}

type stubBookings struct {
	bookings []domain.Booking
}

func (s *stubBookings) ListForPeriod(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range s.bookings {
		if domain.IntervalsOverlap(b.ScheduledStart, b.End(), periodStart, periodEnd) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBookings) CountReplacements(ctx context.Context, absenceID uuid.UUID) (int, error) {
	return 0, nil
}

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newTestOptimizer(windows []domain.Availability, bookings []domain.Booking) *Optimizer {
	return NewOptimizer(gridEstimator(), &stubWindows{windows: windows}, &stubAbsences{}, &stubBookings{bookings: bookings}, DefaultConfig())
}

func flexBooking(start time.Time, minutes int, addr string) domain.Booking {
	return domain.Booking{
		ID:              uuid.New(),
		ProviderID:      "p1",
		ScheduledStart:  start,
		DurationMinutes: minutes,
		Address:         addr,
		Status:          "confirmed",
	}
}

func workWindow(weekday time.Weekday, startMin, endMin int) domain.Availability {
	return domain.Availability{
		ID:          uuid.New(),
		ProviderID:  "p1",
		Weekday:     int16(weekday),
		StartMinute: startMin,
		EndMinute:   endMin,
		Recurring:   true,
		Active:      true,
	}
}

func TestAnalyze(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	b1 := flexBooking(monday.Add(9*time.Hour), 60, "0,0")
	b2 := flexBooking(monday.Add(10*time.Hour+30*time.Minute), 60, "0,10")

	m, err := o.Analyze(context.Background(), []domain.Booking{b2, b1})
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, m.WorkTime)
	assert.Equal(t, 10*time.Minute, m.TravelTime)
	assert.InDelta(t, 10, m.TravelKm, 1e-9)
	assert.Equal(t, 20*time.Minute, m.IdleTime)
	assert.InDelta(t, 0.8, m.Efficiency, 1e-9)
}

func TestAnalyze_EmptyAndIdempotent(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	empty, err := o.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ScheduleMetrics{}, empty)

	bookings := []domain.Booking{
		flexBooking(monday.Add(9*time.Hour), 45, "0,0"),
		flexBooking(monday.Add(11*time.Hour), 30, "3,4"),
	}
	first, err := o.Analyze(context.Background(), bookings)
	require.NoError(t, err)
	second, err := o.Analyze(context.Background(), bookings)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOrderBookings_NearestNeighbor(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	b1 := flexBooking(monday.Add(9*time.Hour), 60, "0,0")
	b2 := flexBooking(monday.Add(10*time.Hour), 60, "0,30")
	b3 := flexBooking(monday.Add(11*time.Hour), 60, "0,10")

	got, err := o.OrderBookings(context.Background(), []domain.Booking{b1, b2, b3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{b1.ID, b3.ID, b2.ID}, ids(got))
}

func TestOrderBookings_FixedBookingsKeepChronologicalOrder(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	fixed := flexBooking(monday.Add(9*time.Hour), 60, "0,0")
	fixed.Pinned = true
	a := flexBooking(monday.Add(10*time.Hour), 60, "0,50")
	b := flexBooking(monday.Add(11*time.Hour), 60, "0,20")

	got, err := o.OrderBookings(context.Background(), []domain.Booking{a, b, fixed})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{fixed.ID, b.ID, a.ID}, ids(got))
}

func TestOrderBookings_EquidistantTieBreaksOnEarlierStart(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	seed := flexBooking(monday.Add(9*time.Hour), 30, "0,0")
	late := flexBooking(monday.Add(12*time.Hour), 30, "0,5")
	early := flexBooking(monday.Add(10*time.Hour), 30, "5,0")

	got, err := o.OrderBookings(context.Background(), []domain.Booking{seed, late, early})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{seed.ID, early.ID, late.ID}, ids(got))
}

func TestOptimizeDay_EmptyBookings(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	res, err := o.OptimizeDay(context.Background(), "p1", nil, monday)
	require.NoError(t, err)
	assert.True(t, res.Feasible)
	assert.Empty(t, res.Conflicts)
	assert.Zero(t, res.TimeSaved)
}

func TestOptimizeDay_ChainsFromWindowStart(t *testing.T) {
	windows := []domain.Availability{workWindow(time.Monday, 8*60, 14*60)}
	o := newTestOptimizer(windows, nil)

	b1 := flexBooking(monday.Add(9*time.Hour+30*time.Minute), 60, "0,0")
	b2 := flexBooking(monday.Add(12*time.Hour), 60, "0,20")

	res, err := o.OptimizeDay(context.Background(), "p1", []domain.Booking{b1, b2}, monday)
	require.NoError(t, err)

	require.Len(t, res.Optimized.Bookings, 2)
	assert.Equal(t, monday.Add(8*time.Hour), res.Optimized.Bookings[0].ScheduledStart)
	// previous end 09:00 + 20 min travel + 15 min ideal gap
	assert.Equal(t, monday.Add(9*time.Hour+35*time.Minute), res.Optimized.Bookings[1].ScheduledStart)

	// current: 20 min travel + 70 min idle; optimized: 20 min travel + the
	// 15 min ideal gap.
	assert.Equal(t, 55*time.Minute, res.TimeSaved)
	assert.InDelta(t, 0, res.DistanceSavedKm, 1e-9)
	assert.Greater(t, res.EfficiencyGain, 0.0)
	assert.True(t, res.Feasible)
	assert.Empty(t, res.Conflicts)
}

func TestOptimizeDay_InfeasibleProposalIsFlaggedNotHidden(t *testing.T) {
	// Window too small for the chained schedule.
	windows := []domain.Availability{workWindow(time.Monday, 9*60, 10*60)}
	o := newTestOptimizer(windows, nil)

	b1 := flexBooking(monday.Add(9*time.Hour), 45, "0,0")
	b2 := flexBooking(monday.Add(11*time.Hour), 45, "0,10")

	res, err := o.OptimizeDay(context.Background(), "p1", []domain.Booking{b1, b2}, monday)
	require.NoError(t, err)
	assert.False(t, res.Feasible)
	assert.NotEmpty(t, res.Conflicts)
}

func TestOptimizeDay_SavingsMayBeNegative(t *testing.T) {
	windows := []domain.Availability{workWindow(time.Monday, 8*60, 18*60)}
	o := newTestOptimizer(windows, nil)

	// Already perfectly packed back-to-back; re-timing inserts ideal gaps,
	// so the proposal is no better and the gain must say so.
	b1 := flexBooking(monday.Add(8*time.Hour), 60, "0,0")
	b2 := flexBooking(monday.Add(9*time.Hour), 60, "0,0")

	res, err := o.OptimizeDay(context.Background(), "p1", []domain.Booking{b1, b2}, monday)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.EfficiencyGain, 0.0)
	assert.LessOrEqual(t, res.TimeSaved, time.Duration(0))
}

func TestSuggestSlots_RanksAndLimits(t *testing.T) {
	windows := []domain.Availability{workWindow(time.Monday, 9*60, 12*60)}
	booked := flexBooking(monday.Add(10*time.Hour), 60, "0,0")
	o := newTestOptimizer(windows, []domain.Booking{booked})

	got, err := o.SuggestSlots(context.Background(), "p1", monday, 60, "0,5", Preferences{})
	require.NoError(t, err)

	require.Len(t, got, 2)
	for _, s := range got {
		assert.False(t, s.Slot.Interval().Overlaps(booked.Interval()), "suggested slot overlaps a booking")
	}
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
}

func TestSuggestSlots_NoWindows(t *testing.T) {
	o := newTestOptimizer(nil, nil)
	got, err := o.SuggestSlots(context.Background(), "p1", monday, 60, "0,0", Preferences{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestSlots_PreferenceMovesScore(t *testing.T) {
	windows := []domain.Availability{workWindow(time.Monday, 9*60, 12*60)}
	o := newTestOptimizer(windows, nil)

	preferred := monday.Add(11 * time.Hour)
	got, err := o.SuggestSlots(context.Background(), "p1", monday, 60, "0,0", Preferences{PreferredStart: &preferred})
	require.NoError(t, err)
	require.Len(t, got, 3)

	var eleven, nine Suggestion
	for _, s := range got {
		switch s.Slot.Start.Hour() {
		case 11:
			eleven = s
		case 9:
			nine = s
		}
	}
	assert.Greater(t, eleven.Factors.Preference, nine.Factors.Preference)
}

func TestNewOptimizer_ZeroWeightsAreKept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TravelWeight = 0
	cfg.EfficiencyWeight = 0
	cfg.PreferenceWeight = 0
	cfg.GapWeight = 0

	windows := []domain.Availability{workWindow(time.Monday, 9*60, 12*60)}
	o := NewOptimizer(gridEstimator(), &stubWindows{windows: windows}, &stubAbsences{}, &stubBookings{}, cfg)

	got, err := o.SuggestSlots(context.Background(), "p1", monday, 60, "0,0", Preferences{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, s := range got {
		assert.Zero(t, s.Score, "all-zero weights must not be replaced with defaults")
	}
}

func TestBalanceWeek(t *testing.T) {
	bookings := []domain.Booking{
		flexBooking(monday.Add(9*time.Hour), 360, "0,0"),                  // Monday 6h
		flexBooking(monday.AddDate(0, 0, 1).Add(9*time.Hour), 360, "0,0"), // Tuesday 6h
	}
	o := newTestOptimizer(nil, bookings)

	report, err := o.BalanceWeek(context.Background(), "p1", monday)
	require.NoError(t, err)

	require.Len(t, report.Days, 7)
	assert.Equal(t, 6*time.Hour, report.Days[0].Booked)
	assert.Equal(t, 6*time.Hour, report.Days[1].Booked)
	assert.Equal(t, time.Duration(0), report.Days[2].Booked)

	assert.InDelta(t, 2.7105, report.StdDevHours, 1e-3)
	assert.InDelta(t, 72.894, report.BalanceScore, 1e-2)

	require.Len(t, report.Rebalance, 2)
	assert.Equal(t, BalanceReduce, report.Rebalance[0].Action)
	assert.Equal(t, BalanceReduce, report.Rebalance[1].Action)
}

func TestBalanceWeek_EmptyWeek(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	report, err := o.BalanceWeek(context.Background(), "p1", monday)
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.BalanceScore)
	assert.Empty(t, report.Rebalance)
}

func TestOptimizeRoute(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	b1 := flexBooking(monday.Add(10*time.Hour), 60, "0,0")
	b2 := flexBooking(monday.Add(11*time.Hour), 60, "0,20")
	b3 := flexBooking(monday.Add(12*time.Hour), 60, "0,10")

	res, err := o.OptimizeRoute(context.Background(), []domain.Booking{b1, b2, b3}, "", "")
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{b1.ID, b3.ID, b2.ID}, ids(res.Order))
	assert.InDelta(t, 30, res.CurrentKm, 1e-9)
	assert.InDelta(t, 20, res.OptimizedKm, 1e-9)
	assert.InDelta(t, 10, res.KmSaved, 1e-9)
	assert.Equal(t, 10*time.Minute, res.TimeSaved)
}

func TestOptimizeRoute_WithStartAnchor(t *testing.T) {
	o := newTestOptimizer(nil, nil)

	b1 := flexBooking(monday.Add(10*time.Hour), 60, "0,0")
	b2 := flexBooking(monday.Add(11*time.Hour), 60, "0,20")
	b3 := flexBooking(monday.Add(12*time.Hour), 60, "0,10")

	res, err := o.OptimizeRoute(context.Background(), []domain.Booking{b1, b2, b3}, "0,25", "")
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{b2.ID, b3.ID, b1.ID}, ids(res.Order))
	assert.InDelta(t, 55, res.CurrentKm, 1e-9)
	assert.InDelta(t, 25, res.OptimizedKm, 1e-9)
}

func TestOptimizeRoute_Empty(t *testing.T) {
	o := newTestOptimizer(nil, nil)
	res, err := o.OptimizeRoute(context.Background(), nil, "0,0", "")
	require.NoError(t, err)
	assert.Empty(t, res.Order)
	assert.Zero(t, res.KmSaved)
}

func ids(bookings []domain.Booking) []uuid.UUID {
	out := make([]uuid.UUID, len(bookings))
	for i, b := range bookings {
		out[i] = b.ID
	}
	return out
}
