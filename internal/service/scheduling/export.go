package scheduling

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// ExportScheduleCSV writes the assembled schedule for the period as CSV, one
// row per availability window, booking, absence, and conflict.
func (s *Service) ExportScheduleCSV(ctx context.Context, w io.Writer, providerID string, periodStart, periodEnd time.Time) error {
	schedule, err := s.GetCompleteSchedule(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"record_type", "id", "start", "end", "detail", "status"}); err != nil {
		return err
	}

	for _, av := range schedule.Availabilities {
		detail := "recurring " + time.Weekday(av.Weekday).String()
		if !av.Recurring && av.SpecificDate != nil {
			detail = "one-off " + av.SpecificDate.Format("2006-01-02")
		}
		status := "active"
		if !av.Active {
			status = "inactive"
		}
		if err := cw.Write([]string{"availability", av.ID.String(), minuteClock(av.StartMinute), minuteClock(av.EndMinute), detail, status}); err != nil {
			return err
		}
	}
	for _, b := range schedule.Bookings {
		if err := cw.Write([]string{"booking", b.ID.String(), b.ScheduledStart.UTC().Format(time.RFC3339), b.End().UTC().Format(time.RFC3339), b.Address, b.Status}); err != nil {
			return err
		}
	}
	for _, ab := range schedule.Absences {
		if err := cw.Write([]string{"absence", ab.ID.String(), ab.StartDate.UTC().Format(time.RFC3339), ab.EndDate.UTC().Format(time.RFC3339), ab.Reason, string(ab.Status)}); err != nil {
			return err
		}
	}
	for _, c := range schedule.Conflicts {
		if err := cw.Write([]string{"conflict", c.BookingID.String(), c.Start.UTC().Format(time.RFC3339), c.End.UTC().Format(time.RFC3339), string(c.Kind), ""}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func minuteClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
