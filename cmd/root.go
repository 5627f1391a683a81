package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/provider-scheduler/internal/config"
	"github.com/example/provider-scheduler/internal/distance"
	"github.com/example/provider-scheduler/internal/service/optimizer"
	"github.com/example/provider-scheduler/internal/service/scheduling"
	"github.com/example/provider-scheduler/internal/store/postgres"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "schedulerctl",
		Short: "Inspect and export provider schedules",
	}

	root.AddCommand(newExportCmd())
	root.AddCommand(newConflictsCmd())
	root.AddCommand(newOccupancyCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newService opens the store from the environment and assembles the service
// graph the way the server does. The returned func closes the connection.
func newService() (*scheduling.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, err
	}

	windows := postgres.NewAvailabilityRepo(db)
	absences := postgres.NewAbsenceRepo(db)
	bookings := postgres.NewBookingRepo(db)

	opt := optimizer.NewOptimizer(distance.NewHaversineEstimator(cfg.AvgSpeedKmH), windows, absences, bookings, optimizer.Config{
		TravelWeight:       cfg.Optimizer.TravelWeight,
		EfficiencyWeight:   cfg.Optimizer.EfficiencyWeight,
		PreferenceWeight:   cfg.Optimizer.PreferenceWeight,
		GapWeight:          cfg.Optimizer.GapWeight,
		IdealGap:           cfg.Optimizer.IdealGap,
		SuggestionLimit:    cfg.Optimizer.SuggestionLimit,
		RebalanceThreshold: cfg.Optimizer.RebalanceThreshold,
	})
	svc := scheduling.NewService(windows, absences, bookings, opt, cfg.Optimizer.NextSlotHorizon)

	closeFn := func() { _ = postgres.Close(db) }
	return svc, closeFn, nil
}

func parsePeriod(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from (want YYYY-MM-DD)")
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to (want YYYY-MM-DD)")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
	}
	return start, end, nil
}
