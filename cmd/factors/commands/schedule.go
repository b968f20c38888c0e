package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/scheduler"
	"github.com/quantfoundry/factors/internal/scheduler/jobs"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the periodic factor recompute scheduler",
	Long: `Starts the scheduler that recomputes every registered factor
on the configured cron schedule (RECOMPUTE_SCHEDULE, default Mondays
06:00) and appends results to the run log.

Example:
  go run ./cmd/factors schedule
  go run ./cmd/factors schedule --now`,
	RunE: runSchedule,
}

var scheduleRunNow bool

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "now", false, "trigger one recompute immediately on startup")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	if d.repo != nil {
		if err := d.repo.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	defaults := contracts.RunConfig{
		Breakpoint: 0.2,
		MinAssets:  5,
		Weighting:  contracts.WeightEqual,
	}

	job := jobs.NewRecomputeJob(d.loader, d.runner, d.runLog, d.repo, d.cfg.RecomputeSchedule, defaults, d.log)

	sched := scheduler.New(d.log)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	if scheduleRunNow {
		if err := sched.RunJob(job.Name()); err != nil {
			return err
		}
	}

	fmt.Printf("Scheduler running, recompute schedule: %s\n", d.cfg.RecomputeSchedule)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
