package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cn-vhql/AS-SKILLS/internal/watcher"
)

var flagWatchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the skills directory and rescan on changes",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagWatchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a rescan")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, cfg, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()

	w, err := watcher.New(cfg.SkillsDir, flagWatchDebounce, func(ctx context.Context) {
		report, err := reg.Discover(ctx)
		if err != nil {
			printErr("", err.Error())
			return
		}
		if report.Total() > 0 || len(report.Errors) > 0 {
			printInfo("", fmt.Sprintf("rescan: %d added, %d updated, %d removed, %d error(s)",
				len(report.Added), len(report.Updated), len(report.Removed), len(report.Errors)))
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	printInfo("", fmt.Sprintf("watching %s (Ctrl-C to stop)", cfg.SkillsDir))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
