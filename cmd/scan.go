package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cn-vhql/AS-SKILLS/internal/registry"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the skills directory and report changes",
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := registry.New(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	report, err := reg.Discover(cmd.Context())
	if err != nil {
		return err
	}

	printSection("Scan " + cfg.SkillsDir)
	for _, id := range report.Added {
		printOK(id, "added")
	}
	for _, id := range report.Updated {
		printInfo(id, "updated")
	}
	for _, id := range report.Removed {
		printMiss(id, "removed")
	}
	for _, be := range report.Errors {
		printErr(filepath.Base(be.Path), strings.TrimSpace(be.Err.Error()))
	}

	stats, err := reg.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("\n%d skill(s) indexed, %d change(s), %d error(s)\n",
		stats.Skills, report.Total(), len(report.Errors))
	return nil
}
