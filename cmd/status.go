package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry health and usage statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	reg, cfg, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()

	stats, err := reg.Stats()
	if err != nil {
		return err
	}

	printSection("Registry")
	printOK("", fmt.Sprintf("%d skill(s) indexed from %s", stats.Skills, cfg.SkillsDir))
	printInfo("", fmt.Sprintf("threshold %.2f, top-k %d, cache TTL %s",
		cfg.MatchThreshold, cfg.TopK, cfg.CacheTTL))
	if cfg.SemanticEnabled {
		if stats.SemanticReady {
			printOK("", "semantic index ready")
		} else {
			printWarn("", "semantic matching enabled but index unavailable")
		}
	} else {
		printMiss("", "semantic matching disabled")
	}

	act := stats.Activation
	if act.Active > 0 || act.Cached > 0 || act.Expired > 0 || act.Matched > 0 {
		printInfo("", fmt.Sprintf("%d active, %d cached (%d bytes live), %d expired, %d matched, %d cache hit(s)",
			act.Active, act.Cached, act.PayloadBytes, act.Expired, act.Matched, act.TotalHits))
	}

	printSection("Usage")
	sums, err := reg.UsageSummaries(ctx)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		printMiss("", "no usage recorded yet")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKILL\tMATCHES\tACTIVATIONS\tCACHE HITS\tLAST USED")
	for _, s := range sums {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
			s.SkillID, s.Matches, s.Activations, s.CacheHits,
			s.LastUsed.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
