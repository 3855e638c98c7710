package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cn-vhql/AS-SKILLS/internal/match"
	"github.com/cn-vhql/AS-SKILLS/internal/registry"
)

var (
	flagMatchK        int
	flagMatchMinScore float64
	flagMatchActivate bool
)

var matchCmd = &cobra.Command{
	Use:   "match <query>",
	Short: "Rank skills against a free-text query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().IntVar(&flagMatchK, "k", 0, "Number of results to show (default from config)")
	matchCmd.Flags().Float64Var(&flagMatchMinScore, "min-score", -1, "Minimum score to include (default from config)")
	matchCmd.Flags().BoolVar(&flagMatchActivate, "activate", false, "Activate every skill that clears the threshold")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagMatchK > 0 {
		cfg.TopK = flagMatchK
	}
	if flagMatchMinScore >= 0 {
		cfg.MatchThreshold = flagMatchMinScore
	}

	reg, err := registry.New(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()
	if _, err := reg.Discover(ctx); err != nil {
		return err
	}

	if flagMatchActivate {
		results, outcomes, err := reg.MatchAndActivate(ctx, query)
		if err != nil {
			return err
		}
		printMatchTable(query, results)
		printSection("Activation")
		for _, out := range outcomes {
			if out.Err != nil {
				printErr(out.SkillID, out.Err.Error())
				continue
			}
			printOK(out.SkillID, fmt.Sprintf("%s, %d bytes", out.Record.State, len(out.Record.Payload)))
		}
		return nil
	}

	results, err := reg.Match(ctx, query)
	if err != nil {
		return err
	}
	printMatchTable(query, results)
	return nil
}

func printMatchTable(query string, results []match.Result) {
	if len(results) == 0 {
		fmt.Printf("No skills matched %q.\n", query)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tSKILL\tMATCHED TERMS")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\n", r.Score, r.SkillID, strings.Join(r.MatchedTerms, ", "))
	}
	_ = w.Flush()
}
