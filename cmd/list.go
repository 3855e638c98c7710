package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var flagListSummary bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all indexed skills",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&flagListSummary, "summary", false, "Print the compact prompt-injection listing")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	reg, _, err := openRegistry(cmd.Context())
	if err != nil {
		return err
	}
	defer reg.Close()

	if flagListSummary {
		s, err := reg.Summary()
		if err != nil {
			return err
		}
		fmt.Print(s)
		return nil
	}

	manifests, err := reg.ListAll()
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		fmt.Println("No skills indexed.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tKEYWORDS\tDESCRIPTION")
	for _, m := range manifests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			m.ID, m.Kind, strings.Join(m.Keywords, ","), m.Description)
	}
	return w.Flush()
}
