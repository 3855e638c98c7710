package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <skill-id>",
	Short: "Show everything known about one skill",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	reg, _, err := openRegistry(cmd.Context())
	if err != nil {
		return err
	}
	defer reg.Close()

	d, err := reg.Describe(args[0])
	if err != nil {
		return err
	}
	m := d.Manifest

	printSection(m.ID)
	fmt.Printf("Name:        %s\n", m.DisplayName)
	fmt.Printf("Kind:        %s\n", m.Kind)
	fmt.Printf("State:       %s\n", d.State)
	fmt.Printf("Description: %s\n", m.Description)
	fmt.Printf("Keywords:    %s\n", strings.Join(m.Keywords, ", "))
	if len(m.TriggerExamples) > 0 {
		fmt.Println("Triggers:")
		for _, tr := range m.TriggerExamples {
			fmt.Printf("  - %s\n", tr)
		}
	}
	if len(m.ResourcePaths) > 0 {
		fmt.Println("Resources:")
		for _, rp := range m.ResourcePaths {
			fmt.Printf("  - %s\n", rp)
		}
	}
	fmt.Printf("Source:      %s\n", m.SourcePath)
	fmt.Printf("Hash:        %s\n", m.ContentHash[:12])

	if d.Record != nil {
		printSection("Activation")
		fmt.Printf("ID:        %s\n", d.Record.ActivationID)
		fmt.Printf("Activated: %s\n", d.Record.ActivatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Last used: %s\n", d.Record.LastUsedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Hits:      %d\n", d.Record.HitCount)
	}
	return nil
}
