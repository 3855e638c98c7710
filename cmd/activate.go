package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagActivatePayload bool

var activateCmd = &cobra.Command{
	Use:   "activate <skill-id>...",
	Short: "Resolve and cache the full payload for one or more skills",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runActivate,
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate [skill-id]",
	Short: "Drop cached activations (all of them when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDeactivate,
}

func init() {
	activateCmd.Flags().BoolVar(&flagActivatePayload, "payload", false, "Print the resolved payload instead of a summary")
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(deactivateCmd)
}

func runActivate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, _, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()

	outcomes, err := reg.Activate(ctx, args)
	if err != nil {
		return err
	}

	var failed int
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			printErr(out.SkillID, out.Err.Error())
			continue
		}
		if flagActivatePayload {
			fmt.Println(out.Record.Payload)
			continue
		}
		printOK(out.SkillID, fmt.Sprintf("%s (activation %s, %d bytes)",
			out.Record.State, out.Record.ActivationID, len(out.Record.Payload)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d skill(s) failed to activate", failed, len(outcomes))
	}
	return nil
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, _, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()

	if len(args) == 1 {
		ok, err := reg.Deactivate(ctx, args[0])
		if err != nil {
			return err
		}
		if ok {
			printOK(args[0], "deactivated")
		} else {
			printMiss(args[0], "no live activation")
		}
		return nil
	}

	n, err := reg.DeactivateAll()
	if err != nil {
		return err
	}
	printInfo("", fmt.Sprintf("dropped %d activation(s)", n))
	return nil
}
