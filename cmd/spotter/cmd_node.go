package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fleetspotter/internal/spotter"
)

// =============================================================================
// NODE COMMANDS
// =============================================================================

// nodeCmd groups per-node transitions
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Record solves for a node",
	Long: `Record what you learned about a node.

Subcommands:
  submit   - Set hidden traits (use ? for still unknown slots)
  solver   - Record the crew that solved the node
  confirm  - Confirm an unconfirmed solve
  reset    - Clear a slot or the whole node`,
}

var nodeSubmitCmd = &cobra.Command{
	Use:   "submit <node> <trait>...",
	Short: "Set the hidden traits of a node",
	Long: `Sets the hidden traits of a node, one per slot, in slot order.
Use ? for a slot that is still unknown.

Example:
  spotter node submit 0 BETA ?`,
	Args: cobra.MinimumNArgs(2),
	RunE: runNodeSubmit,
}

var nodeSolverCmd = &cobra.Command{
	Use:   "solver <node> <crew> [trait]...",
	Short: "Record the crew that solved a node",
	Long: `Records the crew that solved a node. When the crew implies more than
one combo, name the hidden traits as well.

Example:
  spotter node solver 1 worf
  spotter node solver 0 data BETA GAMMA`,
	Args: cobra.MinimumNArgs(2),
	RunE: runNodeSolver,
}

var nodeConfirmCmd = &cobra.Command{
	Use:   "confirm <node>",
	Short: "Confirm the solve of a node",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodeConfirm,
}

var nodeResetCmd = &cobra.Command{
	Use:   "reset <node>",
	Short: "Reset a node, or one slot with --slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodeReset,
}

// attemptCmd records crew that failed
var attemptCmd = &cobra.Command{
	Use:   "attempt <crew>...",
	Short: "Record crew that were tried and failed",
	Long: `Marks crew as attempted. Their combos on every open node are treated
as wrong. Use --forget to undo.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAttempt,
}

// ignoreCmd removes traits from the pool
var ignoreCmd = &cobra.Command{
	Use:   "ignore <trait>...",
	Short: "Remove trait instances from the pool",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIgnore,
}

// restoreCmd undoes ignore
var restoreCmd = &cobra.Command{
	Use:   "restore <trait>...",
	Short: "Return ignored trait instances to the pool",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRestore,
}

var (
	resetSlot     int
	forgetAttempt bool
)

func init() {
	nodeResetCmd.Flags().IntVar(&resetSlot, "slot", -1, "Reset only this hidden slot")
	attemptCmd.Flags().BoolVar(&forgetAttempt, "forget", false, "Remove crew from the attempted list")

	nodeCmd.AddCommand(nodeSubmitCmd)
	nodeCmd.AddCommand(nodeSolverCmd)
	nodeCmd.AddCommand(nodeConfirmCmd)
	nodeCmd.AddCommand(nodeResetCmd)
}

func parseNode(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid node index %q", arg)
	}
	return n, nil
}

func runNodeSubmit(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}
	return mutate(cmd, func(ctx context.Context, sess *spotter.Session) error {
		return sess.SubmitTraits(ctx, node, args[1:])
	})
}

func runNodeSolver(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}
	return mutate(cmd, func(ctx context.Context, sess *spotter.Session) error {
		return sess.MarkSolver(ctx, node, args[1], args[2:])
	})
}

func runNodeConfirm(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}
	return mutate(cmd, func(ctx context.Context, sess *spotter.Session) error {
		return sess.Confirm(ctx, node)
	})
}

func runNodeReset(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}
	return mutate(cmd, func(ctx context.Context, sess *spotter.Session) error {
		if resetSlot >= 0 {
			return sess.ResetSlot(ctx, node, resetSlot)
		}
		return sess.Reset(ctx, node)
	})
}

func runAttempt(cmd *cobra.Command, args []string) error {
	return mutate(cmd, func(ctx context.Context, sess *spotter.Session) error {
		for _, crew := range args {
			var err error
			if forgetAttempt {
				err = sess.ForgetAttempt(ctx, crew)
			} else {
				err = sess.AttemptCrew(ctx, crew)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func runIgnore(cmd *cobra.Command, args []string) error {
	return mutate(cmd, func(ctx context.Context, sess *spotter.Session) error {
		for _, trait := range args {
			if err := sess.IgnoreTrait(ctx, trait); err != nil {
				return err
			}
		}
		return nil
	})
}

func runRestore(cmd *cobra.Command, args []string) error {
	return mutate(cmd, func(ctx context.Context, sess *spotter.Session) error {
		for _, trait := range args {
			if err := sess.RestoreTrait(ctx, trait); err != nil {
				return err
			}
		}
		return nil
	})
}
