package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fleetspotter/cmd/spotter/ui"
	"fleetspotter/internal/store"
)

// =============================================================================
// READ COMMANDS
// =============================================================================

// solveCmd recomputes the chain and renders it
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Show candidates and trait combos for every open node",
	Long: `Decodes the chain against the stored spotter state and the roster,
then lists, per open node, the hidden-trait combos still possible and the
crew that produce them.

Example:
  spotter solve --chain boss.json --roster crew.yaml`,
	Args: cobra.NoArgs,
	RunE: runSolve,
}

// stateCmd prints the stored state
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the spotter state of the chain as JSON",
	Args:  cobra.NoArgs,
	RunE:  runState,
}

// chainsCmd lists stored chains
var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List chains with stored spotter state",
	Args:  cobra.NoArgs,
	RunE:  runChains,
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	_ = e.sync(ctx)

	render(cmd, e.sess.Snapshot())
	return nil
}

func runState(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	data, err := json.MarshalIndent(e.sess.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runChains(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	st, err := store.NewStore(resolvePath(cfg.Memory.DatabasePath))
	if err != nil {
		return err
	}
	defer st.Close()

	chains, err := st.ListChains(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(chains))
	for _, c := range chains {
		rows = append(rows, []string{
			c.ChainID,
			strconv.Itoa(c.Solves),
			strconv.Itoa(c.Confirmed),
			c.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.RenderChains(rows, styles()))
	return nil
}
