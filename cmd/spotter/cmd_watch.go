package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fleetspotter/internal/logging"
	"fleetspotter/internal/spotter"
	"fleetspotter/internal/watch"
)

// watchCmd re-renders whenever the chain or roster file changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompute whenever the chain or roster file changes",
	Long: `Renders the chain, then watches the chain and roster files and
re-renders after every settled change. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before reloading")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	_ = e.sync(ctx)

	render(cmd, e.sess.Snapshot())

	chainPath, rosterPath := resolvePath(chainFile), resolvePath(rosterFile)
	handler, err := watch.SessionHandler(e.sess, chainPath, rosterPath, func(s *spotter.Session) {
		fmt.Fprintln(cmd.OutOrStdout())
		render(cmd, s.Snapshot())
	})
	if err != nil {
		return err
	}

	w, err := watch.New([]string{chainPath, rosterPath}, watchDebounce, handler)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logging.Watch("watching %s and %s", chainPath, rosterPath)
	<-ctx.Done()

	stats := w.Stats()
	logging.Watch("watch ended: %d reloads, %d errors", stats.Reloads, stats.Errors)
	if ctx.Err() == context.Canceled {
		return nil
	}
	return ctx.Err()
}
