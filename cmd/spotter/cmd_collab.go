package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fleetspotter/internal/collab"
	"fleetspotter/internal/logging"
	"fleetspotter/internal/store"
)

// =============================================================================
// COLLABORATION COMMANDS
// =============================================================================

// collabCmd groups room commands
var collabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Share solves with other players through a room",
	Long: `Collaboration rooms hold one spotter state per chain. Every player
pulls the room state, merges it with their own and posts the result back.

Subcommands:
  serve  - Host rooms over HTTP
  room   - Create a new room on the server
  sync   - Merge the chain's state with the room and push it back`,
}

var collabServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host collaboration rooms",
	Args:  cobra.NoArgs,
	RunE:  runCollabServe,
}

var collabRoomCmd = &cobra.Command{
	Use:   "room",
	Short: "Create a new room and print its id",
	Args:  cobra.NoArgs,
	RunE:  runCollabRoom,
}

var collabSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the chain with the room",
	Args:  cobra.NoArgs,
	RunE:  runCollabSync,
}

var (
	serveAddr string
	collabURL string
	roomID    string
)

func init() {
	collabServeCmd.Flags().StringVar(&serveAddr, "addr", ":8090", "Listen address")
	collabCmd.PersistentFlags().StringVar(&collabURL, "url", "", "Room server URL (overrides config)")
	collabCmd.PersistentFlags().StringVar(&roomID, "room", "", "Room id (overrides config)")

	collabCmd.AddCommand(collabServeCmd)
	collabCmd.AddCommand(collabRoomCmd)
	collabCmd.AddCommand(collabSyncCmd)
}

// applyCollabFlags folds --url and --room into the loaded config.
func applyCollabFlags() {
	if collabURL != "" {
		cfg.Collaboration.BaseURL = collabURL
		cfg.Collaboration.Enabled = true
	}
	if roomID != "" {
		cfg.Collaboration.Room = roomID
		cfg.Collaboration.Enabled = true
	}
}

func runCollabServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(resolvePath(cfg.Memory.DatabasePath))
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           collab.NewServer(st).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Collab("serving rooms on %s", serveAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logging.Collab("room server stopped")
	return nil
}

func runCollabRoom(cmd *cobra.Command, args []string) error {
	applyCollabFlags()
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client := collab.NewClient(cfg.Collaboration.BaseURL, cfg.GetCollabTimeout())
	room, err := client.NewRoom(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), room)
	return nil
}

func runCollabSync(cmd *cobra.Command, args []string) error {
	applyCollabFlags()
	if !cfg.IsCollaborationEnabled() {
		return errors.New("collaboration needs a room: set collaboration.room or pass --room")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.sync(ctx); err != nil {
		return err
	}

	state := e.sess.State()
	fmt.Fprintf(cmd.OutOrStdout(), "Synced %s with room %s: %d solves, %d confirmed\n\n",
		state.ChainID, e.syncer.Room(), state.ResolvedCount(), state.ConfirmedCount())
	render(cmd, e.sess.Snapshot())
	return nil
}
