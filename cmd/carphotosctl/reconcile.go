package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"

	"github.com/carphotos/carphotos/internal/api"
	"github.com/carphotos/carphotos/internal/storage"
)

// newReconcileCmd builds `carphotosctl reconcile <path> --depth <slot|car|region> [--watch]`.
func newReconcileCmd() *cobra.Command {
	var (
		depthFlag string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile <path>",
		Short: "Rebuild derived indexes from the authoritative directory listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())
			path := args[0]

			depth := storage.ReconcileDepth(depthFlag)
			switch depth {
			case storage.DepthSlot, storage.DepthCar, storage.DepthRegion:
			default:
				return fmt.Errorf("--depth must be one of slot, car, region (got %q)", depthFlag)
			}

			var result *storage.ReconcileResult

			var err error

			if watch {
				result, err = reconcileWithWatch(cmd.Context(), app.Boundary, path, depth)
			} else {
				result, err = app.Boundary.Reconcile(cmd.Context(), path, depth)
			}

			if err != nil {
				return fmt.Errorf("reconciling %s at depth %s: %w", path, depth, err)
			}

			for _, e := range result.Errors {
				fmt.Fprintln(os.Stderr, "reconcile error:", e)
			}

			header := []string{"REPAIRED_FILES", "ACTIONS", "ERRORS"}
			row := []string{fmt.Sprintf("%d", result.RepairedFiles), fmt.Sprintf("%d", len(result.ActionsPerformed)), fmt.Sprintf("%d", len(result.Errors))}

			return printRows(header, [][]string{row}, result)
		},
	}

	cmd.Flags().StringVar(&depthFlag, "depth", string(storage.DepthSlot), "slot, car, or region")
	cmd.Flags().BoolVar(&watch, "watch", false, "stream per-action progress over a local websocket as the pass runs")

	return cmd
}

// progressMessage is one line sent down the watch websocket.
type progressMessage struct {
	Action string `json:"action"`
}

// reconcileWithWatch runs Boundary.ReconcileStream while relaying every
// action over a local websocket: a tiny HTTP server accepts one
// connection on 127.0.0.1, and this process itself dials it as the one
// reader, printing each action as it streams in. This gives an operator
// watching a long region reconcile progress output before the call
// returns, per the "pull-based, caller-initiated" progress stream the
// command is built around — the reconcile pass itself never talks
// websocket; only the CLI's own watch plumbing does.
func reconcileWithWatch(ctx context.Context, b *api.Boundary, path string, depth storage.ReconcileDepth) (*storage.ReconcileResult, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("opening watch listener: %w", err)
	}

	defer listener.Close()

	connCh := make(chan *websocket.Conn, 1)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}

			connCh <- conn
		}),
	}

	go func() { _ = server.Serve(listener) }()
	defer server.Close()

	clientConn, _, err := websocket.Dial(ctx, "ws://"+listener.Addr().String()+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("dialing watch socket: %w", err)
	}

	defer clientConn.Close(websocket.StatusNormalClosure, "reconcile done")

	serverConn := <-connCh
	defer serverConn.Close(websocket.StatusNormalClosure, "reconcile done")

	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			_, data, err := clientConn.Read(ctx)
			if err != nil {
				return
			}

			var msg progressMessage
			if json.Unmarshal(data, &msg) == nil {
				fmt.Println("watch:", msg.Action)
			}
		}
	}()

	result, err := b.ReconcileStream(ctx, path, depth, func(action string) {
		payload, merr := json.Marshal(progressMessage{Action: action})
		if merr != nil {
			return
		}

		_ = serverConn.Write(ctx, websocket.MessageText, payload)
	})

	_ = serverConn.Close(websocket.StatusNormalClosure, "reconcile done")
	<-done

	return result, err
}
