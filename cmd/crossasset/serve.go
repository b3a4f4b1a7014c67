package main

import (
	"github.com/spf13/cobra"

	"github.com/seenimoa/crossasset/api"
	"github.com/seenimoa/crossasset/internal/logging"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		hub := api.NewWSHub()
		a, err := newApp(cmd.Context(), hub.Observe)
		if err != nil {
			return err
		}
		defer a.Close()
		defer hub.Close()

		srv := api.NewServer(cfg, a.runner,
			api.WithHub(hub),
			api.WithGatherer(a.registry),
			api.WithLogger(logging.Component(a.log, "api")),
		)
		return srv.ListenAndServe(cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
}
