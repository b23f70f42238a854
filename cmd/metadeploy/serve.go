package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrhapile/metadeploy/internal/assistant"
	"github.com/mrhapile/metadeploy/internal/pipeline"
	"github.com/mrhapile/metadeploy/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the /deploy endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		addr := settings.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.New(p, logger).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

// newPipeline wires the assistant and publisher selected by the settings.
func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	client := httpClient()
	a, err := assistant.New(cmd.Context(), settings.Assistant, assistant.Options{HTTPClient: client, Logger: logger})
	if err != nil {
		return nil, err
	}
	pub, err := pipeline.NewPublisher(settings, client, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.New(settings, a, pub, logger), nil
}
