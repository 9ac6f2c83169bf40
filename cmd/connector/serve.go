package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	connector "github.com/example/platform-connector-go"
	"github.com/example/platform-connector-go/connectorfx"
	"github.com/example/platform-connector-go/demo"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo connector",
		Long: `Serve loads <id>.properties from the config directory, initializes the
demo connector and serves it until interrupted. On shutdown the connector
pushes a FAILED health result to the host before tearing down.

Example:
  connector serve --id demo --host-url http://localhost:9090
  CONNECTOR_ID=demo CONNECTOR_ADDR=:8081 connector serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(v.GetString("log-level"))
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app := fx.New(
				fx.Supply(logger),
				connectorfx.WithZapLogger(),
				fx.Provide(func() connector.Worker { return demo.New() }),
				connectorfx.Module(connectorfx.Config{
					PluginID:    v.GetString("id"),
					Description: v.GetString("description"),
					ConfigDir:   v.GetString("config-dir"),
					SourceDir:   v.GetString("source-dir"),
					UsesAGPL:    v.GetBool("agpl"),
					HostURL:     v.GetString("host-url"),
				}),
				connectorfx.ServerModule(connectorfx.ServerConfig{
					Addr: v.GetString("addr"),
				}),
			)
			if err := app.Err(); err != nil {
				logger.Error("Connector wiring failed", zap.Error(err))
				return err
			}
			app.Run()
			return nil
		},
	}

	f := cmd.Flags()
	f.String("id", "demo", "host-assigned plugin id")
	f.String("description", "Demo connector", "human-readable description")
	f.String("config-dir", "", "directory holding <id>.properties (default: executable directory)")
	f.String("addr", ":8080", "listen address")
	f.String("host-url", "", "host URL that receives pushed health")
	f.String("source-dir", "", "directory holding the source archive")
	f.Bool("agpl", false, "mark the source archive as AGPL licensed")
	return cmd
}
