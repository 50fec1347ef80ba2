package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "accelrt",
		Short:         "Accelerator plugin discovery, loading and buffer diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error|off (defaults ACCELRT_LOG_LEVEL or info)")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Write logs as JSON lines instead of console text")

	root.AddCommand(
		buildPluginsCmd(a),
		buildServeCmd(a),
		buildBuffersCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of accelrt",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "accelrt version %s\n", Version)
			},
		},
	)
	return root
}
