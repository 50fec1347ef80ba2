package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"accelrt/internal/plugin/locate"
)

func buildPluginsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Find and load compiler plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("plugins requires a subcommand: find|load")
		},
	}

	var (
		roots    []string
		prefix   string
		maxDepth int
	)
	find := &cobra.Command{
		Use:     "find",
		Short:   "Print every plugin binary under the given roots",
		Example: "  accelrt plugins find --root /opt/accel/plugins --prefix 'libLiteRt'",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(roots) == 0 {
				roots = a.cfg.PluginRoots
			}
			if len(roots) == 0 {
				return errors.New("no plugin roots: pass --root or set plugin_roots")
			}
			l := a.locator()
			if cmd.Flags().Changed("prefix") {
				l.Prefix = prefix
			}
			if cmd.Flags().Changed("max-depth") {
				l.MaxDepth = maxDepth
			}
			for _, root := range roots {
				paths, err := l.Find(root)
				if err != nil {
					return err
				}
				sort.Strings(paths)
				for _, p := range paths {
					fmt.Fprintln(a.out, p)
				}
			}
			return nil
		},
	}
	find.Flags().StringSliceVar(&roots, "root", nil, "Directory to search (repeatable; defaults to plugin_roots)")
	find.Flags().StringVar(&prefix, "prefix", locate.DefaultPrefix, "Glob fragment before CompilerPlugin in file names")
	find.Flags().IntVar(&maxDepth, "max-depth", locate.DefaultMaxDepth, "Maximum directory depth below each root")

	load := &cobra.Command{
		Use:     "load PATH...",
		Short:   "Load the first loadable library among PATHs, then close it",
		Example: "  accelrt plugins load ./libLiteRtCompilerPlugin_A.so ./libLiteRtCompilerPlugin_B.so",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := a.library()
			h, err := lib.OpenAny(args, a.cfg.ShouldLogLoadFailures())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, h.Path())
			return lib.Close(h)
		},
	}

	cmd.AddCommand(find, load)
	return cmd
}

func (a *app) locator() *locate.Locator {
	return &locate.Locator{
		Prefix:   a.cfg.PluginPrefix,
		MaxDepth: a.cfg.MaxSearchDepth,
		Logger:   a.log,
		Metrics:  a.plugins,
	}
}
