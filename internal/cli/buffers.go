package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"accelrt/internal/buffer"
)

func buildBuffersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buffers",
		Short: "Exercise tensor buffer negotiation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("buffers requires a subcommand: probe")
		},
	}

	var (
		typeNames []string
		size      uint64
	)
	probe := &cobra.Command{
		Use:     "probe",
		Short:   "Create one buffer from a requirement and report what was allocated",
		Example: "  accelrt buffers probe --type OpenCL --type HostMemory --size 4096",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := buffer.Requirements{BufferSize: size}
			for _, n := range typeNames {
				bt, err := buffer.ParseBufferType(n)
				if err != nil {
					return err
				}
				req.SupportedTypes = append(req.SupportedTypes, bt)
			}
			ctx := buffer.NewContext(
				buffer.WithLogger(a.log),
				buffer.WithMetrics(a.buffers),
				buffer.WithDefaultBufferSize(a.cfg.DefaultBufferSize),
			)
			defer ctx.Close()
			ctx.SetAsyncExecutionMode(a.cfg.AsyncExecution)

			const id buffer.TensorID = 0
			if err := ctx.RegisterBufferRequirement(id, req); err != nil {
				return err
			}
			buf, err := ctx.CreateBufferForTensor(id)
			if err != nil {
				return err
			}
			if err := ctx.RegisterTensorBuffer(id, buf); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "tensor %d: type=%s size=%d async=%t\n", id, buf.Type(), buf.Size(), ctx.IsAsyncExecutionMode())
			return nil
		},
	}
	probe.Flags().StringSliceVar(&typeNames, "type", []string{buffer.BufferTypeHostMemory.String()}, "Supported buffer type in preference order (repeatable)")
	probe.Flags().Uint64Var(&size, "size", 4096, "Buffer size in bytes")

	cmd.AddCommand(probe)
	return cmd
}
