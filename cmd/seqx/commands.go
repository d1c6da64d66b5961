package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"seqx/internal/config"
	"seqx/internal/engine"
	"seqx/internal/logging"
	"seqx/internal/transform"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seqx",
		Short:         "Integer sequence transforms as a library, a CLI and a streaming engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newOpsCmd(), newApplyCmd(), newEngineCmd())
	return root
}

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List catalog operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tINPUT\tOUTPUT")
			for _, op := range transform.Ops() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", op.Name, op.Input, op.Output)
			}
			return tw.Flush()
		},
	}
}

func newApplyCmd() *cobra.Command {
	var (
		remote  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "apply <op> <json>",
		Short: "Apply one operation to a JSON payload",
		Example: `  seqx apply square_all '[1,2,3]'
  seqx apply cartesian_product '[[1,2],[3,4]]'
  seqx apply range_up_to 5 --remote localhost:7070`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cli transform.Client = transform.NewInProcessClient()
			if remote != "" {
				gc, err := transform.NewGRPCClient(remote)
				if err != nil {
					return fmt.Errorf("dial %s: %w", remote, err)
				}
				cli = gc
			}
			defer cli.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			out, err := cli.Apply(ctx, args[0], []byte(strings.TrimSpace(args[1])))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "apply through a seqx engine at host:port instead of in-process")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-call timeout")
	return cmd
}

func newEngineCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Serve the transform catalog over gRPC and run the configured pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadEngineConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Log.Level != "" || cfg.Log.JSON {
				logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
			}

			e, err := engine.Bootstrap(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			return e.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "engine.yml", "engine config file (missing file means defaults + env)")
	return cmd
}
