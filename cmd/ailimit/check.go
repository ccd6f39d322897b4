package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/ailimit/internal/appconfig"
	"pkt.systems/ailimit/internal/format"
	"pkt.systems/ailimit/schema"
	"pkt.systems/pslog"
)

type checkOptions struct {
	cfgPath string
	format  string
}

func addCheckFlags(cmd *cobra.Command, opts *checkOptions) {
	cmd.Flags().StringVarP(&opts.cfgPath, "config", "c", "", "config file path (default ~/.ailimit/config.yaml)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", format.Auto, "output format: auto|json|jsonl|table|plain")
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check [provider...]",
		Short: "Check the rate-limit status of providers (all configured when none given)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}
	addCheckFlags(cmd, &opts)
	return cmd
}

// runCheck prints one status per provider. Degraded providers only add a
// warning on stderr; configuration and usage errors fail the command.
func runCheck(cmd *cobra.Command, args []string, opts checkOptions) error {
	logger := pslog.Ctx(cmd.Context())
	out := cmd.OutOrStdout()
	switch format.Resolve(opts.format, out) {
	case format.Table, format.Plain, format.JSON, format.JSONL:
	default:
		return fmt.Errorf("unsupported format: %s", opts.format)
	}

	var ids []schema.ProviderID
	if len(args) > 0 {
		normalized, err := schema.NormalizeProviders(args)
		if err != nil {
			return err
		}
		ids = normalized
	}

	cfg, err := appconfig.Load(opts.cfgPath)
	if err != nil {
		return err
	}
	svc, err := newService(cfg, nil, logger)
	if err != nil {
		return err
	}
	resp, err := svc.Check(cmd.Context(), schema.CheckRequest{Providers: ids})
	if err != nil {
		return err
	}
	for _, w := range resp.Warnings {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}
	return format.WriteStatuses(out, resp.Statuses, opts.format)
}
