package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/ailimit/internal/appconfig"
	"pkt.systems/ailimit/schema"
	"pkt.systems/pslog"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Report which provider collaborators are available, without running checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor start", "config", configPath)

			svc, err := newService(cfg, nil, logger)
			if err != nil {
				return err
			}
			probe := svc.Probe(cmd.Context())
			available := 0
			out := cmd.OutOrStdout()
			for _, id := range svc.Providers() {
				if err := probe[id]; err != nil {
					reason := strings.TrimPrefix(err.Error(), schema.ErrProviderUnavailable.Error()+": ")
					_, _ = fmt.Fprintf(out, "%-8s unavailable: %s\n", id, reason)
					continue
				}
				available++
				_, _ = fmt.Fprintf(out, "%-8s ok\n", id)
			}
			if available == 0 {
				return errors.New("no provider is available")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path (default ~/.ailimit/config.yaml)")
	return cmd
}
