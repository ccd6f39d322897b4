package main

import (
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/ailimit/httpapi"
	"pkt.systems/ailimit/internal/appconfig"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rate-limit checks over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			svc, err := newService(cfg, nil, logger)
			if err != nil {
				return err
			}
			logger.Info("serve providers", "providers", svc.Providers())
			server := httpapi.NewServer(httpapi.Config{
				Addr:         cfg.HTTP.Addr,
				CheckTimeout: time.Duration(cfg.HTTP.CheckTimeoutSeconds) * time.Second,
			}, svc)
			return httpapi.ListenAndServe(cmd.Context(), cfg.HTTP.Addr, server.Handler())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path (default ~/.ailimit/config.yaml)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
