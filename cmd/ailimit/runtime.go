package main

import (
	"pkt.systems/ailimit/core"
	"pkt.systems/ailimit/internal/appconfig"
	"pkt.systems/ailimit/internal/browser"
	"pkt.systems/pslog"
)

// newService wires every provider client from cfg. A nil launcher drives
// Chrome for z.ai.
func newService(cfg appconfig.Config, launcher browser.Launcher, logger pslog.Logger) (core.Service, error) {
	svcCfg, err := cfg.ServiceConfig()
	if err != nil {
		return nil, err
	}
	claudeClient, geminiClient, zaiClient := cfg.ProviderClients(launcher)
	return core.NewService(svcCfg, core.ServiceDeps{
		Providers: []core.Provider{claudeClient, geminiClient, zaiClient},
		Logger:    logger,
	})
}
