package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pkt.systems/ailimit/internal/logx"
	"pkt.systems/ailimit/internal/metrics"
	"pkt.systems/ailimit/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior.
type service struct {
	cfg       schema.ServiceConfig
	providers map[schema.ProviderID]Provider
	order     []schema.ProviderID
	logger    pslog.Logger
	now       func() time.Time
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	registeredDefaults := len(cfg.DefaultProviders) == 0
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	providers := make(map[schema.ProviderID]Provider, len(deps.Providers))
	order := make([]schema.ProviderID, 0, len(deps.Providers))
	for _, p := range deps.Providers {
		if p == nil {
			continue
		}
		id := p.ID()
		if _, dup := providers[id]; dup {
			return nil, fmt.Errorf("provider %q registered twice", id)
		}
		providers[id] = p
		order = append(order, id)
	}
	if registeredDefaults {
		cfg.DefaultProviders = append([]schema.ProviderID(nil), order...)
	}
	for _, id := range cfg.DefaultProviders {
		if _, ok := providers[id]; !ok {
			return nil, fmt.Errorf("%w: default provider %q is not registered", schema.ErrUnknownProvider, id)
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cfg:       cfg,
		providers: providers,
		order:     order,
		logger:    logger,
		now:       now,
	}, nil
}

func (s *service) Providers() []schema.ProviderID {
	return append([]schema.ProviderID(nil), s.order...)
}

func (s *service) Probe(ctx context.Context) map[schema.ProviderID]error {
	out := make(map[schema.ProviderID]error, len(s.order))
	for _, id := range s.order {
		out[id] = s.providers[id].Available(ctx)
	}
	return out
}

func (s *service) Check(ctx context.Context, req schema.CheckRequest) (schema.CheckResponse, error) {
	ids := req.Providers
	if len(ids) == 0 {
		ids = s.cfg.DefaultProviders
	}
	selected := make([]Provider, len(ids))
	for i, id := range ids {
		p, ok := s.providers[id]
		if !ok {
			return schema.CheckResponse{}, fmt.Errorf("%w: %q", schema.ErrUnknownProvider, id)
		}
		selected[i] = p
	}
	if !logx.HasLogger(ctx) {
		ctx = logx.ContextWithLogger(ctx, s.logger)
	}

	now := s.now()
	statuses := make([]schema.Status, len(selected))
	warnings := make([]string, len(selected))
	var wg sync.WaitGroup
	for i, p := range selected {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i], warnings[i] = s.checkOne(ctx, p, now)
		}()
	}
	wg.Wait()

	resp := schema.CheckResponse{Statuses: statuses}
	for _, w := range warnings {
		if w != "" {
			resp.Warnings = append(resp.Warnings, w)
		}
	}
	return resp, nil
}

// checkOne never fails: a skipped, failed or panicking provider degrades to
// an available/Unknown record plus a warning.
func (s *service) checkOne(ctx context.Context, p Provider, now time.Time) (st schema.Status, warning string) {
	id := p.ID()
	ctx = logx.ContextWithProviderLogger(ctx, id)
	log := logx.Ctx(ctx)
	if s.cfg.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CheckTimeout)
		defer cancel()
	}
	started := time.Now()
	outcome := metrics.OutcomeFailed
	defer func() {
		if r := recover(); r != nil {
			log.Error("provider check panicked", "panic", r)
			st = schema.UnknownStatus(id)
			warning = fmt.Sprintf("%s check failed: panic: %v", id, r)
			outcome = metrics.OutcomeFailed
		}
		metrics.ObserveCheck(string(id), outcome, time.Since(started))
	}()

	if err := p.Available(ctx); err != nil {
		outcome = metrics.OutcomeSkipped
		reason := unavailableReason(err)
		log.Info("provider skipped", "reason", reason)
		return schema.SkippedStatus(id), fmt.Sprintf("Skipping %s: %s", id, reason)
	}

	st, err := p.Status(ctx, now)
	if err != nil {
		log.Info("provider check failed", "err", err, "elapsed_ms", time.Since(started).Milliseconds())
		return schema.UnknownStatus(id), fmt.Sprintf("%s check failed: %v", id, err)
	}
	st.Provider = id
	if st.State == "" {
		st.State = schema.StateAvailable
	}
	if st.ResetAtHuman == "" {
		st.ResetAtHuman = schema.Unknown
	}
	outcome = metrics.OutcomeAvailable
	if st.Limited() {
		outcome = metrics.OutcomeLimited
	}
	log.Info("provider checked", "status", st.State, "reset_at", st.ResetAtHuman, "elapsed_ms", time.Since(started).Milliseconds())
	return st, ""
}

func unavailableReason(err error) string {
	msg := err.Error()
	if errors.Is(err, schema.ErrProviderUnavailable) {
		msg = strings.TrimPrefix(msg, schema.ErrProviderUnavailable.Error()+": ")
	}
	return msg
}
