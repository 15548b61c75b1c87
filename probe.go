package praxis

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckCapabilities probes the three capabilities concurrently. It never
// fails and never touches sessions: a missing provider, a probe error, a
// panic or a probe slower than the timeout all read as unavailable.
func (a *Adapter) CheckCapabilities(ctx context.Context) Capabilities {
	start := a.now()
	var (
		caps Capabilities
		g    errgroup.Group
	)

	if lm := a.engines.LanguageModel; lm != nil {
		g.Go(func() error {
			caps.Prompt = a.probe(ctx, lm.Availability)
			return nil
		})
	} else {
		caps.Prompt = StatusNotPresent
	}

	if tr := a.engines.Translator; tr != nil {
		g.Go(func() error {
			caps.Translator = a.probe(ctx, func(ctx context.Context) (Availability, error) {
				return tr.Availability(ctx, a.sourceLanguage, a.targetLanguage)
			})
			return nil
		})
	} else {
		caps.Translator = StatusNotPresent
	}

	if rw := a.engines.Rewriter; rw != nil {
		g.Go(func() error {
			caps.Rewriter = a.probe(ctx, rw.Availability)
			return nil
		})
	} else {
		caps.Rewriter = StatusNotPresent
	}

	_ = g.Wait()
	caps.LastChecked = a.now()

	a.logger.Info("ai.capabilities.checked",
		zap.String("prompt", string(caps.Prompt)),
		zap.String("translator", string(caps.Translator)),
		zap.String("rewriter", string(caps.Rewriter)),
		zap.Duration("duration", caps.LastChecked.Sub(start)),
	)
	return caps
}

func (a *Adapter) probe(ctx context.Context, check func(context.Context) (Availability, error)) CapabilityStatus {
	avail, err := callWithTimeout(ctx, a.timeout, check, nil)
	if err != nil {
		a.logger.Debug("ai.capabilities.probe_failed", zap.Error(err))
		return StatusNotPresent
	}
	return avail.Status()
}
