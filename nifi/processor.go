package nifi

import (
	"context"
	"log/slog"

	"github.com/dogmatiq/linger"
)

// Processor section

type Processor struct {
	Component
}

// Processor returns a handle to the processor with the given id. No request
// is issued until an operation is invoked on the handle.
func (c *Client) Processor(processorId string) *Processor {
	return &Processor{
		Component: newComponent(c, ComponentType_PROCESSOR, processorId),
	}
}

// Start transitions the processor to RUNNING. A DISABLED processor can not
// be started directly; it has to be enabled first.
func (p *Processor) Start(ctx context.Context) error {
	p.client.logger.Info("starting", slog.String("component", p.String()))
	_, err := p.client.ChangeState(ctx, p.url, State_RUNNING, State_DISABLED)
	return err
}

// Stop transitions the processor to STOPPED.
func (p *Processor) Stop(ctx context.Context) error {
	p.client.logger.Info("stopping", slog.String("component", p.String()))
	_, err := p.client.ChangeState(ctx, p.url, State_STOPPED, State_DISABLED)
	return err
}

// Enable moves a DISABLED processor back to STOPPED, which is what the
// server calls enabling.
func (p *Processor) Enable(ctx context.Context) error {
	p.client.logger.Info("enabling", slog.String("component", p.String()))
	_, err := p.client.ChangeState(ctx, p.url, State_STOPPED, State_RUNNING)
	return err
}

// Disable transitions the processor to DISABLED. A RUNNING processor has to
// be stopped first.
func (p *Processor) Disable(ctx context.Context) error {
	p.client.logger.Info("disabling", slog.String("component", p.String()))
	_, err := p.client.ChangeState(ctx, p.url, State_DISABLED, State_RUNNING)
	return err
}

// Restart stops the processor, lets it settle, and starts it again. The
// stop is not verified to have completed before the start is issued.
func (p *Processor) Restart(ctx context.Context) error {
	p.client.logger.Info("restarting", slog.String("component", p.String()))
	if err := p.Stop(ctx); err != nil {
		return err
	}
	if err := linger.Sleep(ctx, p.client.Config.SettlingDelay, DefaultSettlingDelay); err != nil {
		return err
	}
	return p.Start(ctx)
}
