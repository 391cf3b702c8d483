package nifi

import (
	"context"
	"log/slog"
	"time"

	"github.com/dogmatiq/linger"
	"go.uber.org/multierr"
)

// Controller Service section

type ControllerService struct {
	Component
}

// ControllerService returns a handle to the controller service with the
// given id. No request is issued until an operation is invoked.
func (c *Client) ControllerService(controllerServiceId string) *ControllerService {
	return &ControllerService{
		Component: newComponent(c, ComponentType_CONTROLLER_SERVICE, controllerServiceId),
	}
}

type controllerServicesResponse struct {
	ControllerServices []Entity `json:"controllerServices"`
}

// GetControllerServices lists the controller services of a process group.
// An empty processGroup defaults to the root group.
func (c *Client) GetControllerServices(ctx context.Context, processGroup string) ([]*ControllerService, error) {
	if processGroup == "" {
		processGroup = RootProcessGroup
	}
	url := ControllerServicesURL(baseurl(c.Config), processGroup)
	return c.listControllerServices(ctx, url)
}

func (c *Client) listControllerServices(ctx context.Context, url string) ([]*ControllerService, error) {
	response := controllerServicesResponse{}
	if _, err := c.JsonCall(ctx, "GET", url, nil, &response); err != nil {
		return nil, err
	}
	services := []*ControllerService{}
	for _, entity := range response.ControllerServices {
		if entity.Component == nil || entity.Component.Id == "" {
			return nil, &MalformedResponseError{URL: url, Reason: "controller service entry without component id"}
		}
		services = append(services, c.ControllerService(entity.Component.Id))
	}
	c.logger.Debug("controller services listed",
		slog.String("url", url),
		slog.Int("count", len(services)))
	return services, nil
}

// GetName fetches the service's display name.
func (s *ControllerService) GetName(ctx context.Context) (string, error) {
	entity, err := s.GetInfo(ctx)
	if err != nil {
		return "", err
	}
	return entity.Component.Name, nil
}

// GetReferencingComponents resolves the processors currently referencing
// this service, in the order the server reports them.
func (s *ControllerService) GetReferencingComponents(ctx context.Context) ([]*Processor, error) {
	return s.client.GetReferencingComponents(ctx, s.url)
}

// StopReferencingComponents stops every referencing processor. Failures are
// collected per processor rather than aborting the sweep.
func (s *ControllerService) StopReferencingComponents(ctx context.Context) error {
	processors, err := s.GetReferencingComponents(ctx)
	if err != nil {
		return err
	}
	var result error
	for _, processor := range processors {
		result = multierr.Append(result, processor.Stop(ctx))
	}
	return result
}

// StartReferencingComponents starts every referencing processor. Failures
// are collected per processor rather than aborting the sweep.
func (s *ControllerService) StartReferencingComponents(ctx context.Context) error {
	processors, err := s.GetReferencingComponents(ctx)
	if err != nil {
		return err
	}
	var result error
	for _, processor := range processors {
		result = multierr.Append(result, processor.Start(ctx))
	}
	return result
}

// Enable enables the controller service. There is no forbidden initial
// state; the write is unconditional.
func (s *ControllerService) Enable(ctx context.Context) error {
	s.client.logger.Info("enabling", slog.String("component", s.String()))
	_, err := s.client.ChangeState(ctx, s.url, State_ENABLED)
	return err
}

// Disable disables the controller service unconditionally.
func (s *ControllerService) Disable(ctx context.Context) error {
	s.client.logger.Info("disabling", slog.String("component", s.String()))
	_, err := s.client.ChangeState(ctx, s.url, State_DISABLED)
	return err
}

// WaitForState polls until the service reaches the wanted state. A zero
// maxWait falls back to Config.WaitTimeout.
func (s *ControllerService) WaitForState(ctx context.Context, want State, maxWait time.Duration) error {
	return s.client.WaitForState(ctx, s.url, want, maxWait)
}

// Restart bounces the controller service and everything using it. The
// server refuses to disable a service while referencing components are
// running, and refuses to hand it out again before it has fully settled, so
// each phase waits before the next one: stop the referencing processors,
// disable, enable, start the referencing processors again. The disable and
// enable phases poll the observed state; the referencing-component phases
// use a fixed settling delay.
func (s *ControllerService) Restart(ctx context.Context) error {
	s.client.logger.Info("restarting", slog.String("component", s.String()))
	if err := s.StopReferencingComponents(ctx); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}
	if err := s.Disable(ctx); err != nil {
		return err
	}
	if err := s.WaitForState(ctx, State_DISABLED, 0); err != nil {
		return err
	}
	if err := s.Enable(ctx); err != nil {
		return err
	}
	if err := s.WaitForState(ctx, State_ENABLED, 0); err != nil {
		return err
	}
	if err := s.StartReferencingComponents(ctx); err != nil {
		return err
	}
	return s.settle(ctx)
}

func (s *ControllerService) settle(ctx context.Context) error {
	return linger.Sleep(ctx, s.client.Config.SettlingDelay, DefaultSettlingDelay)
}

// UpdateProperty sets a single property of the service under its current
// revision. Concurrent edits are last-write-wins per property map; a
// *VersionConflictError means the revision went stale between the read and
// the write and the call should be re-issued.
func (s *ControllerService) UpdateProperty(ctx context.Context, name string, value interface{}) error {
	s.client.logger.Info("updating property",
		slog.String("component", s.String()),
		slog.String("property", name))
	entity, err := s.GetInfo(ctx)
	if err != nil {
		return err
	}
	properties := entity.Component.Properties
	if properties == nil {
		properties = map[string]interface{}{}
	}
	properties[name] = value

	update := Entity{
		Revision: &Revision{
			ClientId: s.client.clientId,
			Version:  entity.Revision.Version,
		},
		Component: &EntityComponent{
			Id:         entity.Component.Id,
			Properties: properties,
		},
	}
	_, err = s.client.JsonCall(ctx, "PUT", s.url, update, nil)
	return err
}
