package nifi

import (
	"context"
	"fmt"
)

type State string

const (
	State_RUNNING  State = "RUNNING"
	State_STOPPED  State = "STOPPED"
	State_DISABLED State = "DISABLED"
	State_ENABLED  State = "ENABLED"
)

type ComponentType string

const (
	ComponentType_PROCESSOR          ComponentType = "Processor"
	ComponentType_CONTROLLER_SERVICE ComponentType = "Controller Service"
	ComponentType_PROCESS_GROUP      ComponentType = "Process Group"
	ComponentType_FLOW               ComponentType = "Flow"
	ComponentType_TEMPLATE           ComponentType = "Template"
)

// RootProcessGroup addresses the top-level process group of a NiFi instance.
const RootProcessGroup = "root"

var componentUrlTemplates = map[ComponentType]string{
	ComponentType_PROCESSOR:          "%s/processors/%s",
	ComponentType_CONTROLLER_SERVICE: "%s/controller-services/%s",
	ComponentType_FLOW:               "%s/flow/process-groups/%s/",
	ComponentType_PROCESS_GROUP:      "%s/process-groups/%s/",
	ComponentType_TEMPLATE:           "%s/templates/%s/",
}

// ComponentURL resolves the REST URL of a component from its type's
// template, substituting the API base and component id exactly once.
func ComponentURL(componentType ComponentType, base string, componentId string) string {
	return fmt.Sprintf(componentUrlTemplates[componentType], base, componentId)
}

// ControllerServicesURL resolves the controller-services listing endpoint of
// a process group.
func ControllerServicesURL(base string, processGroupId string) string {
	return fmt.Sprintf("%s/flow/process-groups/%s/controller-services", base, processGroupId)
}

// Component is the common part of every addressable NiFi entity. The URL is
// resolved once at construction and never changes; named sub-paths are
// appended on demand via Endpoint.
type Component struct {
	Type ComponentType
	Id   string

	client    *Client
	url       string
	endpoints map[string]string
}

func newComponent(c *Client, componentType ComponentType, componentId string) Component {
	return Component{
		Type:      componentType,
		Id:        componentId,
		client:    c,
		url:       ComponentURL(componentType, baseurl(c.Config), componentId),
		endpoints: map[string]string{},
	}
}

// URL returns the component's resolved REST URL.
func (m *Component) URL() string { return m.url }

// Endpoint returns the component URL with the named sub-path appended. An
// unknown name returns the component URL unchanged.
func (m *Component) Endpoint(name string) string {
	return m.url + m.endpoints[name]
}

func (m *Component) String() string {
	return fmt.Sprintf("%s %s", m.Type, m.url)
}

// GetInfo fetches the component's full entity.
func (m *Component) GetInfo(ctx context.Context) (*Entity, error) {
	return m.client.GetInfo(ctx, m.url)
}

// GetState fetches the component's id, state and revision.
func (m *Component) GetState(ctx context.Context) (*Entity, error) {
	return m.client.GetState(ctx, m.url)
}

// GetMinInfo fetches the component's id, name and revision.
func (m *Component) GetMinInfo(ctx context.Context) (*Entity, error) {
	return m.client.GetMinInfo(ctx, m.url)
}
