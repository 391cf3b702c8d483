// Package nifi is a client for remotely controlling an Apache NiFi server
// through its REST API: starting and stopping processors, enabling and
// disabling controller services, and uploading and instantiating flow
// templates.
package nifi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dogmatiq/linger"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a single HTTP round-trip.
	DefaultTimeout = 30 * time.Second

	// DefaultWaitTimeout bounds WaitForState polling.
	DefaultWaitTimeout = 120 * time.Second

	// DefaultPollInterval separates consecutive WaitForState probes.
	DefaultPollInterval = 3 * time.Second

	// DefaultSettlingDelay separates the phases of restart choreographies.
	DefaultSettlingDelay = 5 * time.Second
)

type Config struct {
	Host       string
	HttpScheme string
	ApiPath    string

	// Timeout is the per-request timeout. Zero means DefaultTimeout.
	Timeout time.Duration

	// WaitTimeout is the default bound for WaitForState. Zero means
	// DefaultWaitTimeout.
	WaitTimeout time.Duration

	// PollInterval is the WaitForState probe interval. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration

	// SettlingDelay is the pause between restart phases. Zero means
	// DefaultSettlingDelay.
	SettlingDelay time.Duration

	// Logger receives per-call debug lines and state-change notices.
	// Nil means slog.Default().
	Logger *slog.Logger
}

type Client struct {
	Config Config
	Client *http.Client
	logger *slog.Logger
	// clientId is submitted with every revision so the server can attribute
	// consecutive writes to the same caller.
	clientId string
}

func baseurl(conf Config) string {
	return fmt.Sprintf("%s://%s/%s", conf.HttpScheme, conf.Host, conf.ApiPath)
}

// NewClient builds a client for the NiFi instance described by conf and
// probes the API root before returning. An instance that cannot be reached
// fails construction with *UnreachableError rather than on the first real
// operation.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	if conf.HttpScheme == "" {
		conf.HttpScheme = "http"
	}
	if conf.ApiPath == "" {
		conf.ApiPath = "nifi-api"
	}
	if conf.Logger == nil {
		conf.Logger = slog.Default()
	}

	client := &Client{
		Config:   conf,
		Client:   &http.Client{},
		logger:   conf.Logger,
		clientId: uuid.NewString(),
	}

	if _, _, err := client.TextCall(ctx, "GET", baseurl(conf)); err != nil {
		return nil, &UnreachableError{URL: baseurl(conf), Err: err}
	}
	return client, nil
}

// Common section

type Revision struct {
	ClientId string `json:"clientId,omitempty"`
	Version  int    `json:"version"`
}

type ReferencingComponentDetail struct {
	Id            string `json:"id"`
	ReferenceType string `json:"referenceType"`
}

type ReferencingComponent struct {
	Component ReferencingComponentDetail `json:"component"`
}

type EntityComponent struct {
	Id                    string                 `json:"id,omitempty"`
	Name                  string                 `json:"name,omitempty"`
	State                 State                  `json:"state,omitempty"`
	Properties            map[string]interface{} `json:"properties,omitempty"`
	ReferencingComponents []ReferencingComponent `json:"referencingComponents,omitempty"`
}

// Entity is the component/revision pair NiFi uses as the body of almost
// every request and response.
type Entity struct {
	Revision  *Revision        `json:"revision,omitempty"`
	Component *EntityComponent `json:"component,omitempty"`
}

func (e *Entity) validate(url string) error {
	if e.Component == nil {
		return &MalformedResponseError{URL: url, Reason: "component missing"}
	}
	if e.Revision == nil {
		return &MalformedResponseError{URL: url, Reason: "revision missing"}
	}
	if e.Component.Id == "" {
		return &MalformedResponseError{URL: url, Reason: "component id missing"}
	}
	return nil
}

// JsonCall performs a JSON round-trip against url. A 404 maps to
// ErrNotFound, a 409 to *VersionConflictError and any other non-success
// status to *RemoteError carrying the response body.
func (c *Client) JsonCall(ctx context.Context, method string, url string, bodyIn interface{}, bodyOut interface{}) (int, error) {
	var requestBody io.Reader
	if bodyIn != nil {
		buffer := new(bytes.Buffer)
		if err := json.NewEncoder(buffer).Encode(bodyIn); err != nil {
			return 0, err
		}
		requestBody = buffer
	}

	ctx, cancel := linger.ContextWithTimeout(ctx, c.Config.Timeout, DefaultTimeout)
	defer cancel()
	request, err := http.NewRequestWithContext(ctx, method, url, requestBody)
	if err != nil {
		return 0, err
	}
	if bodyIn != nil {
		request.Header.Add("Content-Type", "application/json; charset=utf-8")
	}
	request.Header.Add("Accept", "application/json")

	response, err := c.Client.Do(request)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()
	c.logger.Debug("http call",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("code", response.StatusCode))

	if response.StatusCode == http.StatusNotFound {
		return response.StatusCode, ErrNotFound
	}
	if response.StatusCode >= 300 {
		bodyBytes, err := io.ReadAll(response.Body)
		if err != nil {
			return response.StatusCode, err
		}
		return response.StatusCode, remoteError(response.StatusCode, string(bodyBytes))
	}

	if bodyOut != nil {
		if err := json.NewDecoder(response.Body).Decode(bodyOut); err != nil {
			return response.StatusCode, &MalformedResponseError{URL: url, Reason: err.Error()}
		}
	}
	return response.StatusCode, nil
}

// TextCall performs a bodiless request and returns the raw response text.
// Used for the endpoints that do not speak JSON, such as template download.
func (c *Client) TextCall(ctx context.Context, method string, url string) (string, int, error) {
	ctx, cancel := linger.ContextWithTimeout(ctx, c.Config.Timeout, DefaultTimeout)
	defer cancel()
	request, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return "", 0, err
	}

	response, err := c.Client.Do(request)
	if err != nil {
		return "", 0, err
	}
	defer response.Body.Close()
	c.logger.Debug("http call",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("code", response.StatusCode))

	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return "", response.StatusCode, err
	}
	if response.StatusCode == http.StatusNotFound {
		return "", response.StatusCode, ErrNotFound
	}
	if response.StatusCode >= 300 {
		return "", response.StatusCode, remoteError(response.StatusCode, string(bodyBytes))
	}
	return string(bodyBytes), response.StatusCode, nil
}

// Upload POSTs a multipart form with a single "template" file part and
// returns the raw response body.
func (c *Client) Upload(ctx context.Context, url string, filename string, file io.Reader) (string, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("template", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	ctx, cancel := linger.ContextWithTimeout(ctx, c.Config.Timeout, DefaultTimeout)
	defer cancel()
	request, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return "", err
	}
	request.Header.Add("Content-Type", writer.FormDataContentType())

	response, err := c.Client.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()
	c.logger.Debug("http upload",
		slog.String("url", url),
		slog.Int("code", response.StatusCode))

	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	if response.StatusCode >= 300 {
		return "", remoteError(response.StatusCode, string(bodyBytes))
	}
	return string(bodyBytes), nil
}

// GetInfo fetches the full entity at url.
func (c *Client) GetInfo(ctx context.Context, url string) (*Entity, error) {
	entity := &Entity{}
	if _, err := c.JsonCall(ctx, "GET", url, nil, entity); err != nil {
		return nil, err
	}
	if err := entity.validate(url); err != nil {
		return nil, err
	}
	return entity, nil
}

// GetState fetches the entity at url reduced to id, state and revision, the
// exact shape a state-changing write needs.
func (c *Client) GetState(ctx context.Context, url string) (*Entity, error) {
	entity, err := c.GetInfo(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Entity{
		Revision: &Revision{Version: entity.Revision.Version},
		Component: &EntityComponent{
			Id:    entity.Component.Id,
			State: entity.Component.State,
		},
	}, nil
}

// GetMinInfo fetches the entity at url reduced to id, name and revision.
func (c *Client) GetMinInfo(ctx context.Context, url string) (*Entity, error) {
	entity, err := c.GetInfo(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Entity{
		Revision: &Revision{Version: entity.Revision.Version},
		Component: &EntityComponent{
			Id:   entity.Component.Id,
			Name: entity.Component.Name,
		},
	}, nil
}

// ChangeState reads the component's current state and revision, then writes
// the new state under that revision. When the current state matches one of
// forbiddenInitial the write is not issued at all and *StateTransitionError
// is returned: the server refuses those transitions on this endpoint.
func (c *Client) ChangeState(ctx context.Context, url string, state State, forbiddenInitial ...State) (*Entity, error) {
	current, err := c.GetState(ctx, url)
	if err != nil {
		return nil, err
	}
	for _, forbidden := range forbiddenInitial {
		if current.Component.State == forbidden {
			c.logger.Info("state change skipped",
				slog.String("url", url),
				slog.String("from", string(forbidden)),
				slog.String("to", string(state)))
			return nil, &StateTransitionError{
				Id:   current.Component.Id,
				From: current.Component.State,
				To:   state,
			}
		}
	}

	stateUpdate := Entity{
		Revision: &Revision{
			ClientId: c.clientId,
			Version:  current.Revision.Version,
		},
		Component: &EntityComponent{
			Id:    current.Component.Id,
			State: state,
		},
	}
	updated := &Entity{}
	if _, err := c.JsonCall(ctx, "PUT", url, stateUpdate, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// GetReferencingComponents resolves the components referencing the
// controller service at url. Only processor references are resolved; their
// order is preserved.
func (c *Client) GetReferencingComponents(ctx context.Context, url string) ([]*Processor, error) {
	entity, err := c.GetInfo(ctx, url)
	if err != nil {
		return nil, err
	}
	// TODO: resolve ControllerService and ReportingTask reference types too.
	processors := []*Processor{}
	for _, ref := range entity.Component.ReferencingComponents {
		if ref.Component.ReferenceType != string(ComponentType_PROCESSOR) {
			continue
		}
		processors = append(processors, c.Processor(ref.Component.Id))
	}
	return processors, nil
}

// WaitForState polls the component at url until the wanted state is
// observed. A zero maxWait falls back to Config.WaitTimeout.
func (c *Client) WaitForState(ctx context.Context, url string, want State, maxWait time.Duration) error {
	ctx, cancel := linger.ContextWithTimeout(ctx, maxWait, c.Config.WaitTimeout, DefaultWaitTimeout)
	defer cancel()
	for {
		entity, err := c.GetState(ctx, url)
		if err == nil && entity.Component.State == want {
			return nil
		}
		if err := linger.Sleep(ctx, c.Config.PollInterval, DefaultPollInterval); err != nil {
			return fmt.Errorf("timed out waiting for state %s of %s: %w", want, url, err)
		}
	}
}
