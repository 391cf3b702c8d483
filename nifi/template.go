package nifi

import (
	"context"
	"log/slog"
)

// Template section

type Template struct {
	Component
}

// Template returns a handle to the flow template with the given id.
func (c *Client) Template(templateId string) *Template {
	template := &Template{
		Component: newComponent(c, ComponentType_TEMPLATE, templateId),
	}
	template.endpoints["download"] = "download"
	return template
}

// Download returns the raw XML definition of the template.
func (t *Template) Download(ctx context.Context) (string, error) {
	t.client.logger.Info("downloading", slog.String("component", t.String()))
	body, _, err := t.client.TextCall(ctx, "GET", t.Endpoint("download"))
	return body, err
}

// Delete removes the template. Templates carry no revision, so no version
// token is sent.
func (t *Template) Delete(ctx context.Context) error {
	t.client.logger.Info("deleting", slog.String("component", t.String()))
	_, err := t.client.JsonCall(ctx, "DELETE", t.url, nil, nil)
	return err
}
