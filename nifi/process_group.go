package nifi

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Process Group section

type ProcessGroup struct {
	Component
}

// ProcessGroup returns a handle to the process group with the given id.
func (c *Client) ProcessGroup(processGroupId string) *ProcessGroup {
	group := &ProcessGroup{
		Component: newComponent(c, ComponentType_PROCESS_GROUP, processGroupId),
	}
	group.endpoints["upload-template"] = "templates/upload"
	group.endpoints["initialize-template"] = "template-instance"
	return group
}

// templateEntity mirrors the XML body a template upload responds with.
type templateEntity struct {
	Template struct {
		Id string `xml:"id"`
	} `xml:"template"`
}

// UploadTemplate uploads the flow template stored at path and returns a
// handle to the newly registered template.
func (g *ProcessGroup) UploadTemplate(ctx context.Context, path string) (*Template, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return g.UploadTemplateFrom(ctx, filepath.Base(path), file)
}

// UploadTemplateFrom uploads a flow template read from r. The new template's
// id is parsed out of the server's XML response.
func (g *ProcessGroup) UploadTemplateFrom(ctx context.Context, filename string, r io.Reader) (*Template, error) {
	url := g.Endpoint("upload-template")
	g.client.logger.Info("uploading template",
		slog.String("component", g.String()),
		slog.String("file", filename))
	body, err := g.client.Upload(ctx, url, filename, r)
	if err != nil {
		return nil, err
	}

	entity := templateEntity{}
	if err := xml.Unmarshal([]byte(body), &entity); err != nil {
		return nil, &MalformedResponseError{URL: url, Reason: err.Error()}
	}
	if entity.Template.Id == "" {
		return nil, &MalformedResponseError{URL: url, Reason: "template id missing from upload response"}
	}
	return g.client.Template(entity.Template.Id), nil
}

type instantiateTemplateRequest struct {
	TemplateId string  `json:"templateId"`
	OriginX    float64 `json:"originX"`
	OriginY    float64 `json:"originY"`
}

type flowResponse struct {
	Flow struct {
		ProcessGroups []struct {
			Id string `json:"id"`
		} `json:"processGroups"`
	} `json:"flow"`
}

// InitializeTemplate instantiates the template onto this group's canvas at
// the given origin and returns a handle to the resulting child group. The
// server does not guarantee an ordering of flow.processGroups; the first
// entry is assumed to be the one just instantiated.
func (g *ProcessGroup) InitializeTemplate(ctx context.Context, template *Template, originX float64, originY float64) (*ProcessGroup, error) {
	url := g.Endpoint("initialize-template")
	g.client.logger.Info("initializing template",
		slog.String("component", g.String()),
		slog.String("template", template.Id))
	request := instantiateTemplateRequest{
		TemplateId: template.Id,
		OriginX:    originX,
		OriginY:    originY,
	}
	response := flowResponse{}
	if _, err := g.client.JsonCall(ctx, "POST", url, request, &response); err != nil {
		return nil, err
	}
	if len(response.Flow.ProcessGroups) == 0 || response.Flow.ProcessGroups[0].Id == "" {
		return nil, &MalformedResponseError{URL: url, Reason: "no process group in template-instance response"}
	}
	return g.client.ProcessGroup(response.Flow.ProcessGroups[0].Id), nil
}
