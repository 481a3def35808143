package domain

import (
	"fmt"
	"strings"
	"time"
)

// Template identifies one of the fixed content-generation flows a user can
// select. The numeric values are part of the client contract and must not be
// reordered.
type Template int

const (
	TemplateImage Template = iota + 1
	TemplateSocialPackage
	TemplateProductVideo
)

// templateProducts maps the product marker the model emits inside a payload
// to its template.
var templateProducts = map[string]Template{
	"Bilder":       TemplateImage,
	"SocialPaket":  TemplateSocialPackage,
	"Produktvideo": TemplateProductVideo,
}

// TemplateFromProduct resolves the template for a payload product marker.
func TemplateFromProduct(product string) (Template, bool) {
	t, ok := templateProducts[strings.TrimSpace(product)]
	return t, ok
}

// Valid reports whether t is a known template.
func (t Template) Valid() bool {
	switch t {
	case TemplateImage, TemplateSocialPackage, TemplateProductVideo:
		return true
	}
	return false
}

func (t Template) String() string {
	switch t {
	case TemplateImage:
		return "image"
	case TemplateSocialPackage:
		return "social_package"
	case TemplateProductVideo:
		return "product_video"
	}
	return fmt.Sprintf("template(%d)", int(t))
}

// TransportMode selects how a finished payload travels to its generation
// back-end.
type TransportMode int

const (
	// TransportPostJSON sends the payload as a JSON request body.
	TransportPostJSON TransportMode = iota
	// TransportGetQuery serializes every payload field into the query
	// string; array values are JSON-encoded per field. Required by the
	// image and video back-ends.
	TransportGetQuery
)

// CompletionMode describes what a successful dispatch means for the
// conversation.
type CompletionMode int

const (
	// CompleteAndClose marks the conversation complete after dispatch.
	CompleteAndClose CompletionMode = iota
	// CompleteIntoRefinement keeps the conversation open in the
	// refinement loop with the returned artifact. Image template only.
	CompleteIntoRefinement
)

// RouteConfig holds the dispatch destination(s) for one template. Only the
// image template uses the edit and with-images endpoints.
type RouteConfig struct {
	Endpoint           string
	EditEndpoint       string
	WithImagesEndpoint string
	Transport          TransportMode
	Timeout            time.Duration
}

// TemplateConfig bundles everything the orchestrator needs for one template.
type TemplateConfig struct {
	SystemPrompt string
	Route        RouteConfig
	Completion   CompletionMode
}

// TemplateTable is the immutable template configuration resolved once at
// startup. Lookups on missing templates report ok=false so callers can
// surface a configuration error instead of dispatching into the void.
type TemplateTable struct {
	configs map[Template]TemplateConfig
}

// NewTemplateTable builds the table from per-template configs.
func NewTemplateTable(configs map[Template]TemplateConfig) *TemplateTable {
	copied := make(map[Template]TemplateConfig, len(configs))
	for t, c := range configs {
		copied[t] = c
	}
	return &TemplateTable{configs: copied}
}

// Lookup returns the configuration for a template.
func (tt *TemplateTable) Lookup(t Template) (TemplateConfig, bool) {
	if tt == nil {
		return TemplateConfig{}, false
	}
	c, ok := tt.configs[t]
	return c, ok
}

// Templates lists the configured templates in stable order.
func (tt *TemplateTable) Templates() []Template {
	if tt == nil {
		return nil
	}
	out := make([]Template, 0, len(tt.configs))
	for _, t := range []Template{TemplateImage, TemplateSocialPackage, TemplateProductVideo} {
		if _, ok := tt.configs[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
