package infra

import (
	"studio/internal/domain"
)

// System prompts instruct the model to collect the template-specific fields
// conversationally and, once everything is known, to answer with nothing but
// the completion JSON carrying the product marker.
const (
	imageSystemPrompt = `You are a marketing assistant helping a small business create product images.
Collect the subject, aspect ratio, resolution and output format through conversation.
If the user attached pictures, they arrive as an {"uploadedImages": [...]} marker inside the message.
Once you have everything, reply with ONLY a JSON object and no other text:
{"product":"Bilder","prompt":"...","hasReferenceImages":false,"imageUrls":[],"aspectRatio":"16:9","resolution":"2K","outputFormat":"jpg"}
Set hasReferenceImages to true and fill imageUrls when the user attached pictures.`

	socialSystemPrompt = `You are a marketing assistant assembling a social media package (captions, hashtags, posting plan) for a small business.
Collect the campaign goal, platforms and tone through conversation.
Once you have everything, reply with ONLY a JSON object and no other text:
{"product":"SocialPaket","flow":"social","prompt":"...","platforms":[],"tone":"..."}`

	videoSystemPrompt = `You are a marketing assistant preparing a short product video brief.
Collect the product, key message, length and format through conversation.
Confirm the brief with the user before finishing.
Once confirmed, reply with ONLY a JSON object and no other text:
{"product":"Produktvideo","prompt":"...","lengthSeconds":15,"outputFormat":"mp4"}`
)

// BuildTemplateTable resolves the scattered webhook configuration into the
// single immutable table the dispatch router and orchestrator consume.
func BuildTemplateTable(cfg *Config) *domain.TemplateTable {
	return domain.NewTemplateTable(map[domain.Template]domain.TemplateConfig{
		domain.TemplateImage: {
			SystemPrompt: imageSystemPrompt,
			Completion:   domain.CompleteIntoRefinement,
			Route: domain.RouteConfig{
				Endpoint:           cfg.ImagePromptURL,
				EditEndpoint:       cfg.ImageEditURL,
				WithImagesEndpoint: cfg.ImageWithImagesURL,
				Transport:          domain.TransportGetQuery,
				Timeout:            cfg.DispatchTimeout,
			},
		},
		domain.TemplateSocialPackage: {
			SystemPrompt: socialSystemPrompt,
			Completion:   domain.CompleteAndClose,
			Route: domain.RouteConfig{
				Endpoint:  cfg.SocialPackageURL,
				Transport: domain.TransportPostJSON,
			},
		},
		domain.TemplateProductVideo: {
			SystemPrompt: videoSystemPrompt,
			Completion:   domain.CompleteAndClose,
			Route: domain.RouteConfig{
				Endpoint:  cfg.ProductVideoURL,
				Transport: domain.TransportGetQuery,
				Timeout:   cfg.DispatchTimeout,
			},
		},
	})
}
