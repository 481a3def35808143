package domain

import "errors"

// GenerationPayload is the structured object the model emits once a
// conversation has gathered enough information. It stays untyped because its
// fields vary by template; the dispatch router inspects only the few routing
// fields it knows about.
type GenerationPayload map[string]any

// Product returns the payload's template marker, if present.
func (p GenerationPayload) Product() string {
	s, _ := p["product"].(string)
	return s
}

// Bool reads a boolean payload flag, tolerating absence.
func (p GenerationPayload) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Clone returns a shallow copy safe against later key mutation.
func (p GenerationPayload) Clone() GenerationPayload {
	if p == nil {
		return nil
	}
	out := make(GenerationPayload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ErrConversationComplete is returned when a user message is submitted to a
// conversation that is finished and not in the refinement loop.
var ErrConversationComplete = errors.New("conversation is complete")

// ConversationState holds the per-template conversation. Invariants:
// IsRefining implies CurrentArtifactURL is non-empty and IsComplete is false;
// once IsComplete is set, no further user messages are accepted except
// through the refinement path of the image template.
type ConversationState struct {
	Template                   Template          `json:"template"`
	Messages                   []Message         `json:"messages"`
	IsComplete                 bool              `json:"isComplete"`
	IsRefining                 bool              `json:"isRefining"`
	CurrentArtifactURL         string            `json:"currentArtifactUrl,omitempty"`
	OriginalGenerationSettings GenerationPayload `json:"originalGenerationSettings,omitempty"`
	LastGenerationParams       GenerationPayload `json:"lastGenerationParams,omitempty"`
}

// NewConversationState initializes a fresh conversation for a template.
func NewConversationState(t Template) *ConversationState {
	return &ConversationState{Template: t, Messages: make([]Message, 0, 8)}
}

// AcceptsUserInput reports whether a new user message may enter the
// conversation in its current state.
func (c *ConversationState) AcceptsUserInput() bool {
	if !c.IsComplete {
		return true
	}
	return c.IsRefining && c.Template == TemplateImage
}

// Append adds a message to the log.
func (c *ConversationState) Append(m Message) {
	c.Messages = append(c.Messages, m)
}

// DropLast removes the most recent message. Used to discard the streaming
// placeholder when the stream turns out to carry a payload, and to roll back
// a submission after an upload failure.
func (c *ConversationState) DropLast() {
	if len(c.Messages) > 0 {
		c.Messages = c.Messages[:len(c.Messages)-1]
	}
}

// Last returns a pointer to the most recent message, or nil.
func (c *ConversationState) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// EnterRefinement records a generated artifact and opens the refinement
// loop. Only valid for the image template.
func (c *ConversationState) EnterRefinement(artifactURL string, settings, params GenerationPayload) error {
	if c.Template != TemplateImage {
		return errors.New("refinement is only available for the image template")
	}
	if artifactURL == "" {
		return errors.New("refinement requires an artifact url")
	}
	c.CurrentArtifactURL = artifactURL
	if c.OriginalGenerationSettings == nil {
		c.OriginalGenerationSettings = settings.Clone()
	}
	c.LastGenerationParams = params.Clone()
	c.IsRefining = true
	c.IsComplete = false
	return nil
}

// MarkComplete closes the conversation after a fire-and-forget dispatch.
func (c *ConversationState) MarkComplete() {
	c.IsComplete = true
	c.IsRefining = false
}

// Clone deep-copies the state so a snapshot cannot be mutated through the
// live conversation.
func (c *ConversationState) Clone() *ConversationState {
	if c == nil {
		return nil
	}
	out := &ConversationState{
		Template:                   c.Template,
		IsComplete:                 c.IsComplete,
		IsRefining:                 c.IsRefining,
		CurrentArtifactURL:         c.CurrentArtifactURL,
		OriginalGenerationSettings: c.OriginalGenerationSettings.Clone(),
		LastGenerationParams:       c.LastGenerationParams.Clone(),
		Messages:                   make([]Message, len(c.Messages)),
	}
	for i, m := range c.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}
