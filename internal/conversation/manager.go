// Package conversation implements the per-template state machine that turns
// user input into model streams, extracted payloads and dispatches.
package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studio/internal/directive"
	"studio/internal/dispatch"
	"studio/internal/domain"
	"studio/internal/inference"
	"studio/internal/infra"
	"studio/internal/poll"
	"studio/internal/session"
	"studio/internal/stream"
)

// UploadFile is a file attached to a user submission.
type UploadFile struct {
	Name string
	Data []byte
}

// Manager owns the conversational state machine for every session.
type Manager struct {
	sessions   *session.Registry
	templates  *domain.TemplateTable
	ingestor   *stream.Ingestor
	router     *dispatch.Router
	uploader   domain.Uploader
	businesses domain.BusinessReader
	products   domain.ProductReader
	jobs       domain.JobReader
	catalog    poll.CatalogStarter
	pollCfg    poll.Config
	logger     infra.Logger
}

// Options wires the manager's collaborators.
type Options struct {
	Sessions   *session.Registry
	Templates  *domain.TemplateTable
	Ingestor   *stream.Ingestor
	Router     *dispatch.Router
	Uploader   domain.Uploader
	Businesses domain.BusinessReader
	Products   domain.ProductReader
	Jobs       domain.JobReader
	Catalog    poll.CatalogStarter
	PollConfig poll.Config
	Logger     infra.Logger
}

// NewManager constructs the orchestrator.
func NewManager(opts Options) *Manager {
	return &Manager{
		sessions:   opts.Sessions,
		templates:  opts.Templates,
		ingestor:   opts.Ingestor,
		router:     opts.Router,
		uploader:   opts.Uploader,
		businesses: opts.Businesses,
		products:   opts.Products,
		jobs:       opts.Jobs,
		catalog:    opts.Catalog,
		pollCfg:    opts.PollConfig,
		logger:     opts.Logger,
	}
}

// SelectTemplate switches the session to t. The outgoing conversation is
// kept in the store untouched; the returned snapshot reproduces the incoming
// conversation exactly as the user left it.
func (m *Manager) SelectTemplate(sessionID string, t domain.Template) (*domain.ConversationState, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown template %d", int(t))
	}
	if _, ok := m.templates.Lookup(t); !ok {
		return nil, domain.NewFailure(domain.FailureDispatchConfig,
			fmt.Sprintf("no configuration for template %s", t), nil)
	}
	s, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.SnapshotAndSwitch(t), nil
}

// Conversation returns a snapshot of the active conversation.
func (m *Manager) Conversation(sessionID string) (*domain.ConversationState, error) {
	s, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	t := s.Active()
	if !t.Valid() {
		return nil, fmt.Errorf("no template selected")
	}
	return s.Snapshot(t), nil
}

// SendMessage runs one full turn of the state machine: upload attachments,
// append the user message and a streaming placeholder, stream the model,
// then either keep the reply as plain text or dispatch the extracted
// payload. onDelta receives the accumulated assistant buffer while the model
// streams; it may be nil.
func (m *Manager) SendMessage(ctx context.Context, sessionID, text string, files []UploadFile, onDelta func(string)) (*domain.ConversationState, error) {
	s, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	t := s.Active()
	if !t.Valid() {
		return nil, fmt.Errorf("no template selected")
	}
	cfg, ok := m.templates.Lookup(t)
	if !ok {
		return nil, domain.NewFailure(domain.FailureDispatchConfig,
			fmt.Sprintf("no configuration for template %s", t), nil)
	}

	var accepts, busy bool
	s.Mutate(t, func(st *domain.ConversationState) {
		accepts = st.AcceptsUserInput()
		if last := st.Last(); last != nil && last.Status == domain.MessageStatusSending {
			busy = true
		}
	})
	if !accepts {
		return nil, domain.ErrConversationComplete
	}
	if busy {
		return nil, domain.ErrInputDisabled
	}

	// Uploads happen before anything is committed: any failure rolls the
	// whole submission back to "not sent".
	urls, err := m.uploadAll(ctx, t, files)
	if err != nil {
		return nil, err
	}

	content := directive.EmbedUploadedImages(text, urls)
	userMsg := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		ImageURLs: urls,
	}
	placeholder := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Timestamp: time.Now(),
		Status:    domain.MessageStatusSending,
	}

	var history []inference.ChatMessage
	s.Mutate(t, func(st *domain.ConversationState) {
		st.Append(userMsg)
		st.Append(placeholder)
		history = chatHistory(st.Messages, placeholder.ID)
	})

	result, streamErr := m.ingestor.Run(ctx, inference.Request{
		SystemPrompt: cfg.SystemPrompt,
		Messages:     history,
	}, func(buffer string) {
		// A stream started under this template must not write into
		// another template's now-active state.
		if !s.IsActive(t) {
			return
		}
		s.Mutate(t, func(st *domain.ConversationState) {
			updateMessage(st, placeholder.ID, func(msg *domain.Message) {
				msg.Content = buffer
			})
		})
		if onDelta != nil {
			onDelta(buffer)
		}
	})

	if streamErr != nil {
		failure := domain.FailureOf(streamErr, domain.FailureStream)
		s.Mutate(t, func(st *domain.ConversationState) {
			updateMessage(st, placeholder.ID, func(msg *domain.Message) {
				msg.Status = domain.MessageStatusError
				if msg.Content == "" {
					msg.Content = failureMessage(s.Locale, failure)
				}
			})
		})
		return s.Snapshot(t), nil
	}

	if !result.HasPayload {
		s.Mutate(t, func(st *domain.ConversationState) {
			updateMessage(st, placeholder.ID, func(msg *domain.Message) {
				msg.Content = result.FullText
				msg.Status = ""
			})
		})
		return s.Snapshot(t), nil
	}

	// Payload found: the raw JSON never reaches the visible log.
	s.Mutate(t, func(st *domain.ConversationState) {
		removeMessage(st, placeholder.ID)
	})
	m.dispatchPayload(ctx, s, t, cfg, result.Payload)
	return s.Snapshot(t), nil
}

// dispatchPayload hands a finished payload to the router and folds the
// outcome back into the conversation.
func (m *Manager) dispatchPayload(ctx context.Context, s *session.Session, t domain.Template, cfg domain.TemplateConfig, payload domain.GenerationPayload) {
	if marker, ok := domain.TemplateFromProduct(payload.Product()); ok && marker != t {
		m.logger.Warn().
			Str("template", t.String()).
			Str("payload_product", payload.Product()).
			Msg("orchestrator: payload product marker disagrees with active template")
	}
	payload = payload.Clone()
	m.enrichPayload(ctx, s, t, payload)

	res, err := m.router.Dispatch(ctx, t, payload)
	if err != nil {
		failure := domain.FailureOf(err, domain.FailureDispatchStatus)
		m.logger.Error().Err(err).Str("template", t.String()).Msg("orchestrator: dispatch failed")
		m.appendAssistant(s, t, failureMessage(s.Locale, failure), "")
		return
	}

	switch cfg.Completion {
	case domain.CompleteIntoRefinement:
		if res.ArtifactURL == "" {
			failure := domain.NewFailure(domain.FailureDispatchStatus, "",
				fmt.Errorf("dispatch: response carried no artifact url"))
			m.appendAssistant(s, t, failureMessage(s.Locale, failure), "")
			return
		}
		s.Mutate(t, func(st *domain.ConversationState) {
			if err := st.EnterRefinement(res.ArtifactURL, payload, payload); err != nil {
				m.logger.Error().Err(err).Msg("orchestrator: refinement transition rejected")
			}
		})
		m.appendAssistant(s, t, confirmationMessage(s.Locale, t), res.ArtifactURL)
	default:
		s.Mutate(t, func(st *domain.ConversationState) {
			st.MarkComplete()
		})
		m.appendAssistant(s, t, confirmationMessage(s.Locale, t), "")
	}
}

// enrichPayload assembles dispatch context the model cannot know: the
// caller's business id, the latest catalog product for the campaign
// templates and, in the refinement loop, the edit flags pointing at the
// current artifact.
func (m *Manager) enrichPayload(ctx context.Context, s *session.Session, t domain.Template, payload domain.GenerationPayload) {
	if _, ok := payload["businessId"]; !ok && m.businesses != nil {
		if business, err := m.businesses.LatestByUser(ctx, s.UserID); err == nil && business != nil {
			payload["businessId"] = business.ID
		}
	}
	if t != domain.TemplateImage && m.products != nil {
		if _, ok := payload["productName"]; !ok {
			if product, err := m.products.LatestByUser(ctx, s.UserID); err == nil && product != nil {
				payload["productName"] = product.Name
				if product.ImageURL != "" {
					payload["productImageUrl"] = product.ImageURL
				}
			}
		}
	}
	var refining bool
	var artifact string
	s.Mutate(t, func(st *domain.ConversationState) {
		refining = st.IsRefining
		artifact = st.CurrentArtifactURL
	})
	if refining && t == domain.TemplateImage {
		// Edits target one source image: imageUrl (single string), not
		// the imageUrls array used for initial generation.
		payload["isEditing"] = true
		payload["imageUrl"] = artifact
	}
}

// StartProfileCreation launches the business-profile polling flow for this
// session. Only one flow may run per session; the flow's status is
// session-scoped, so it stays readable across template switches.
func (m *Manager) StartProfileCreation(ctx context.Context, sessionID, jobID string) (*poll.ProfileFlow, error) {
	if m.jobs == nil {
		return nil, domain.NewFailure(domain.FailureDispatchConfig, "job status endpoint not configured", nil)
	}
	s, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	flow := poll.NewProfileFlow(m.pollCfg, m.jobs, m.businesses, m.catalog, m.logger)
	if err := s.SetFlow(flow); err != nil {
		return nil, err
	}
	// The poll outlives the request that started it; cancellation belongs
	// to the session (teardown) and the flow's own Cancel.
	flow.Start(context.WithoutCancel(ctx), jobID, s.UserID)
	return flow, nil
}

func (m *Manager) uploadAll(ctx context.Context, t domain.Template, files []UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		u, err := m.uploader.Upload(ctx, t.String(), f.Name, f.Data)
		if err != nil {
			return nil, domain.NewFailure(domain.FailureUpload, f.Name, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func (m *Manager) appendAssistant(s *session.Session, t domain.Template, content, imageURL string) {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
	if imageURL != "" {
		msg.ImageURLs = []string{imageURL}
	}
	s.Mutate(t, func(st *domain.ConversationState) {
		st.Append(msg)
	})
}

// chatHistory converts the log into the model transport shape, skipping the
// streaming placeholder.
func chatHistory(messages []domain.Message, placeholderID string) []inference.ChatMessage {
	out := make([]inference.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.ID == placeholderID {
			continue
		}
		out = append(out, inference.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

func updateMessage(st *domain.ConversationState, id string, fn func(*domain.Message)) {
	for i := range st.Messages {
		if st.Messages[i].ID == id {
			fn(&st.Messages[i])
			return
		}
	}
}

func removeMessage(st *domain.ConversationState, id string) {
	for i := range st.Messages {
		if st.Messages[i].ID == id {
			st.Messages = append(st.Messages[:i], st.Messages[i+1:]...)
			return
		}
	}
}
