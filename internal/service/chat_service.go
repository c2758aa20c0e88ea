// FILE: internal/service/chat_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"portfolio-ai-be/internal/apperror"
	"portfolio-ai-be/internal/dto"
	"portfolio-ai-be/internal/entity"
	"portfolio-ai-be/internal/pkg/logger"
	"portfolio-ai-be/internal/repository/specification"
	"portfolio-ai-be/internal/repository/unitofwork"
	"portfolio-ai-be/pkg/events"
	"portfolio-ai-be/pkg/genai"
	"portfolio-ai-be/pkg/nats"
	"portfolio-ai-be/pkg/rag/prompt"
	"portfolio-ai-be/pkg/rag/rephrase"
	"portfolio-ai-be/pkg/rag/search"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// Fallback reply persisted when the generation call fails, so the
	// transcript stays consistent.
	apologyMessage = "I apologize, but I'm having trouble processing your request right now. Please try again later."

	maxSessionTitleLen = 80

	sessionTitlePrompt = "Generate a concise title of at most five words for a conversation that opens with the message below. Reply with the title only, no quotes.\n\nMessage: %s"

	suggestedQuestionsCount = 6

	suggestPrompt = "%s\n\nThese are the visitor's recent questions. Based on them, generate %d suggested questions the visitor may ask next. Return only the questions as a JSON array of strings without any extra text."
)

// ClientMeta carries request metadata stored on lazily created sessions.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// ChatStreamEvent is one frame pushed to a streaming chat client.
type ChatStreamEvent struct {
	Type     string
	Chunk    *dto.StreamChunkEvent
	Complete *dto.StreamCompleteEvent
	Error    *dto.StreamErrorEvent
}

type IChatService interface {
	Send(ctx context.Context, request *dto.SendChatRequest, meta ClientMeta) (*dto.SendChatResponse, error)
	SendStream(ctx context.Context, request *dto.SendChatRequest, meta ClientMeta) (<-chan ChatStreamEvent, error)
	GetHistory(ctx context.Context, sessionKey string) ([]*dto.ChatHistoryMessageResponse, error)
	ClearHistory(ctx context.Context, sessionKey string) error
	Suggest(ctx context.Context, sessionKey string) (*dto.SuggestedQuestionsResponse, error)
}

type chatService struct {
	uowFactory    unitofwork.RepositoryFactory
	generator     genai.Generator
	searcher      *search.Orchestrator
	rephraser     *rephrase.Rephraser
	publisher     *nats.Publisher
	logger        logger.ILogger
	retrievalTopK int
	rephraseOn    bool
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	generator genai.Generator,
	searcher *search.Orchestrator,
	rephraser *rephrase.Rephraser,
	publisher *nats.Publisher,
	log logger.ILogger,
	retrievalTopK int,
	rephraseOn bool,
) IChatService {
	if retrievalTopK <= 0 {
		retrievalTopK = 3
	}
	return &chatService{
		uowFactory:    uowFactory,
		generator:     generator,
		searcher:      searcher,
		rephraser:     rephraser,
		publisher:     publisher,
		logger:        log,
		retrievalTopK: retrievalTopK,
		rephraseOn:    rephraseOn,
	}
}

// preparedTurn bundles everything ready for generation: the persisted
// user message, conversation turns, and retrieved context.
type preparedTurn struct {
	uow        unitofwork.UnitOfWork
	session    *entity.ChatSession
	newSession bool
	turns      []*genai.Turn
	retrieved  []search.Result
}

func (cs *chatService) prepare(ctx context.Context, request *dto.SendChatRequest, meta ClientMeta) (*preparedTurn, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, created, err := cs.getOrCreateSession(ctx, uow, request.SessionId, request.Message, meta)
	if err != nil {
		return nil, err
	}

	history, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	historyTurns := make([]*genai.Turn, 0, len(history))
	for _, msg := range history {
		historyTurns = append(historyTurns, &genai.Turn{
			Content: msg.Content,
			Role:    toModelRole(msg.Role),
		})
	}

	// Retrieval. Failures here degrade to an uncontextualized answer
	// instead of failing the whole turn.
	query := request.Message
	var rephrasedQuery *string
	if cs.rephraseOn && cs.rephraser != nil && len(historyTurns) > 0 {
		if rewritten := cs.rephraser.Rephrase(ctx, historyTurns, query); rewritten != query {
			query = rewritten
			rephrasedQuery = &rewritten
		}
	}

	var retrieved []search.Result
	if cs.searcher != nil {
		retrieved, err = cs.searcher.Execute(ctx, uow.DocumentChunkRepository(), query, cs.retrievalTopK)
		if err != nil {
			cs.logger.Warn("chat", "retrieval failed, continuing without context", map[string]interface{}{
				"session_key": session.SessionKey,
				"error":       err.Error(),
			})
			retrieved = nil
		}
	}

	userMessage := &entity.ChatMessage{
		Id:             uuid.New(),
		Content:        request.Message,
		Role:           RoleUser,
		ChatSessionId:  session.Id,
		RephrasedQuery: rephrasedQuery,
		CreatedAt:      time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		return nil, err
	}

	contexts := make([]string, len(retrieved))
	for i, r := range retrieved {
		contexts[i] = r.Content
	}

	return &preparedTurn{
		uow:        uow,
		session:    session,
		newSession: created,
		turns:      prompt.NewContextualBuilder(historyTurns, request.Message, contexts).BuildTurns(),
		retrieved:  retrieved,
	}, nil
}

func (cs *chatService) Send(ctx context.Context, request *dto.SendChatRequest, meta ClientMeta) (*dto.SendChatResponse, error) {
	prepared, err := cs.prepare(ctx, request, meta)
	if err != nil {
		return nil, err
	}

	reply, genErr := cs.generator.Generate(ctx, prepared.turns)
	if genErr != nil {
		cs.logger.Error("chat", "generation failed, persisting apology", map[string]interface{}{
			"session_key": prepared.session.SessionKey,
			"error":       genErr.Error(),
		})
		reply = apologyMessage
	}

	assistantMessage, persistErr := cs.persistAssistantMessage(ctx, prepared, reply)
	if persistErr != nil {
		return nil, persistErr
	}

	if genErr == nil {
		cs.maybeGenerateTitle(ctx, prepared, request.Message)
	}

	return &dto.SendChatResponse{
		SessionId:        prepared.session.SessionKey,
		MessageId:        assistantMessage.Id,
		Reply:            reply,
		RetrievedContext: toContextDTOs(prepared.retrieved),
	}, nil
}

func (cs *chatService) SendStream(ctx context.Context, request *dto.SendChatRequest, meta ClientMeta) (<-chan ChatStreamEvent, error) {
	prepared, err := cs.prepare(ctx, request, meta)
	if err != nil {
		return nil, err
	}

	out := make(chan ChatStreamEvent)
	go func() {
		defer close(out)

		chunks, err := cs.generator.GenerateStream(ctx, prepared.turns)
		if err != nil {
			cs.failStream(ctx, prepared, out, err)
			return
		}

		var full strings.Builder
		for chunk := range chunks {
			if chunk.Err != nil {
				cs.failStream(ctx, prepared, out, chunk.Err)
				return
			}
			if chunk.Text != "" {
				full.WriteString(chunk.Text)
				select {
				case out <- ChatStreamEvent{
					Type:  dto.StreamEventChunk,
					Chunk: &dto.StreamChunkEvent{Text: chunk.Text},
				}:
				case <-ctx.Done():
					// Client gone. Stop the producer, keep no partial reply.
					return
				}
			}
		}

		if ctx.Err() != nil {
			return
		}

		assistantMessage, persistErr := cs.persistAssistantMessage(ctx, prepared, full.String())
		if persistErr != nil {
			cs.emitError(ctx, out, apperror.SafeMessage(persistErr))
			return
		}

		cs.maybeGenerateTitle(ctx, prepared, request.Message)

		cs.emit(ctx, out, ChatStreamEvent{
			Type: dto.StreamEventComplete,
			Complete: &dto.StreamCompleteEvent{
				SessionId:        prepared.session.SessionKey,
				MessageId:        assistantMessage.Id,
				FullText:         full.String(),
				RetrievedContext: toContextDTOs(prepared.retrieved),
			},
		})
	}()

	return out, nil
}

// failStream keeps history consistent when generation dies mid-stream:
// the apology becomes the assistant turn, then the client gets an error
// event instead of a hanging connection.
func (cs *chatService) failStream(ctx context.Context, prepared *preparedTurn, out chan<- ChatStreamEvent, cause error) {
	cs.logger.Error("chat", "stream generation failed", map[string]interface{}{
		"session_key": prepared.session.SessionKey,
		"error":       cause.Error(),
	})

	if _, err := cs.persistAssistantMessage(ctx, prepared, apologyMessage); err != nil {
		cs.logger.Error("chat", "failed to persist apology turn", map[string]interface{}{
			"session_key": prepared.session.SessionKey,
			"error":       err.Error(),
		})
	}

	cs.emitError(ctx, out, apperror.SafeMessage(cause))
}

func (cs *chatService) emitError(ctx context.Context, out chan<- ChatStreamEvent, message string) {
	cs.emit(ctx, out, ChatStreamEvent{
		Type:  dto.StreamEventError,
		Error: &dto.StreamErrorEvent{Message: message},
	})
}

func (cs *chatService) emit(ctx context.Context, out chan<- ChatStreamEvent, event ChatStreamEvent) {
	select {
	case out <- event:
	case <-ctx.Done():
	}
}

func (cs *chatService) persistAssistantMessage(ctx context.Context, prepared *preparedTurn, text string) (*entity.ChatMessage, error) {
	assistantMessage := &entity.ChatMessage{
		Id:               uuid.New(),
		Content:          text,
		Role:             RoleAssistant,
		ChatSessionId:    prepared.session.Id,
		RetrievedContext: toEntityContext(prepared.retrieved),
		CreatedAt:        time.Now(),
	}
	if err := prepared.uow.ChatMessageRepository().Create(ctx, assistantMessage); err != nil {
		return nil, err
	}

	cs.publishEvent(ctx, events.NewChatMessageSent(prepared.session.Id, RoleAssistant, len(prepared.retrieved)))
	return assistantMessage, nil
}

func (cs *chatService) GetHistory(ctx context.Context, sessionKey string) ([]*dto.ChatHistoryMessageResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindBySessionKey(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if session == nil {
		// An unknown session simply has no history yet.
		return []*dto.ChatHistoryMessageResponse{}, nil
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ChatHistoryMessageResponse, len(messages))
	for i, msg := range messages {
		responses[i] = &dto.ChatHistoryMessageResponse{
			Id:               msg.Id,
			Role:             msg.Role,
			Content:          msg.Content,
			RetrievedContext: entityContextToDTOs(msg.RetrievedContext),
			CreatedAt:        msg.CreatedAt,
		}
	}
	return responses, nil
}

func (cs *chatService) ClearHistory(ctx context.Context, sessionKey string) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindBySessionKey(ctx, sessionKey)
	if err != nil {
		return err
	}
	if session == nil {
		return apperror.NotFound("chat session")
	}

	// Messages are wiped, the session id stays usable.
	return uow.ChatMessageRepository().DeleteByChatSessionId(ctx, session.Id)
}

// Suggest asks the model for follow-up questions a visitor might send
// next, based on what they have asked so far in the session.
func (cs *chatService) Suggest(ctx context.Context, sessionKey string) (*dto.SuggestedQuestionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindBySessionKey(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NotFound("chat session")
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	var transcript strings.Builder
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}
	if transcript.Len() == 0 {
		return nil, apperror.Validation("chat session has no messages")
	}

	reply, err := cs.generator.Generate(ctx, []*genai.Turn{{
		Role:    genai.RoleUser,
		Content: fmt.Sprintf(suggestPrompt, strings.TrimSpace(transcript.String()), suggestedQuestionsCount),
	}})
	if err != nil {
		return nil, err
	}

	questions, err := parseQuestionList(reply)
	if err != nil {
		cs.logger.Warn("chat", "suggestion reply was not a question list", map[string]interface{}{
			"session_key": sessionKey,
			"error":       err.Error(),
		})
		return nil, apperror.Upstream("genai.suggest", "Could not generate suggestions right now.", err)
	}

	return &dto.SuggestedQuestionsResponse{
		SessionId: sessionKey,
		Questions: questions,
	}, nil
}

// parseQuestionList accepts the model's JSON array, tolerating a
// markdown code fence around it.
func parseQuestionList(reply string) ([]string, error) {
	trimmed := strings.TrimSpace(reply)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var questions []string
	if err := json.Unmarshal([]byte(trimmed), &questions); err != nil {
		return nil, err
	}

	out := questions[:0]
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no questions in reply")
	}
	return out, nil
}

func (cs *chatService) getOrCreateSession(ctx context.Context, uow unitofwork.UnitOfWork, sessionKey, firstMessage string, meta ClientMeta) (*entity.ChatSession, bool, error) {
	session, err := uow.ChatSessionRepository().FindBySessionKey(ctx, sessionKey)
	if err != nil {
		return nil, false, err
	}
	if session != nil {
		return session, false, nil
	}

	session = &entity.ChatSession{
		Id:         uuid.New(),
		SessionKey: sessionKey,
		Title:      truncateTitle(firstMessage),
		ClientIP:   meta.IP,
		UserAgent:  meta.UserAgent,
		CreatedAt:  time.Now(),
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// maybeGenerateTitle swaps the lazily created session's placeholder
// title for a model generated one after the first exchange. Best
// effort: the truncated first message stays when anything fails.
func (cs *chatService) maybeGenerateTitle(ctx context.Context, prepared *preparedTurn, firstMessage string) {
	if !prepared.newSession {
		return
	}

	reply, err := cs.generator.Generate(ctx, []*genai.Turn{{
		Role:    genai.RoleUser,
		Content: fmt.Sprintf(sessionTitlePrompt, firstMessage),
	}})
	if err != nil {
		cs.logger.Warn("chat", "title generation failed, keeping fallback", map[string]interface{}{
			"session_key": prepared.session.SessionKey,
			"error":       err.Error(),
		})
		return
	}

	title := truncateTitle(strings.Trim(strings.TrimSpace(reply), `"`))
	if title == "" {
		return
	}

	prepared.session.Title = title
	if err := prepared.uow.ChatSessionRepository().Update(ctx, prepared.session); err != nil {
		cs.logger.Warn("chat", "session title update failed", map[string]interface{}{
			"session_key": prepared.session.SessionKey,
			"error":       err.Error(),
		})
	}
}

func (cs *chatService) publishEvent(ctx context.Context, event events.Event) {
	if cs.publisher == nil {
		return
	}
	if err := cs.publisher.Publish(ctx, event); err != nil {
		cs.logger.Warn("chat", "event publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func toModelRole(role string) string {
	if role == RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func truncateTitle(message string) string {
	title := strings.TrimSpace(message)
	if len(title) <= maxSessionTitleLen {
		return title
	}
	// Back off to a rune boundary so the stored title stays valid UTF-8.
	cut := maxSessionTitleLen
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return title[:cut]
}

func toEntityContext(results []search.Result) []entity.RetrievedChunk {
	if len(results) == 0 {
		return nil
	}
	out := make([]entity.RetrievedChunk, len(results))
	for i, r := range results {
		out[i] = entity.RetrievedChunk{
			DocumentId:    r.DocumentId,
			DocumentTitle: r.DocumentTitle,
			ChunkIndex:    r.ChunkIndex,
			Score:         r.Score,
			Content:       r.Content,
		}
	}
	return out
}

func toContextDTOs(results []search.Result) []dto.RetrievedContextDTO {
	if len(results) == 0 {
		return nil
	}
	out := make([]dto.RetrievedContextDTO, len(results))
	for i, r := range results {
		out[i] = dto.RetrievedContextDTO{
			DocumentId:    r.DocumentId,
			DocumentTitle: r.DocumentTitle,
			ChunkIndex:    r.ChunkIndex,
			Score:         r.Score,
			Content:       r.Content,
		}
	}
	return out
}

func entityContextToDTOs(chunks []entity.RetrievedChunk) []dto.RetrievedContextDTO {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]dto.RetrievedContextDTO, len(chunks))
	for i, c := range chunks {
		out[i] = dto.RetrievedContextDTO{
			DocumentId:    c.DocumentId,
			DocumentTitle: c.DocumentTitle,
			ChunkIndex:    c.ChunkIndex,
			Score:         c.Score,
			Content:       c.Content,
		}
	}
	return out
}
