package service

import (
	"context"
	"sort"
	"strings"

	"portfolio-ai-be/internal/entity"
	"portfolio-ai-be/internal/repository/contract"
	"portfolio-ai-be/internal/repository/specification"
	"portfolio-ai-be/internal/repository/unitofwork"
	"portfolio-ai-be/pkg/genai"

	"github.com/google/uuid"
)

// In-memory repository fakes. They interpret the handful of
// specifications the services actually use.

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeEmbeddingProvider struct {
	vectors map[string][]float32 // per-text override
	fixed   []float32
	err     error
	calls   int
}

func (p *fakeEmbeddingProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if v, ok := p.vectors[text]; ok {
		return v, nil
	}
	if p.fixed != nil {
		return p.fixed, nil
	}
	return []float32{1, 0}, nil
}

type fakeGenerator struct {
	reply      string
	err        error
	titleReply string
	titleErr   error
	titleCalls int
	streamed   []string
	streamErr  error
}

func (g *fakeGenerator) Generate(ctx context.Context, turns []*genai.Turn) (string, error) {
	if len(turns) == 1 && strings.HasPrefix(turns[0].Content, "Generate a concise title") {
		g.titleCalls++
		// A blank reply makes the service keep its fallback title.
		return g.titleReply, g.titleErr
	}
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, turns []*genai.Turn) (<-chan genai.StreamChunk, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make(chan genai.StreamChunk)
	go func() {
		defer close(out)
		for _, text := range g.streamed {
			out <- genai.StreamChunk{Text: text}
		}
		final := genai.StreamChunk{Done: true}
		if g.streamErr != nil {
			final.Err = g.streamErr
		}
		out <- final
	}()
	return out, nil
}

type fakeDocumentRepository struct {
	documents map[uuid.UUID]*entity.Document
}

func newFakeDocumentRepository() *fakeDocumentRepository {
	return &fakeDocumentRepository{documents: make(map[uuid.UUID]*entity.Document)}
}

func (r *fakeDocumentRepository) Create(ctx context.Context, document *entity.Document) error {
	copied := *document
	r.documents[document.Id] = &copied
	return nil
}

func (r *fakeDocumentRepository) Update(ctx context.Context, document *entity.Document) error {
	copied := *document
	r.documents[document.Id] = &copied
	return nil
}

func (r *fakeDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if doc, ok := r.documents[id]; ok {
		doc.IsDeleted = true
	}
	return nil
}

func (r *fakeDocumentRepository) DeleteUnscoped(ctx context.Context, id uuid.UUID) error {
	delete(r.documents, id)
	return nil
}

func (r *fakeDocumentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			doc, found := r.documents[byID.ID]
			if !found || doc.IsDeleted {
				return nil, nil
			}
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

// FindAll honors TitleContains and Pagination; ordering is always
// newest-first as the service requests.
func (r *fakeDocumentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, doc := range r.documents {
		if doc.IsDeleted {
			continue
		}
		copied := *doc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.TitleContains:
			filtered := out[:0]
			for _, doc := range out {
				if strings.Contains(strings.ToLower(doc.Title), strings.ToLower(s.Query)) {
					filtered = append(filtered, doc)
				}
			}
			out = filtered
		case specification.Pagination:
			if s.Offset >= len(out) {
				out = nil
				break
			}
			out = out[s.Offset:]
			if s.Limit < len(out) {
				out = out[:s.Limit]
			}
		}
	}
	return out, nil
}

func (r *fakeDocumentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.documents)), nil
}

type fakeChunkRepository struct {
	chunks    []*entity.DocumentChunk
	documents *fakeDocumentRepository
	findErr   error
}

func (r *fakeChunkRepository) Create(ctx context.Context, chunk *entity.DocumentChunk) error {
	copied := *chunk
	r.chunks = append(r.chunks, &copied)
	return nil
}

func (r *fakeChunkRepository) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	for _, chunk := range chunks {
		copied := *chunk
		r.chunks = append(r.chunks, &copied)
	}
	return nil
}

func (r *fakeChunkRepository) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	kept := r.chunks[:0]
	for _, chunk := range r.chunks {
		if chunk.DocumentId != documentId {
			kept = append(kept, chunk)
		}
	}
	r.chunks = kept
	return nil
}

func (r *fakeChunkRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error) {
	return nil, nil
}

func (r *fakeChunkRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	return r.chunks, nil
}

func (r *fakeChunkRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	for _, spec := range specs {
		if byDoc, ok := spec.(specification.ByDocumentID); ok {
			var n int64
			for _, chunk := range r.chunks {
				if chunk.DocumentId == byDoc.DocumentID {
					n++
				}
			}
			return n, nil
		}
	}
	return int64(len(r.chunks)), nil
}

func (r *fakeChunkRepository) FindAllWithTitles(ctx context.Context) ([]*contract.ChunkWithDocument, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*contract.ChunkWithDocument
	for _, chunk := range r.chunks {
		doc, ok := r.documents.documents[chunk.DocumentId]
		if !ok || doc.IsDeleted {
			continue
		}
		out = append(out, &contract.ChunkWithDocument{Chunk: chunk, DocumentTitle: doc.Title})
	}
	return out, nil
}

type fakeChatSessionRepository struct {
	sessions map[string]*entity.ChatSession
}

func newFakeChatSessionRepository() *fakeChatSessionRepository {
	return &fakeChatSessionRepository{sessions: make(map[string]*entity.ChatSession)}
}

func (r *fakeChatSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	copied := *session
	r.sessions[session.SessionKey] = &copied
	return nil
}

func (r *fakeChatSessionRepository) Update(ctx context.Context, session *entity.ChatSession) error {
	copied := *session
	r.sessions[session.SessionKey] = &copied
	return nil
}

func (r *fakeChatSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	for key, session := range r.sessions {
		if session.Id == id {
			delete(r.sessions, key)
		}
	}
	return nil
}

func (r *fakeChatSessionRepository) FindBySessionKey(ctx context.Context, sessionKey string) (*entity.ChatSession, error) {
	session, ok := r.sessions[sessionKey]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *fakeChatSessionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	return nil, nil
}

func (r *fakeChatSessionRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	return nil, nil
}

func (r *fakeChatSessionRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.sessions)), nil
}

type fakeChatMessageRepository struct {
	messages []*entity.ChatMessage
}

func (r *fakeChatMessageRepository) Create(ctx context.Context, message *entity.ChatMessage) error {
	copied := *message
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *fakeChatMessageRepository) Update(ctx context.Context, message *entity.ChatMessage) error {
	return nil
}

func (r *fakeChatMessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (r *fakeChatMessageRepository) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	kept := r.messages[:0]
	for _, msg := range r.messages {
		if msg.ChatSessionId != sessionId {
			kept = append(kept, msg)
		}
	}
	r.messages = kept
	return nil
}

func (r *fakeChatMessageRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	return nil, nil
}

// FindAll honors ByChatSessionID and preserves insertion order, which
// matches ordering by created_at for these tests.
func (r *fakeChatMessageRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var sessionId *uuid.UUID
	for _, spec := range specs {
		if bySession, ok := spec.(specification.ByChatSessionID); ok {
			id := bySession.ChatSessionID
			sessionId = &id
		}
	}

	var out []*entity.ChatMessage
	for _, msg := range r.messages {
		if sessionId != nil && msg.ChatSessionId != *sessionId {
			continue
		}
		copied := *msg
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeChatMessageRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.messages)), nil
}

type fakeUnitOfWork struct {
	documentRepo *fakeDocumentRepository
	chunkRepo    *fakeChunkRepository
	sessionRepo  *fakeChatSessionRepository
	messageRepo  *fakeChatMessageRepository

	begins    int
	commits   int
	rollbacks int
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { u.begins++; return nil }
func (u *fakeUnitOfWork) Commit() error                   { u.commits++; return nil }
func (u *fakeUnitOfWork) Rollback() error                 { u.rollbacks++; return nil }

func (u *fakeUnitOfWork) DocumentRepository() contract.DocumentRepository {
	return u.documentRepo
}

func (u *fakeUnitOfWork) DocumentChunkRepository() contract.DocumentChunkRepository {
	return u.chunkRepo
}

func (u *fakeUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return u.sessionRepo
}

func (u *fakeUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return u.messageRepo
}

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func newFakeFactory() *fakeFactory {
	documentRepo := newFakeDocumentRepository()
	return &fakeFactory{
		uow: &fakeUnitOfWork{
			documentRepo: documentRepo,
			chunkRepo:    &fakeChunkRepository{documents: documentRepo},
			sessionRepo:  newFakeChatSessionRepository(),
			messageRepo:  &fakeChatMessageRepository{},
		},
	}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}
