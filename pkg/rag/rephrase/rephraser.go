package rephrase

import (
	"context"
	"fmt"
	"strings"

	"portfolio-ai-be/internal/pkg/logger"
	"portfolio-ai-be/pkg/genai"
)

// Rephraser rewrites follow-up questions into standalone queries so
// retrieval does not miss context carried only by the conversation
// ("what about his backend work?" -> explicit subject).
type Rephraser struct {
	generator genai.Generator
	logger    logger.ILogger
}

func NewRephraser(generator genai.Generator, log logger.ILogger) *Rephraser {
	return &Rephraser{
		generator: generator,
		logger:    log,
	}
}

// Rephrase returns a standalone version of query. Without history, or
// when the model call fails, the original query is returned unchanged.
func (r *Rephraser) Rephrase(ctx context.Context, history []*genai.Turn, query string) string {
	if len(history) == 0 {
		return query
	}

	var conversation strings.Builder
	for _, turn := range history {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		conversation.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
	}

	instruction := fmt.Sprintf(
		"Given the conversation below, rewrite the final question as a single standalone question that can be understood without the conversation. Reply with only the rewritten question.\n\nConversation:\n%s\nFinal question: %s",
		conversation.String(),
		query,
	)

	rewritten, err := r.generator.Generate(ctx, []*genai.Turn{
		{Content: instruction, Role: genai.RoleUser},
	})
	if err != nil {
		r.logger.Warn("rephrase", "query rephrasing failed, using original", map[string]interface{}{
			"error": err.Error(),
		})
		return query
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query
	}
	return rewritten
}
