package prompt

import (
	"fmt"
	"strings"

	"portfolio-ai-be/pkg/genai"
)

// ContextualBuilder assembles the model input for one chat turn:
// prior history, a numbered block of retrieved portfolio excerpts, and
// the user's question with answering instructions.
type ContextualBuilder struct {
	history  []*genai.Turn
	query    string
	contexts []string
}

func NewContextualBuilder(history []*genai.Turn, query string, contexts []string) *ContextualBuilder {
	return &ContextualBuilder{
		history:  history,
		query:    query,
		contexts: contexts,
	}
}

// Build renders the final user turn. With no retrieved context the
// query passes through untouched.
func (b *ContextualBuilder) Build() string {
	if len(b.contexts) == 0 {
		return b.query
	}

	var contextBlock strings.Builder
	for i, c := range b.contexts {
		contextBlock.WriteString(fmt.Sprintf("%d. %s\n", i+1, c))
	}

	return fmt.Sprintf(
		"%s\n\nContext from portfolio documents:\n%s\nPlease provide a helpful response based on the portfolio information and context provided.",
		b.query,
		contextBlock.String(),
	)
}

// BuildTurns returns the full conversation to send: history with empty
// entries dropped, followed by the contextualized user turn.
func (b *ContextualBuilder) BuildTurns() []*genai.Turn {
	turns := make([]*genai.Turn, 0, len(b.history)+1)
	for _, turn := range b.history {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		turns = append(turns, turn)
	}
	turns = append(turns, &genai.Turn{
		Content: b.Build(),
		Role:    genai.RoleUser,
	})
	return turns
}
