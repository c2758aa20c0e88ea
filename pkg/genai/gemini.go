package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"portfolio-ai-be/internal/apperror"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiChatParts struct {
	Text string `json:"text"`
}

type GeminiChatContent struct {
	Parts []*GeminiChatParts `json:"parts"`
	Role  string             `json:"role"`
}

type GeminiChatRequest struct {
	Contents []*GeminiChatContent `json:"contents"`
}

type GeminiChatCandidate struct {
	Content *GeminiChatContent `json:"content"`
}

type GeminiChatResponse struct {
	Candidates []*GeminiChatCandidate `json:"candidates"`
}

type GeminiGenerator struct {
	ApiKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	return &GeminiGenerator{
		ApiKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
		// No client timeout here, streams can legitimately run long.
		// Cancellation comes from the request context.
		client: &http.Client{},
	}
}

func buildRequest(turns []*Turn) *GeminiChatRequest {
	chatContents := make([]*GeminiChatContent, 0, len(turns))
	for _, turn := range turns {
		chatContents = append(chatContents, &GeminiChatContent{
			Parts: []*GeminiChatParts{
				{
					Text: turn.Content,
				},
			},
			Role: turn.Role,
		})
	}
	return &GeminiChatRequest{
		Contents: chatContents,
	}
}

func (g *GeminiGenerator) post(ctx context.Context, endpoint string, turns []*Turn) (*http.Response, error) {
	payloadJson, err := json.Marshal(buildRequest(turns))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		bytes.NewBuffer(payloadJson),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("x-goog-api-key", g.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, apperror.Upstream("genai.generate", "The language model is unavailable.", err)
	}

	if res.StatusCode != http.StatusOK {
		resBody, _ := io.ReadAll(res.Body)
		res.Body.Close()
		return nil, apperror.Upstream(
			"genai.generate",
			"The language model rejected the request.",
			fmt.Errorf("gemini: status %d, body %s", res.StatusCode, string(resBody)),
		)
	}

	return res, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, turns []*Turn) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, g.Model)

	res, err := g.post(ctx, endpoint, turns)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", apperror.Upstream("genai.generate", "The language model returned an invalid response.", err)
	}

	var geminiRes GeminiChatResponse
	if err := json.Unmarshal(resBody, &geminiRes); err != nil {
		return "", apperror.Upstream("genai.generate", "The language model returned an invalid response.", err)
	}

	text := extractText(&geminiRes)
	if text == "" {
		return "", apperror.Upstream(
			"genai.generate",
			"The language model returned an empty response.",
			fmt.Errorf("gemini: no candidates in response"),
		)
	}

	return text, nil
}

func (g *GeminiGenerator) GenerateStream(ctx context.Context, turns []*Turn) (<-chan StreamChunk, error) {
	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", g.BaseURL, g.Model)

	res, err := g.post(ctx, endpoint, turns)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer res.Body.Close()

		scanner := bufio.NewScanner(res.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" || data == "[DONE]" {
				continue
			}

			var geminiRes GeminiChatResponse
			if err := json.Unmarshal([]byte(data), &geminiRes); err != nil {
				// Skip malformed keepalive frames, fail only on scanner errors.
				continue
			}

			if text := extractText(&geminiRes); text != "" {
				select {
				case out <- StreamChunk{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}

		final := StreamChunk{Done: true}
		if err := scanner.Err(); err != nil {
			final.Err = apperror.Upstream("genai.stream", "The language model stream was interrupted.", err)
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

func extractText(res *GeminiChatResponse) string {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}
