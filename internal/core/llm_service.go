package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ois.ut.ee/course-advisor/internal/config"
)

var ErrMissingAPIKey = errors.New("API key is not configured")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the outgoing message list at the completion
// service boundary. Roles form a closed set; nothing else crosses the wire.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage carries the token accounting exposed by a non-streaming completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// LLMService talks to an OpenAI-compatible API for chat completions and
// embeddings. The chat client carries no timeout on purpose: a completion is
// allowed to take as long as it takes, and a hang hangs the turn.
type LLMService struct {
	baseURL     string
	apiKey      string
	chatModel   string
	embedModel  string
	chatClient  *http.Client
	embedClient *http.Client
}

func NewLLMService() *LLMService {
	return &LLMService{
		baseURL:     strings.TrimSuffix(config.AppConfig.LLMBaseURL, "/"),
		apiKey:      config.AppConfig.APIKey,
		chatModel:   config.AppConfig.ChatModel,
		embedModel:  config.AppConfig.EmbeddingModel,
		chatClient:  &http.Client{},
		embedClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Embed returns one embedding vector per input text, in input order. The
// vectors must match the catalog's dimension; the caller checks that.
func (s *LLMService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body := struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}{Model: s.embedModel, Input: texts}

	payload, err := s.post(ctx, s.embedClient, "/embeddings", body)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// StreamChatCompletion issues a streaming completion and concatenates the
// text deltas into the returned content. onDelta, when non-nil, observes each
// delta as it arrives.
func (s *LLMService) StreamChatCompletion(ctx context.Context, messages []ChatMessage, onDelta func(string)) (string, error) {
	if s.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body := struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}{Model: s.chatModel, Messages: messages, Stream: true}

	resp, err := s.do(ctx, s.chatClient, "/chat/completions", body)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("failed to parse stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("completion stream broke: %w", err)
	}
	return content.String(), nil
}

// ChatCompletionUsage issues a non-streaming completion with the identical
// message list purely to obtain token counts. Under sampling its generation
// may differ from the streamed one; only the counts are used.
func (s *LLMService) ChatCompletionUsage(ctx context.Context, messages []ChatMessage) (Usage, error) {
	if s.apiKey == "" {
		return Usage{}, ErrMissingAPIKey
	}

	body := struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
	}{Model: s.chatModel, Messages: messages}

	payload, err := s.post(ctx, s.chatClient, "/chat/completions", body)
	if err != nil {
		return Usage{}, fmt.Errorf("usage accounting request failed: %w", err)
	}

	var out struct {
		Usage Usage `json:"usage"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return Usage{}, fmt.Errorf("failed to parse usage response: %w", err)
	}
	return out.Usage, nil
}

func (s *LLMService) post(ctx context.Context, client *http.Client, path string, body any) ([]byte, error) {
	resp, err := s.do(ctx, client, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *LLMService) do(ctx context.Context, client *http.Client, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s: %s", path, resp.Status, strings.TrimSpace(string(detail)))
	}
	return resp, nil
}
