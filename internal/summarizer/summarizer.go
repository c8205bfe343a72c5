// Package summarizer generates handoff summaries and spoken transfer
// scripts from call transcripts. The upstream model is treated as slow
// and unreliable: callers must be prepared for errors and timeouts and
// fall back to canned text.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Gateway is the text-generation contract consumed by the orchestrator
// and the HTTP surface. Implementations never touch session state.
type Gateway interface {
	Summarize(ctx context.Context, transcript string, callerInfo map[string]string) (string, error)
	Script(ctx context.Context, summary, agentB, callerName string) (string, error)
}

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	model          = "meta-llama/llama-3.1-8b-instruct"

	summarizeTimeout = 30 * time.Second
	scriptTimeout    = 20 * time.Second
)

const summarizeSystemPrompt = `You are an expert call center supervisor creating handoff summaries for warm transfers.
Create a concise, professional summary that includes:
1. Customer's main concern/request
2. Key details discussed
3. Current status/progress
4. Recommended next steps
5. Customer sentiment/mood

Keep it under 150 words for quick verbal handoff.`

const scriptSystemPrompt = "You create natural conversation scripts for call center warm transfers. Make them sound conversational and professional."

// Client calls an OpenAI-compatible chat-completion endpoint (OpenRouter
// by default).
type Client struct {
	api *openai.Client
}

// NewClient builds a gateway client. baseURL overrides the OpenRouter
// endpoint; tests point it at a local stub server.
func NewClient(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cfg.BaseURL = baseURL
	return &Client{api: openai.NewClientWithConfig(cfg)}
}

func (c *Client) Summarize(ctx context.Context, transcript string, callerInfo map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	var b strings.Builder
	if len(callerInfo) > 0 {
		fmt.Fprintf(&b, "Caller: %s\n", valueOr(callerInfo, "name", "Unknown"))
		fmt.Fprintf(&b, "Phone: %s\n", valueOr(callerInfo, "phone", "Unknown"))
		fmt.Fprintf(&b, "Issue: %s\n", valueOr(callerInfo, "issue", "General inquiry"))
	}
	fmt.Fprintf(&b, "Call Transcript:\n%s\n\nPlease provide a comprehensive warm transfer summary for the next agent.", transcript)

	return c.complete(ctx, summarizeSystemPrompt, b.String(), 0.3, 200)
}

func (c *Client) Script(ctx context.Context, summary, agentB, callerName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	prompt := fmt.Sprintf(`Create a natural, conversational script for Agent A to read aloud to Agent B (%s) during a warm call transfer.

Customer: %s
Call Summary: %s

Requirements:
- Natural spoken language (not robotic)
- 45-60 seconds reading time
- Include key information from summary
- End with smooth handoff
- Sound professional but friendly
- Direct speech for Agent A to read

Format as a script that Agent A will speak.`, agentB, callerName, summary)

	return c.complete(ctx, scriptSystemPrompt, prompt, 0.4, 300)
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func valueOr(m map[string]string, key, fallback string) string {
	if v := m[key]; v != "" {
		return v
	}
	return fallback
}
