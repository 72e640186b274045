package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// knowledgeGenerationFailedTitle is the sentinel title returned whenever
// summarization can't run or fails, whatever the cause (missing API key,
// network failure, unparseable response).
const knowledgeGenerationFailedTitle = "Knowledge Generation Failed"

// Summarizer turns a completed task and its report into a draft knowledge
// item (title, content).
type Summarizer interface {
	Summarize(ctx context.Context, taskDetails, reportResult string) (title, content string)
}

// LLMSummarizer is a thin HTTP client against an OpenAI-compatible
// chat-completions endpoint.
type LLMSummarizer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewLLMSummarizer builds a summarizer. An empty apiKey produces a
// summarizer whose Summarize always returns the failure sentinel, matching
// the reference implementation's no-client-configured behavior.
func NewLLMSummarizer(baseURL, apiKey, model string, timeout time.Duration) *LLMSummarizer {
	return &LLMSummarizer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const summaryPrompt = `Based on the following task description and its successful result, please generate a concise and reusable knowledge item.

The output should be in two parts, separated by "---":
1. A short, clear title for the knowledge item.
2. The main content of the knowledge, written in a way that is helpful for others facing a similar task.

---
Task Description:
%s

---
Successful Result/Report:
%s
---`

// Summarize asks the LLM to turn taskDetails/reportResult into (title,
// content), split on the first "---" in the response. A failure — missing
// configuration, a request error, or an empty response — returns the
// knowledge-generation-failed sentinel rather than propagating an error, so
// a flaky summarizer never blocks report evaluation. A response with no
// "---" yields the title "Task Summary" with the whole trimmed response as
// content.
func (s *LLMSummarizer) Summarize(ctx context.Context, taskDetails, reportResult string) (string, string) {
	if s.apiKey == "" {
		return knowledgeGenerationFailedTitle, "LLM client not configured."
	}

	prompt := fmt.Sprintf(summaryPrompt, taskDetails, reportResult)
	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.5,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return knowledgeGenerationFailedTitle, fmt.Sprintf("Could not summarize task. Error: %v", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 20 * time.Second

	var completion chatCompletionResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("llm endpoint returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("llm endpoint returned %d: %s", resp.StatusCode, string(raw)))
		}
		return json.Unmarshal(raw, &completion)
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return knowledgeGenerationFailedTitle, fmt.Sprintf("Could not summarize task. Error: %v", err)
	}
	if len(completion.Choices) == 0 {
		return knowledgeGenerationFailedTitle, "Could not summarize task. Error: empty response from model."
	}

	summary := completion.Choices[0].Message.Content
	if idx := strings.Index(summary, "---"); idx >= 0 {
		title := strings.TrimSpace(summary[:idx])
		content := strings.TrimSpace(summary[idx+len("---"):])
		return title, content
	}
	return "Task Summary", strings.TrimSpace(summary)
}
