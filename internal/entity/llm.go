package entity

import "iter"

type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatRequest is what callers hand to the model client.
type ChatRequest struct {
	Messages    []ChatMessage
	Model       string
	Temperature float64
	MaxTokens   int
}

// ChatCompletionPayload is the OpenAI-compatible wire body.
type ChatCompletionPayload struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Content string `json:"content"`
	} `json:"choices"`
}

// ChatStreamEvent is one decoded `data:` payload of a streamed completion.
type ChatStreamEvent struct {
	Choices []ChatStreamChoice `json:"choices"`
}

type ChatStreamChoice struct {
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason,omitempty"`
}

type ChatDelta struct {
	Content string `json:"content"`
}

// FragmentStream is a live, single-use sequence of generated text fragments.
// Stopping the iteration early or calling Close releases the connection.
type FragmentStream interface {
	Fragments() iter.Seq2[string, error]
	Close() error
}
