package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/futig/report-writer/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const mockFragmentRunes = 12

const mockOutline = `一、概述
二、现状分析
三、存在的问题
四、对策建议
五、结论与下一步工作`

const mockBody = `本部分为离线演示内容（MOCK）。在真实部署中，这里将由大模型根据报告主题、大纲与引用资料逐段生成正文。
当前内容用于验证流式输出、分节并发生成与前端拼接流程是否正常工作，不代表任何真实数据或结论。`

// transformPrefixes lets the mock echo text back for polish/simplify/expand requests.
var transformPrefixes = []string{"请润色以下文本：\n\n", "请精简以下文本：\n\n", "请扩充以下文本：\n\n"}

// MockConnector answers chat requests with canned text for local runs.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

// ChatCompletion echoes transform input or returns a canned outline.
func (m *MockConnector) ChatCompletion(ctx context.Context, req entity.ChatRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] chat completion", zap.Int("message_count", len(req.Messages)))

	user := lastUserMessage(req.Messages)
	for _, prefix := range transformPrefixes {
		if rest, ok := strings.CutPrefix(user, prefix); ok {
			return rest, nil
		}
	}
	return mockOutline, nil
}

// StreamChat renders the canned body as an event stream and decodes it with
// the same parser the real connector uses.
func (m *MockConnector) StreamChat(ctx context.Context, req entity.ChatRequest) (entity.FragmentStream, error) {
	ctxzap.Info(ctx, "[MOCK] opening chat stream", zap.Int("max_tokens", req.MaxTokens))

	var buf bytes.Buffer
	runes := []rune(mockBody)
	for start := 0; start < len(runes); start += mockFragmentRunes {
		end := min(start+mockFragmentRunes, len(runes))

		var event entity.ChatStreamEvent
		event.Choices = append(event.Choices, entity.ChatStreamChoice{Delta: entity.ChatDelta{Content: string(runes[start:end])}})
		line, err := json.Marshal(event)
		if err != nil {
			return nil, err
		}
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteString("\n\n")
	}
	buf.WriteString("data: [DONE]\n\n")

	return NewChatStream(io.NopCloser(&buf)), nil
}

func lastUserMessage(messages []entity.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == entity.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
