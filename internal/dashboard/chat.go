package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// ChatFallback is appended when an answer cannot be fetched.
const ChatFallback = "Sorry, I couldn't get a response."

type TranscriptMode string

const (
	TranscriptGlobal TranscriptMode = "global"
	TranscriptKV     TranscriptMode = "kv"
)

func (m TranscriptMode) chatMode() (domain.ChatMode, bool) {
	switch m {
	case TranscriptGlobal:
		return domain.ChatGeneral, true
	case TranscriptKV:
		return domain.ChatKeyValue, true
	default:
		return "", false
	}
}

type Message struct {
	Role string
	Text string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRelay keeps one transcript per mode. Requests are never retried.
type ChatRelay struct {
	source DataSource
	logger *slog.Logger

	mu          sync.Mutex
	transcripts map[TranscriptMode][]Message
}

func NewChatRelay(source DataSource, logger *slog.Logger) *ChatRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatRelay{
		source:      source,
		logger:      logger,
		transcripts: map[TranscriptMode][]Message{},
	}
}

// Send appends the question at once, then the answer or ChatFallback. The returned error
// only reports input rejected before sending.
func (c *ChatRelay) Send(ctx context.Context, mode TranscriptMode, documentID, query string) (string, error) {
	chatMode, ok := mode.chatMode()
	if !ok {
		return "", fmt.Errorf("%w: unsupported chat mode %q", ErrValidation, mode)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: message is empty", ErrValidation)
	}
	if strings.TrimSpace(documentID) == "" {
		return "", fmt.Errorf("%w: select a document first", ErrValidation)
	}

	c.append(mode, Message{Role: RoleUser, Text: query})
	answer, err := c.source.Chat(ctx, chatMode, documentID, query)
	if err != nil || strings.TrimSpace(answer) == "" {
		c.logger.Warn("dashboard_chat_failed", "mode", mode, "document_id", documentID, "error", err)
		answer = ChatFallback
	}
	c.append(mode, Message{Role: RoleAssistant, Text: answer})
	return answer, nil
}

func (c *ChatRelay) Transcript(mode TranscriptMode) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcripts[mode]...)
}

func (c *ChatRelay) append(mode TranscriptMode, msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcripts[mode] = append(c.transcripts[mode], msg)
}
