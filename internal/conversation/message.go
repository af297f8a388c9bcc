// Package conversation sequences user and assistant turns for one chat session.
package conversation

import (
	"fmt"
	"slices"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Role identifies who authored a message.
type Role string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a reply produced by the assistant.
	RoleAssistant Role = "assistant"
)

func (r Role) String() string {
	return string(r)
}

// Message is one entry of the conversation log. Messages are never modified once appended.
type Message struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Greeting is the assistant message every session starts with.
const Greeting = "您好！我是界面操作助手。我可以幫助您了解如何使用這個複雜的數據分析平台。請問有什麼我可以協助您的嗎？"

var quickActions = []string{
	"如何上傳數據？",
	"怎麼創建圖表？",
	"數據篩選方法",
}

// QuickActions returns the shortcut labels offered to the user, in display order.
func QuickActions() []string {
	return slices.Clone(quickActions)
}

// IsQuickAction reports whether label is one of the offered shortcuts.
func IsQuickAction(label string) bool {
	return slices.Contains(quickActions, label)
}

// newMessageID returns an ID in format MSG-{seq}-{nanoid(10)}.
// The sequence prefix keeps IDs unique within a session even if the random part repeats.
func newMessageID(seq int) string {
	id, err := gonanoid.New(10)
	if err != nil {
		return fmt.Sprintf("MSG-%d", seq)
	}
	return fmt.Sprintf("MSG-%d-%s", seq, id)
}
