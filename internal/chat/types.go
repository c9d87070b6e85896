package chat

import (
	"context"
	"strings"
	"time"
)

// Role tags one side of the conversation window.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType discriminates the content-part variants of a multi-modal message.
type PartType string

const (
	PartTypeText  PartType = "text"
	PartTypeImage PartType = "image"
	PartTypeFile  PartType = "file"
)

// ContentPart is one unit of a multi-modal message body.
type ContentPart struct {
	Type PartType

	Text string // PartTypeText

	Image string // PartTypeImage: media URL

	Data     string // PartTypeFile: data reference (URL)
	MIMEType string // PartTypeFile
}

// ChatMessage is one role-tagged turn of the conversation window. Plain text
// collapses to the Text field; Parts is only populated when attachments are
// present, and is then never empty.
type ChatMessage struct {
	Role  Role
	Text  string
	Parts []ContentPart
}

// FormatContent builds the content of a ChatMessage from text and media
// URLs. With no media the text stays a bare string; otherwise images come
// first, then videos as file references, then the text if non-blank.
func FormatContent(text string, images, videos []string) (string, []ContentPart) {
	if len(images) == 0 && len(videos) == 0 {
		return text, nil
	}

	parts := make([]ContentPart, 0, len(images)+len(videos)+1)
	for _, url := range images {
		parts = append(parts, ContentPart{Type: PartTypeImage, Image: url})
	}
	for _, url := range videos {
		parts = append(parts, ContentPart{Type: PartTypeFile, Data: url, MIMEType: "video/mp4"})
	}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, ContentPart{Type: PartTypeText, Text: text})
	}

	return "", parts
}

// Message is a platform message snapshot, the gateway-neutral form consumed
// by the assembler and orchestrator.
type Message struct {
	ID         string
	ChannelID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	AuthorBot  bool
	Content    string
	Timestamp  time.Time

	Images []string // image attachment and embed URLs
	Videos []string // video attachment and embed URLs

	// Rejected marks messages flagged with the reject reaction; the
	// assembler drops them from the window.
	Rejected bool
}

// ChannelKind is the closed set of channel capability variants.
type ChannelKind int

const (
	KindText ChannelKind = iota
	KindThread
	KindVoice
	KindDM
	KindOther
)

// IsTextBased reports whether messages can be sent to the channel.
func (k ChannelKind) IsTextBased() bool {
	switch k {
	case KindText, KindThread, KindDM, KindVoice:
		return true
	}
	return false
}

// IsThread reports whether the channel is a thread.
func (k ChannelKind) IsThread() bool {
	return k == KindThread
}

// CanSendTyping reports whether a typing indicator is supported.
func (k ChannelKind) CanSendTyping() bool {
	return k.IsTextBased()
}

// CanLockSends reports whether the channel carries write-permission
// overwrites the orchestrator can toggle.
func (k ChannelKind) CanLockSends() bool {
	return k == KindText
}

// ChannelInfo identifies a channel and its capability variant.
type ChannelInfo struct {
	ID      string
	GuildID string
	Name    string
	Kind    ChannelKind
}

// Gateway is the narrow contract the core needs from the chat platform. The
// orchestrator and assembler depend only on these operation signatures.
type Gateway interface {
	// BotUserID returns the bot's own user identifier.
	BotUserID() string

	// Channel resolves a channel identifier to its info.
	Channel(ctx context.Context, channelID string) (ChannelInfo, error)

	// History returns up to limit most-recent messages, newest first.
	History(ctx context.Context, channelID string, limit int) ([]Message, error)

	// MessagesAfter returns up to limit messages posted after the given
	// message identifier.
	MessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]Message, error)

	// Send posts a message to a channel.
	Send(ctx context.Context, channelID, content string) (Message, error)

	// Reply posts a message referencing an existing one.
	Reply(ctx context.Context, to Message, content string) (Message, error)

	// Delete removes a message.
	Delete(ctx context.Context, channelID, messageID string) error

	// DeleteAfter schedules a best-effort delayed delete.
	DeleteAfter(channelID, messageID string, delay time.Duration)

	// CreateThread starts a private thread anchored to a message.
	CreateThread(ctx context.Context, from Message, name string) (ChannelInfo, error)

	// ThreadStarter returns the message a thread was started from, if any.
	ThreadStarter(ctx context.Context, threadID string) (Message, bool, error)

	// SetSendLock suspends or restores general write permission on a
	// channel.
	SetSendLock(ctx context.Context, channelID, guildID string, locked bool) error

	// MemberName resolves a user or role identifier to a display name via
	// the guild roster.
	MemberName(ctx context.Context, guildID, userID string) (string, error)

	// UserIDByName looks a display name up in the known-users cache.
	// Best-effort reverse index; collisions resolve arbitrarily.
	UserIDByName(name string) (string, bool)

	// Typing shows a typing indicator where the channel supports it.
	Typing(ctx context.Context, channelID string) error
}

// Querier sends an assembled conversation window to a language model and
// returns the generated text.
type Querier interface {
	Query(ctx context.Context, system string, window []ChatMessage) (string, error)
}

// PromptSource supplies the system prompt for a generation call. It is read
// fresh on every call.
type PromptSource interface {
	SystemPrompt() (string, error)
}
