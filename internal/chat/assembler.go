package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Assembler turns recent channel history into an ordered conversation
// window ready for model consumption.
type Assembler struct {
	gw     Gateway
	logger zerolog.Logger
}

// NewAssembler creates an assembler over a gateway.
func NewAssembler(gw Gateway, logger zerolog.Logger) *Assembler {
	return &Assembler{
		gw:     gw,
		logger: logger,
	}
}

// Window is the assembled conversation: oldest-first turns plus the user
// directory built from every mention token in the fetched batch.
type Window struct {
	Messages  []ChatMessage
	Directory Directory
}

// FilterMessages drops messages with empty trimmed content and messages
// carrying the reject marker. Idempotent: filtering an already-filtered
// batch returns it unchanged.
func FilterMessages(msgs []Message) []Message {
	filtered := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if msg.Rejected {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

// mergeTriggerFirst prepends the trigger to the batch, collapsing duplicate
// identifiers to the single leading entry. The trigger-first order matters:
// after the oldest-first reversal the trigger lands at the tail, where the
// final pop removes it.
func mergeTriggerFirst(trigger Message, msgs []Message) []Message {
	merged := make([]Message, 0, len(msgs)+1)
	merged = append(merged, trigger)
	for _, msg := range msgs {
		if msg.ID == trigger.ID {
			continue
		}
		merged = append(merged, msg)
	}
	return merged
}

// buildDirectory resolves every mention token in the batch against the
// guild roster. Identifiers the roster does not know are left out, so
// encoding falls back to the raw token.
func (a *Assembler) buildDirectory(ctx context.Context, guildID string, msgs []Message) Directory {
	dir := make(Directory)
	for _, msg := range msgs {
		for _, id := range MentionIDs(msg.Content) {
			if _, ok := dir[id]; ok {
				continue
			}
			name, err := a.gw.MemberName(ctx, guildID, id)
			if err != nil {
				a.logger.Debug().
					Str("user_id", id).
					Err(err).
					Msg("mention not resolvable, keeping raw token")
				continue
			}
			dir[id] = name
		}
	}
	return dir
}

// messageContent converts one platform message into a role-tagged turn.
// Messages authored by the bot become assistant turns with their text
// unprefixed; everything else is a user turn prefixed "username (id): ".
func (a *Assembler) messageContent(msg Message, dir Directory) ChatMessage {
	fromSelf := msg.AuthorID == a.gw.BotUserID()

	text := dir.Encode(msg.Content)
	if !fromSelf {
		text = fmt.Sprintf("%s (%s): %s", msg.AuthorName, msg.AuthorID, text)
	}

	role := RoleUser
	if fromSelf {
		role = RoleAssistant
	}

	plain, parts := FormatContent(text, msg.Images, msg.Videos)
	return ChatMessage{Role: role, Text: plain, Parts: parts}
}

// Build fetches up to fetchLimit recent messages from the trigger's channel
// and assembles the conversation window: filter, merge the trigger in,
// resolve mentions, convert to role-tagged turns, reorder oldest-first,
// prepend the thread starter when applicable, and pop the merged trigger
// off the tail (the caller re-appends it explicitly as the final turn).
// Fetch failures propagate; nothing is retried.
func (a *Assembler) Build(ctx context.Context, trigger Message, channel ChannelInfo, fetchLimit int) (Window, error) {
	fetched, err := a.gw.History(ctx, channel.ID, fetchLimit)
	if err != nil {
		return Window{}, fmt.Errorf("failed to fetch channel history: %w", err)
	}

	filtered := FilterMessages(fetched)
	merged := mergeTriggerFirst(trigger, filtered)

	a.logger.Info().
		Str("channel_id", channel.ID).
		Int("fetched", len(fetched)).
		Int("filtered", len(filtered)).
		Msg("channel history fetched")

	dir := a.buildDirectory(ctx, trigger.GuildID, merged)

	conversation := make([]ChatMessage, 0, len(merged)+1)
	for _, msg := range merged {
		conversation = append(conversation, a.messageContent(msg, dir))
	}

	// The fetch is newest-first; the model wants oldest-first.
	for i, j := 0, len(conversation)-1; i < j; i, j = i+1, j-1 {
		conversation[i], conversation[j] = conversation[j], conversation[i]
	}

	if len(conversation) > 1 && len(conversation) < fetchLimit && channel.Kind.IsThread() {
		starter, ok, err := a.gw.ThreadStarter(ctx, channel.ID)
		if err != nil {
			return Window{}, fmt.Errorf("failed to fetch thread starter: %w", err)
		}
		if ok {
			lead := ChatMessage{
				Role: RoleUser,
				Text: fmt.Sprintf("%s: %s", trigger.AuthorName, dir.Encode(starter.Content)),
			}
			conversation = append([]ChatMessage{lead}, conversation...)
		}
	}

	// The merged trigger sits at the tail after the reversal; drop it here
	// so the re-append by the caller cannot double-count it.
	conversation = conversation[:len(conversation)-1]

	return Window{Messages: conversation, Directory: dir}, nil
}
