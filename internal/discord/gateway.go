package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gloved-dev/glovedcat/internal/chat"
	"github.com/rs/zerolog"
)

// rejectEmoji marks messages the context assembler must skip.
const rejectEmoji = "❌"

const threadArchiveMinutes = 60 * 24 * 7 // one week

// Gateway implements chat.Gateway over a discordgo session.
type Gateway struct {
	session *discordgo.Session
	logger  zerolog.Logger
}

// NewGateway wraps a session.
func NewGateway(session *discordgo.Session, logger zerolog.Logger) *Gateway {
	return &Gateway{
		session: session,
		logger:  logger,
	}
}

// BotUserID returns the bot's own user identifier.
func (g *Gateway) BotUserID() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

// channelKind maps the platform channel type onto the closed capability
// set.
func channelKind(t discordgo.ChannelType) chat.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return chat.KindText
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return chat.KindThread
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return chat.KindVoice
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return chat.KindDM
	}
	return chat.KindOther
}

func channelInfo(ch *discordgo.Channel) chat.ChannelInfo {
	return chat.ChannelInfo{
		ID:      ch.ID,
		GuildID: ch.GuildID,
		Name:    ch.Name,
		Kind:    channelKind(ch.Type),
	}
}

// toMessage converts a platform message into the gateway-neutral snapshot:
// attachment and embed media split into image/video URL lists, the reject
// reaction folded into a flag.
func toMessage(m *discordgo.Message) chat.Message {
	msg := chat.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}

	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
		msg.AuthorBot = m.Author.Bot
	}

	for _, att := range m.Attachments {
		switch {
		case strings.HasPrefix(att.ContentType, "image"):
			msg.Images = append(msg.Images, att.URL)
		case strings.HasPrefix(att.ContentType, "video"):
			msg.Videos = append(msg.Videos, att.URL)
		}
	}

	for _, embed := range m.Embeds {
		switch embed.Type {
		case discordgo.EmbedTypeImage:
			if embed.URL != "" {
				msg.Images = append(msg.Images, embed.URL)
			}
		case discordgo.EmbedTypeVideo:
			if embed.URL != "" {
				msg.Videos = append(msg.Videos, embed.URL)
			}
		}
	}

	for _, reaction := range m.Reactions {
		if reaction.Emoji != nil && reaction.Emoji.Name == rejectEmoji {
			msg.Rejected = true
			break
		}
	}

	return msg
}

// Channel resolves a channel, preferring the state cache.
func (g *Gateway) Channel(ctx context.Context, channelID string) (chat.ChannelInfo, error) {
	if ch, err := g.session.State.Channel(channelID); err == nil {
		return channelInfo(ch), nil
	}

	ch, err := g.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return chat.ChannelInfo{}, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	return channelInfo(ch), nil
}

// History returns up to limit most-recent messages, newest first.
func (g *Gateway) History(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	msgs, err := g.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessage(m))
	}
	return out, nil
}

// MessagesAfter returns up to limit messages posted after afterID.
func (g *Gateway) MessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]chat.Message, error) {
	msgs, err := g.session.ChannelMessages(channelID, limit, "", afterID, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages after %s: %w", afterID, err)
	}

	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessage(m))
	}
	return out, nil
}

// Send posts a message to a channel.
func (g *Gateway) Send(ctx context.Context, channelID, content string) (chat.Message, error) {
	m, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to send message: %w", err)
	}
	return toMessage(m), nil
}

// Reply posts a message referencing an existing one.
func (g *Gateway) Reply(ctx context.Context, to chat.Message, content string) (chat.Message, error) {
	ref := &discordgo.MessageReference{
		MessageID: to.ID,
		ChannelID: to.ChannelID,
		GuildID:   to.GuildID,
	}

	m, err := g.session.ChannelMessageSendReply(to.ChannelID, content, ref, discordgo.WithContext(ctx))
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to send reply: %w", err)
	}
	return toMessage(m), nil
}

// Delete removes a message.
func (g *Gateway) Delete(ctx context.Context, channelID, messageID string) error {
	if err := g.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// DeleteAfter schedules a best-effort delayed delete.
func (g *Gateway) DeleteAfter(channelID, messageID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := g.session.ChannelMessageDelete(channelID, messageID); err != nil {
			g.logger.Debug().
				Err(err).
				Str("message_id", messageID).
				Msg("delayed delete failed")
		}
	})
}

// CreateThread starts a private thread anchored to a message.
func (g *Gateway) CreateThread(ctx context.Context, from chat.Message, name string) (chat.ChannelInfo, error) {
	thread, err := g.session.MessageThreadStartComplex(from.ChannelID, from.ID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: threadArchiveMinutes,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return chat.ChannelInfo{}, fmt.Errorf("failed to create thread: %w", err)
	}
	return channelInfo(thread), nil
}

// ThreadStarter returns the message the thread was started from. A thread
// created from a message shares its identifier with that message.
func (g *Gateway) ThreadStarter(ctx context.Context, threadID string) (chat.Message, bool, error) {
	ch, err := g.session.State.Channel(threadID)
	if err != nil {
		ch, err = g.session.Channel(threadID, discordgo.WithContext(ctx))
		if err != nil {
			return chat.Message{}, false, fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
		}
	}
	if ch.ParentID == "" {
		return chat.Message{}, false, nil
	}

	m, err := g.session.ChannelMessage(ch.ParentID, threadID, discordgo.WithContext(ctx))
	if err != nil {
		return chat.Message{}, false, nil
	}
	return toMessage(m), true, nil
}

// SetSendLock toggles the @everyone SendMessages overwrite on a channel.
// The guild id doubles as the @everyone role id.
func (g *Gateway) SetSendLock(ctx context.Context, channelID, guildID string, locked bool) error {
	var allow, deny int64
	if locked {
		deny = discordgo.PermissionSendMessages
	} else {
		allow = discordgo.PermissionSendMessages
	}

	err := g.session.ChannelPermissionSet(
		channelID,
		guildID,
		discordgo.PermissionOverwriteTypeRole,
		allow,
		deny,
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to edit channel permissions: %w", err)
	}
	return nil
}

// MemberName resolves a user identifier to its username via the guild
// roster, preferring the state cache.
func (g *Gateway) MemberName(ctx context.Context, guildID, userID string) (string, error) {
	if member, err := g.session.State.Member(guildID, userID); err == nil && member.User != nil {
		return member.User.Username, nil
	}

	member, err := g.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	if member.User == nil {
		return "", fmt.Errorf("member %s has no user", userID)
	}
	return member.User.Username, nil
}

// UserIDByName scans the cached guild rosters for a username. First match
// wins; collisions are accepted.
func (g *Gateway) UserIDByName(name string) (string, bool) {
	for _, guild := range g.session.State.Guilds {
		for _, member := range guild.Members {
			if member.User != nil && member.User.Username == name {
				return member.User.ID, true
			}
		}
	}
	return "", false
}

// Typing shows a typing indicator where the channel supports it.
func (g *Gateway) Typing(ctx context.Context, channelID string) error {
	info, err := g.Channel(ctx, channelID)
	if err != nil {
		return err
	}
	if !info.Kind.CanSendTyping() {
		return nil
	}
	return g.session.ChannelTyping(channelID, discordgo.WithContext(ctx))
}
