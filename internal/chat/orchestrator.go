package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// AbortReason classifies the silent and soft-notice exits of a generation
// cycle. Aborts are not errors: the cycle just stops.
type AbortReason string

const (
	ReasonNoGuild   AbortReason = "no_guild"
	ReasonDuplicate AbortReason = "duplicate_trigger"
	ReasonStale     AbortReason = "conversation_moved_on"
)

// GeneratorConfig holds the orchestrator's tunables.
type GeneratorConfig struct {
	FetchLimit int           // Default history window when a request has none
	ChunkSize  int           // Message length ceiling for dispatch
	NoticeTTL  time.Duration // Lifetime of auto-expiring notices
}

// DefaultGeneratorConfig returns the standard tunables.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		FetchLimit: 25,
		ChunkSize:  MaxChunkSize,
		NoticeTTL:  30 * time.Second,
	}
}

// Generator orchestrates one AI reply cycle: guard, lock permissions,
// assemble context, call the model, and dispatch the formatted result, with
// cleanup on every exit path.
type Generator struct {
	gw        Gateway
	querier   Querier
	prompts   PromptSource
	assembler *Assembler
	pending   *PendingSet
	config    GeneratorConfig
	logger    zerolog.Logger
}

// NewGenerator creates a generation orchestrator.
func NewGenerator(
	gw Gateway,
	querier Querier,
	prompts PromptSource,
	config GeneratorConfig,
	logger zerolog.Logger,
) *Generator {
	return &Generator{
		gw:        gw,
		querier:   querier,
		prompts:   prompts,
		assembler: NewAssembler(gw, logger),
		pending:   NewPendingSet(),
		config:    config,
		logger:    logger,
	}
}

// Pending exposes the duplicate-trigger registry.
func (g *Generator) Pending() *PendingSet {
	return g.pending
}

// GenerateRequest describes one trigger of the generation cycle.
type GenerateRequest struct {
	Trigger Message

	// CheckLastMessage enables the staleness re-checks before the model
	// call and before every send.
	CheckLastMessage bool

	// CreateThread responds in a fresh private thread anchored to the
	// trigger instead of the channel itself.
	CreateThread bool

	// FetchLimit overrides the configured history window when positive.
	FetchLimit int
}

// lastMessageRecord is the staleness baseline captured at generation start.
type lastMessageRecord struct {
	channel ChannelInfo
	message Message
}

// invocation carries the per-cycle mutable state. One active model call and
// one most-recent send handle exist per invocation, never shared between
// cycles.
type invocation struct {
	trigger   Message
	response  ChannelInfo // channel the reply goes to
	checkLast bool
	baseline  *lastMessageRecord
	sent      *Message // most recent successful send, retracted on failure
}

// Generate runs one full generation cycle for the trigger message. Guard
// rejections exit silently or with an auto-expiring notice; failures past
// the guards retract the last partial send, notify the user, and still
// restore the channel's write permission.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) error {
	trigger := req.Trigger

	// The feature is community-scoped.
	if trigger.GuildID == "" {
		g.logger.Info().
			Str("message_id", trigger.ID).
			Str("reason", string(ReasonNoGuild)).
			Msg("generation aborted")
		g.softNotice(ctx, trigger, "AI Generation function can only run in a server. How did this happen?")
		return nil
	}

	// Just to make sure no dupe replies are generated for one trigger.
	if !g.pending.TryAdd(trigger.ID) {
		g.logger.Info().
			Str("message_id", trigger.ID).
			Str("reason", string(ReasonDuplicate)).
			Msg("generation aborted")
		return nil
	}

	fetchLimit := req.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = g.config.FetchLimit
	}

	channel, err := g.gw.Channel(ctx, trigger.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to resolve trigger channel: %w", err)
	}

	inv := &invocation{
		trigger:   trigger,
		response:  channel,
		checkLast: req.CheckLastMessage,
	}

	if req.CreateThread && channel.Kind == KindText {
		name := fmt.Sprintf("%s-%d", trigger.AuthorName, trigger.Timestamp.UnixMilli())
		thread, err := g.gw.CreateThread(ctx, trigger, name)
		if err != nil {
			return fmt.Errorf("failed to create response thread: %w", err)
		}
		inv.response = thread
		if inv.checkLast {
			inv.baseline = &lastMessageRecord{channel: thread, message: trigger}
		}
	} else if inv.checkLast {
		latest, err := g.gw.History(ctx, trigger.ChannelID, 1)
		if err == nil && len(latest) > 0 {
			inv.baseline = &lastMessageRecord{channel: channel, message: latest[0]}
		}
	}

	if !inv.response.Kind.IsTextBased() {
		return fmt.Errorf("channel %s is not text-based", inv.response.ID)
	}

	// Suspend general write permission for the duration of generation so
	// new messages cannot interleave mid-cycle. The restore runs on every
	// exit path.
	if channel.Kind.CanLockSends() {
		if err := g.gw.SetSendLock(ctx, channel.ID, trigger.GuildID, true); err != nil {
			return fmt.Errorf("failed to lock channel sends: %w", err)
		}
		defer func() {
			restoreCtx := context.WithoutCancel(ctx)
			if err := g.gw.SetSendLock(restoreCtx, channel.ID, trigger.GuildID, false); err != nil {
				g.logger.Error().
					Err(err).
					Str("channel_id", channel.ID).
					Msg("failed to restore channel sends")
			}
		}()
	}

	if err := g.run(ctx, inv, fetchLimit); err != nil {
		g.logger.Error().
			Err(err).
			Str("message_id", trigger.ID).
			Msg("generation failed")
		g.fail(ctx, inv, err)
		return err
	}

	return nil
}

// run covers the assembling, generating, formatting, and dispatching states.
// A nil return is either success or a silent staleness abort.
func (g *Generator) run(ctx context.Context, inv *invocation, fetchLimit int) error {
	system, err := g.prompts.SystemPrompt()
	if err != nil {
		return err
	}
	g.logger.Debug().Int("prompt_length", len(system)).Msg("system prompt loaded")

	window, err := g.assembler.Build(ctx, inv.trigger, inv.response, fetchLimit)
	if err != nil {
		return err
	}

	// The trigger joins as the final user turn, mention-encoded and
	// author-prefixed.
	window.Messages = append(window.Messages, ChatMessage{
		Role: RoleUser,
		Text: fmt.Sprintf("%s: %s", inv.trigger.AuthorName, window.Directory.Encode(inv.trigger.Content)),
	})

	if g.stale(ctx, inv) {
		return nil
	}

	g.logger.Info().
		Str("message_id", inv.trigger.ID).
		Int("window_size", len(window.Messages)).
		Msg("querying model")

	text, err := g.querier.Query(ctx, system, window.Messages)
	if err != nil {
		return fmt.Errorf("model call failed: %w", err)
	}

	response := DecodeMentions(text, g.gw.UserIDByName)

	g.logger.Info().
		Str("message_id", inv.trigger.ID).
		Int("response_length", len(response)).
		Msg("response generated")

	chunks := SplitChunks(response, g.config.ChunkSize)
	for _, chunk := range chunks {
		if g.stale(ctx, inv) {
			return nil
		}
		sent, err := g.gw.Send(ctx, inv.response.ID, chunk)
		if err != nil {
			return fmt.Errorf("failed to send response chunk: %w", err)
		}
		inv.sent = &sent
	}

	return nil
}

// stale reports whether the conversation has moved past the trigger since
// generation began. Disabled checks and lookup failures count as fresh.
func (g *Generator) stale(ctx context.Context, inv *invocation) bool {
	if !inv.checkLast {
		g.logger.Debug().Msg("last message check disabled")
		return false
	}

	newer, err := g.gw.MessagesAfter(ctx, inv.trigger.ChannelID, inv.trigger.ID, 1)
	if err != nil || len(newer) == 0 {
		return false
	}

	if newer[0].ID != inv.trigger.ID {
		g.logger.Info().
			Str("message_id", inv.trigger.ID).
			Str("newer_id", newer[0].ID).
			Str("reason", string(ReasonStale)).
			Msg("generation aborted")
		return true
	}
	return false
}

// fail handles the error sink: retract the last partial send if possible,
// post an auto-expiring notice carrying the raw failure detail, and
// schedule the trigger itself for cleanup.
func (g *Generator) fail(ctx context.Context, inv *invocation, cause error) {
	if inv.sent != nil {
		if err := g.gw.Delete(ctx, inv.sent.ChannelID, inv.sent.ID); err != nil {
			g.logger.Warn().
				Err(err).
				Str("message_id", inv.sent.ID).
				Msg("failed to retract partial send")
		}
	}

	notice := fmt.Sprintf("Sorry, I couldn't process your request. Here's what went wrong: ```\n%v\n```", cause)
	g.softNotice(ctx, inv.trigger, notice)
	g.gw.DeleteAfter(inv.trigger.ChannelID, inv.trigger.ID, g.config.NoticeTTL)
}

// softNotice posts a best-effort reply that expires after the configured
// delay.
func (g *Generator) softNotice(ctx context.Context, to Message, text string) {
	sent, err := g.gw.Reply(ctx, to, text)
	if err != nil {
		g.logger.Warn().
			Err(err).
			Str("message_id", to.ID).
			Msg("failed to post notice")
		return
	}
	g.gw.DeleteAfter(sent.ChannelID, sent.ID, g.config.NoticeTTL)
}
