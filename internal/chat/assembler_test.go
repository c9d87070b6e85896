package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrigger() Message {
	return Message{
		ID:         "t1",
		ChannelID:  "c1",
		GuildID:    "g1",
		AuthorID:   "u1",
		AuthorName: "alice",
		Content:    "hello <@42>",
	}
}

func assemblerFixture() (*Assembler, *fakeGateway) {
	gw := newFakeGateway()
	gw.channels["c1"] = ChannelInfo{ID: "c1", GuildID: "g1", Kind: KindText}
	gw.members["42"] = "carol"
	return NewAssembler(gw, zerolog.Nop()), gw
}

func TestFilterMessagesIdempotent(t *testing.T) {
	msgs := []Message{
		{ID: "a", Content: "keep"},
		{ID: "b", Content: "   "},
		{ID: "c", Content: "rejected", Rejected: true},
		{ID: "d", Content: "also keep"},
	}

	once := FilterMessages(msgs)
	twice := FilterMessages(once)

	require.Len(t, once, 2)
	assert.Equal(t, once, twice)
}

func TestBuildOrdersOldestFirstAndPopsTrigger(t *testing.T) {
	asm, gw := assemblerFixture()
	trigger := testTrigger()

	gw.history = []Message{
		trigger,
		{ID: "m2", ChannelID: "c1", AuthorID: "u2", AuthorName: "bob", Content: "   "},
		{ID: "m3", ChannelID: "c1", AuthorID: "u2", AuthorName: "bob", Content: "nope", Rejected: true},
		{ID: "m4", ChannelID: "c1", AuthorID: "bot-1", AuthorName: "glovedcat", Content: "previous reply"},
		{ID: "m5", ChannelID: "c1", AuthorID: "u2", AuthorName: "bob", Content: "first message <@42>"},
	}

	window, err := asm.Build(context.Background(), trigger, gw.channels["c1"], 25)
	require.NoError(t, err)

	require.Len(t, window.Messages, 2)

	// Oldest first, non-bot turns author-prefixed and mention-encoded.
	assert.Equal(t, RoleUser, window.Messages[0].Role)
	assert.Equal(t, "bob (u2): first message @carol", window.Messages[0].Text)
	assert.Equal(t, RoleAssistant, window.Messages[1].Role)
	assert.Equal(t, "previous reply", window.Messages[1].Text)

	// Trailing-pop invariant: the trigger never survives assembly.
	for _, msg := range window.Messages {
		assert.NotContains(t, msg.Text, "hello")
	}

	assert.Equal(t, Directory{"42": "carol"}, window.Directory)
}

func TestBuildNeverContainsTriggerTwice(t *testing.T) {
	asm, gw := assemblerFixture()
	trigger := testTrigger()

	// The fetch already contains the trigger; the merge must collapse it.
	gw.history = []Message{
		trigger,
		trigger,
		{ID: "m5", ChannelID: "c1", AuthorID: "u2", AuthorName: "bob", Content: "context"},
	}

	window, err := asm.Build(context.Background(), trigger, gw.channels["c1"], 25)
	require.NoError(t, err)

	count := 0
	for _, msg := range window.Messages {
		if strings.Contains(msg.Text, trigger.Content) || strings.Contains(msg.Text, "hello @carol") {
			count++
		}
	}
	assert.Zero(t, count)
}

func TestBuildPrependsThreadStarter(t *testing.T) {
	asm, gw := assemblerFixture()
	trigger := testTrigger()

	thread := ChannelInfo{ID: "th1", GuildID: "g1", Kind: KindThread}
	gw.channels["th1"] = thread
	gw.starter = &Message{ID: "s1", Content: "the origin <@42>"}
	gw.history = []Message{
		trigger,
		{ID: "m5", ChannelID: "th1", AuthorID: "u2", AuthorName: "bob", Content: "inside the thread"},
	}

	window, err := asm.Build(context.Background(), trigger, thread, 25)
	require.NoError(t, err)

	require.Len(t, window.Messages, 2)
	assert.Equal(t, "alice: the origin @carol", window.Messages[0].Text)
	assert.Equal(t, RoleUser, window.Messages[0].Role)
	assert.Equal(t, "bob (u2): inside the thread", window.Messages[1].Text)
}

func TestBuildUnknownMentionKeptVerbatim(t *testing.T) {
	asm, gw := assemblerFixture()
	trigger := testTrigger()

	gw.history = []Message{
		trigger,
		{ID: "m5", ChannelID: "c1", AuthorID: "u2", AuthorName: "bob", Content: "ping <@999>"},
	}

	window, err := asm.Build(context.Background(), trigger, gw.channels["c1"], 25)
	require.NoError(t, err)

	require.Len(t, window.Messages, 1)
	assert.Equal(t, "bob (u2): ping <@999>", window.Messages[0].Text)
}

func TestBuildAttachmentsBecomeParts(t *testing.T) {
	asm, gw := assemblerFixture()
	trigger := testTrigger()

	gw.history = []Message{
		trigger,
		{
			ID: "m5", ChannelID: "c1", AuthorID: "u2", AuthorName: "bob",
			Content: "look at this",
			Images:  []string{"https://cdn.example/cat.png"},
			Videos:  []string{"https://cdn.example/cat.mp4"},
		},
	}

	window, err := asm.Build(context.Background(), trigger, gw.channels["c1"], 25)
	require.NoError(t, err)

	require.Len(t, window.Messages, 1)
	msg := window.Messages[0]
	assert.Empty(t, msg.Text)
	require.Len(t, msg.Parts, 3)
	assert.Equal(t, PartTypeImage, msg.Parts[0].Type)
	assert.Equal(t, "https://cdn.example/cat.png", msg.Parts[0].Image)
	assert.Equal(t, PartTypeFile, msg.Parts[1].Type)
	assert.Equal(t, "video/mp4", msg.Parts[1].MIMEType)
	assert.Equal(t, PartTypeText, msg.Parts[2].Type)
	assert.Equal(t, "bob (u2): look at this", msg.Parts[2].Text)
}
