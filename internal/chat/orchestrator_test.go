package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(gw *fakeGateway, q *fakeQuerier) *Generator {
	cfg := DefaultGeneratorConfig()
	cfg.NoticeTTL = time.Millisecond
	return NewGenerator(gw, q, &fakePrompts{prompt: "be a cat"}, cfg, zerolog.Nop())
}

func orchestratorFixture() (*fakeGateway, *fakeQuerier, *Generator, Message) {
	gw := newFakeGateway()
	gw.channels["c1"] = ChannelInfo{ID: "c1", GuildID: "g1", Kind: KindText}
	gw.members["42"] = "carol"
	gw.userIDs["alice"] = "u1"

	trigger := testTrigger()
	gw.history = []Message{
		trigger,
		{ID: "m5", ChannelID: "c1", AuthorID: "u2", AuthorName: "bob", Content: "some context"},
	}

	q := &fakeQuerier{response: "hi @alice"}
	return gw, q, newTestGenerator(gw, q), trigger
}

func TestGenerateSuccess(t *testing.T) {
	gw, q, gen, trigger := orchestratorFixture()

	err := gen.Generate(context.Background(), GenerateRequest{
		Trigger:          trigger,
		CheckLastMessage: true,
	})
	require.NoError(t, err)

	// Exactly one send to the original channel, mentions decoded.
	require.Len(t, gw.sent, 1)
	assert.Equal(t, "c1", gw.sent[0].ChannelID)
	assert.Equal(t, "hi <@u1>", gw.sent[0].Content)

	// Permission suspended then restored, exactly once each.
	assert.Equal(t, []bool{true, false}, gw.lockCalls)

	// Registry still contains the trigger afterwards.
	assert.True(t, gen.Pending().Contains(trigger.ID))

	// The model saw the system prompt and the trigger as the final turn.
	assert.Equal(t, "be a cat", q.system)
	require.NotEmpty(t, q.window)
	assert.Equal(t, "alice: hello @carol", q.window[len(q.window)-1].Text)
	assert.Equal(t, RoleUser, q.window[len(q.window)-1].Role)
}

func TestGenerateDuplicateTriggerAborts(t *testing.T) {
	gw, _, gen, trigger := orchestratorFixture()

	require.NoError(t, gen.Generate(context.Background(), GenerateRequest{Trigger: trigger}))
	sends := len(gw.sent)
	locks := len(gw.lockCalls)

	// Same trigger id again: no send, no permission toggle.
	require.NoError(t, gen.Generate(context.Background(), GenerateRequest{Trigger: trigger}))
	assert.Len(t, gw.sent, sends)
	assert.Len(t, gw.lockCalls, locks)
}

func TestGenerateOutsideGuildAborts(t *testing.T) {
	gw, q, gen, trigger := orchestratorFixture()
	trigger.GuildID = ""

	err := gen.Generate(context.Background(), GenerateRequest{Trigger: trigger})
	require.NoError(t, err)

	assert.Empty(t, gw.sent)
	assert.Empty(t, gw.lockCalls)
	assert.Zero(t, q.calls)

	// Soft notice posted and scheduled to expire.
	require.Len(t, gw.replies, 1)
	assert.Contains(t, gw.delayed, gw.replies[0].ID)
}

func TestGenerateModelFailure(t *testing.T) {
	gw, q, gen, trigger := orchestratorFixture()
	q.err = errors.New("model exploded")

	err := gen.Generate(context.Background(), GenerateRequest{Trigger: trigger})
	require.Error(t, err)

	// No message sent; one error notice with the raw failure detail,
	// scheduled to expire along with the trigger.
	assert.Empty(t, gw.sent)
	require.Len(t, gw.replies, 1)
	assert.Contains(t, gw.replies[0].Content, "model exploded")
	assert.Contains(t, gw.delayed, gw.replies[0].ID)
	assert.Contains(t, gw.delayed, trigger.ID)

	// Permission restored regardless.
	assert.Equal(t, []bool{true, false}, gw.lockCalls)
}

func TestGenerateChunkedDispatch(t *testing.T) {
	gw, q, gen, trigger := orchestratorFixture()
	q.response = strings.Repeat("x", 4500)

	err := gen.Generate(context.Background(), GenerateRequest{Trigger: trigger})
	require.NoError(t, err)

	require.Len(t, gw.sent, 3)
	var total strings.Builder
	for _, msg := range gw.sent {
		total.WriteString(msg.Content)
	}
	assert.Equal(t, q.response, total.String())
}

func TestGenerateSendFailureRetractsPartialSend(t *testing.T) {
	gw, q, gen, trigger := orchestratorFixture()
	q.response = strings.Repeat("x", 4500)
	gw.sendErr = errors.New("send refused")
	gw.failSendAt = 2

	err := gen.Generate(context.Background(), GenerateRequest{Trigger: trigger})
	require.Error(t, err)

	// The successful first chunk is retracted.
	assert.Contains(t, gw.deleted, "sent-1")
	require.Len(t, gw.replies, 1)
	assert.Contains(t, gw.replies[0].Content, "send refused")
	assert.Equal(t, []bool{true, false}, gw.lockCalls)
}

func TestGenerateStalenessAbortsBeforeModelCall(t *testing.T) {
	gw, q, gen, trigger := orchestratorFixture()
	gw.after = []Message{{ID: "newer", ChannelID: "c1"}}

	err := gen.Generate(context.Background(), GenerateRequest{
		Trigger:          trigger,
		CheckLastMessage: true,
	})
	require.NoError(t, err)

	assert.Zero(t, q.calls)
	assert.Empty(t, gw.sent)
	assert.Equal(t, []bool{true, false}, gw.lockCalls)
}

func TestGenerateStalenessDisabledStillSends(t *testing.T) {
	gw, _, gen, trigger := orchestratorFixture()
	gw.after = []Message{{ID: "newer", ChannelID: "c1"}}

	err := gen.Generate(context.Background(), GenerateRequest{Trigger: trigger})
	require.NoError(t, err)

	assert.Len(t, gw.sent, 1)
}

func TestGenerateCreatesThread(t *testing.T) {
	gw, _, gen, trigger := orchestratorFixture()

	err := gen.Generate(context.Background(), GenerateRequest{
		Trigger:      trigger,
		CreateThread: true,
	})
	require.NoError(t, err)

	require.Len(t, gw.threadNames, 1)
	assert.True(t, strings.HasPrefix(gw.threadNames[0], "alice-"))
	require.Len(t, gw.sent, 1)
	assert.Equal(t, "thread-t1", gw.sent[0].ChannelID)
}

func TestGenerateRestoresPermissionOnEveryFailure(t *testing.T) {
	cases := []struct {
		name  string
		setup func(gw *fakeGateway, q *fakeQuerier, gen *Generator)
	}{
		{
			name: "assembly failure",
			setup: func(gw *fakeGateway, q *fakeQuerier, gen *Generator) {
				gw.historyErr = errors.New("history unavailable")
			},
		},
		{
			name: "generation failure",
			setup: func(gw *fakeGateway, q *fakeQuerier, gen *Generator) {
				q.err = errors.New("model exploded")
			},
		},
		{
			name: "dispatch failure",
			setup: func(gw *fakeGateway, q *fakeQuerier, gen *Generator) {
				gw.sendErr = errors.New("send refused")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw, q, gen, trigger := orchestratorFixture()
			tc.setup(gw, q, gen)

			err := gen.Generate(context.Background(), GenerateRequest{Trigger: trigger})
			require.Error(t, err)
			assert.Equal(t, []bool{true, false}, gw.lockCalls)
		})
	}
}

func TestGeneratePromptFailureRestoresPermission(t *testing.T) {
	gw, q, _, trigger := orchestratorFixture()
	cfg := DefaultGeneratorConfig()
	gen := NewGenerator(gw, q, &fakePrompts{err: errors.New("prompt missing")}, cfg, zerolog.Nop())

	err := gen.Generate(context.Background(), GenerateRequest{Trigger: trigger})
	require.Error(t, err)
	assert.Equal(t, []bool{true, false}, gw.lockCalls)
	assert.Zero(t, q.calls)
}
