package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeGateway is a scriptable in-memory Gateway for tests.
type fakeGateway struct {
	mu sync.Mutex

	botID    string
	channels map[string]ChannelInfo
	history  []Message // newest first
	after    []Message // returned by MessagesAfter
	members  map[string]string
	userIDs  map[string]string
	starter  *Message

	sent        []Message
	replies     []Message
	deleted     []string
	delayed     []string
	lockCalls   []bool
	threadNames []string

	historyErr error
	sendErr    error
	lockErr    error
	failSendAt int // fail the nth send, 1-based; 0 disables
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		botID:    "bot-1",
		channels: make(map[string]ChannelInfo),
		members:  make(map[string]string),
		userIDs:  make(map[string]string),
	}
}

func (f *fakeGateway) BotUserID() string { return f.botID }

func (f *fakeGateway) Channel(ctx context.Context, channelID string) (ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.channels[channelID]; ok {
		return info, nil
	}
	return ChannelInfo{}, fmt.Errorf("unknown channel %s", channelID)
}

func (f *fakeGateway) History(ctx context.Context, channelID string, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if limit > len(f.history) {
		limit = len(f.history)
	}
	out := make([]Message, limit)
	copy(out, f.history[:limit])
	return out, nil
}

func (f *fakeGateway) MessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.after) {
		limit = len(f.after)
	}
	out := make([]Message, limit)
	copy(out, f.after[:limit])
	return out, nil
}

func (f *fakeGateway) Send(ctx context.Context, channelID, content string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil && (f.failSendAt == 0 || len(f.sent)+1 == f.failSendAt) {
		return Message{}, f.sendErr
	}
	msg := Message{
		ID:        fmt.Sprintf("sent-%d", len(f.sent)+1),
		ChannelID: channelID,
		AuthorID:  f.botID,
		Content:   content,
	}
	f.sent = append(f.sent, msg)
	return msg, nil
}

func (f *fakeGateway) Reply(ctx context.Context, to Message, content string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := Message{
		ID:        fmt.Sprintf("reply-%d", len(f.replies)+1),
		ChannelID: to.ChannelID,
		AuthorID:  f.botID,
		Content:   content,
	}
	f.replies = append(f.replies, msg)
	return msg, nil
}

func (f *fakeGateway) Delete(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeGateway) DeleteAfter(channelID, messageID string, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delayed = append(f.delayed, messageID)
}

func (f *fakeGateway) CreateThread(ctx context.Context, from Message, name string) (ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadNames = append(f.threadNames, name)
	info := ChannelInfo{
		ID:      "thread-" + from.ID,
		GuildID: from.GuildID,
		Name:    name,
		Kind:    KindThread,
	}
	f.channels[info.ID] = info
	return info, nil
}

func (f *fakeGateway) ThreadStarter(ctx context.Context, threadID string) (Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.starter == nil {
		return Message{}, false, nil
	}
	return *f.starter, true, nil
}

func (f *fakeGateway) SetSendLock(ctx context.Context, channelID, guildID string, locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lockErr != nil {
		return f.lockErr
	}
	f.lockCalls = append(f.lockCalls, locked)
	return nil
}

func (f *fakeGateway) MemberName(ctx context.Context, guildID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.members[userID]
	if !ok {
		return "", fmt.Errorf("unknown member %s", userID)
	}
	return name, nil
}

func (f *fakeGateway) UserIDByName(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.userIDs[name]
	return id, ok
}

func (f *fakeGateway) Typing(ctx context.Context, channelID string) error { return nil }

// fakeQuerier is a scriptable model for orchestrator tests.
type fakeQuerier struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	system   string
	window   []ChatMessage
}

func (q *fakeQuerier) Query(ctx context.Context, system string, window []ChatMessage) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	q.system = system
	q.window = append([]ChatMessage(nil), window...)
	if q.err != nil {
		return "", q.err
	}
	return q.response, nil
}

// fakePrompts supplies a fixed system prompt.
type fakePrompts struct {
	prompt string
	err    error
}

func (p *fakePrompts) SystemPrompt() (string, error) {
	return p.prompt, p.err
}
