package reactionroles

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"reactbot/internal/app/events"
	"reactbot/internal/domain"
	"reactbot/internal/infrastructure/persistence/sqlite"
)

const (
	testGuild   = "1"
	testChannel = "200"
	testAnchor  = "300"
	testRole    = "400"
	testRole2   = "401"
	testUser    = "500"
)

type fakeChat struct {
	mu sync.Mutex

	messages map[string]*domain.AnchorMessage
	sent     []string
	prompts  []string

	fetchErr  error
	addErr    error
	addGate   chan struct{}
	addCalled chan struct{}
	removeErr map[string]error
	removals  []string

	reply          *domain.Message
	awaitErr       error
	awaitedTimeout time.Duration

	calls []string
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		messages:  map[string]*domain.AnchorMessage{},
		removeErr: map[string]error{},
	}
}

func (f *fakeChat) postAnchor(channelID, messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[channelID+"/"+messageID] = &domain.AnchorMessage{ID: messageID, ChannelID: channelID}
}

func (f *fakeChat) anchor(channelID, messageID string) *domain.AnchorMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[channelID+"/"+messageID]
}

func (f *fakeChat) SendMessage(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeChat) SendEmbed(context.Context, string, domain.Embed) error { return nil }

func (f *fakeChat) Reply(_ context.Context, _, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, text)
	f.calls = append(f.calls, "prompt")
	return nil
}

func (f *fakeChat) FetchMessage(_ context.Context, channelID, messageID string) (*domain.AnchorMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	m, ok := f.messages[channelID+"/"+messageID]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, "unknown message")
	}
	cp := *m
	cp.Reactions = append([]string(nil), m.Reactions...)
	return &cp, nil
}

func (f *fakeChat) AddReaction(_ context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	gate, called := f.addGate, f.addCalled
	f.mu.Unlock()
	if gate != nil {
		// simula una llamada lenta al chat
		called <- struct{}{}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	m, ok := f.messages[channelID+"/"+messageID]
	if !ok {
		return errors.New("unknown message")
	}
	m.Reactions = append(m.Reactions, emoji)
	return nil
}

func (f *fakeChat) RemoveOwnReaction(_ context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals = append(f.removals, emoji)
	if err := f.removeErr[emoji]; err != nil {
		return err
	}
	m := f.messages[channelID+"/"+messageID]
	kept := m.Reactions[:0]
	for _, r := range m.Reactions {
		if r != emoji {
			kept = append(kept, r)
		}
	}
	m.Reactions = kept
	return nil
}

func (f *fakeChat) ExpectReply(_, authorID string) domain.PendingReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "expect")
	return &fakePending{chat: f, authorID: authorID}
}

type fakePending struct {
	chat     *fakeChat
	authorID string
}

func (p *fakePending) Wait(_ context.Context, timeout time.Duration) (*domain.Message, error) {
	f := p.chat
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awaitedTimeout = timeout
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	if f.reply == nil {
		return nil, nil
	}
	reply := *f.reply
	reply.UserID = p.authorID
	return &reply, nil
}

func (f *fakeChat) DeleteMessage(context.Context, string, string) error { return nil }

func (f *fakeChat) BulkDelete(context.Context, string, int) (int, error) { return 0, nil }

func (f *fakeChat) answer(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = &domain.Message{Text: text}
}

type fakeGuild struct {
	mu sync.Mutex

	roles    map[string]*domain.GuildRole
	channels map[string]*domain.GuildChannel
	emojis   map[string]*domain.CustomEmoji
	members  map[string]*domain.GuildMember

	removeErr error
	revoked   []string
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		roles: map[string]*domain.GuildRole{
			testRole:  {ID: testRole, Name: "red"},
			testRole2: {ID: testRole2, Name: "blue"},
		},
		channels: map[string]*domain.GuildChannel{
			testChannel: {ID: testChannel, GuildID: testGuild, Name: "roles"},
		},
		emojis: map[string]*domain.CustomEmoji{
			"123": {ID: "123", Name: "foo"},
		},
		members: map[string]*domain.GuildMember{},
	}
}

func (g *fakeGuild) Role(_ string, roleID string) (*domain.GuildRole, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.roles[roleID]
	return r, ok
}

func (g *fakeGuild) Channel(_ string, channelID string) (*domain.GuildChannel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.channels[channelID]
	return c, ok
}

func (g *fakeGuild) Emoji(_ string, emojiID string) (*domain.CustomEmoji, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.emojis[emojiID]
	return e, ok
}

func (g *fakeGuild) Member(_ context.Context, _ string, userID string) (*domain.GuildMember, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[userID]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, "member")
	}
	return m, nil
}

func (g *fakeGuild) RemoveMemberRole(_ context.Context, _ string, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revoked = append(g.revoked, userID+"/"+roleID)
	if g.removeErr != nil {
		return g.removeErr
	}
	m := g.members[userID]
	kept := m.RoleIDs[:0]
	for _, id := range m.RoleIDs {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.RoleIDs = kept
	return nil
}

type harness struct {
	path  string
	store *sqlite.Store
	chat  *fakeChat
	guild *fakeGuild
	bus   *events.Bus
	ctrl  *Controller
	inv   Invocation
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rr.sqlite")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		path:  path,
		store: store,
		chat:  newFakeChat(),
		guild: newFakeGuild(),
		bus:   events.NewBus(),
		inv: Invocation{
			GuildID:   testGuild,
			ChannelID: "999",
			MessageID: "998",
			UserID:    testUser,
		},
	}
	h.ctrl = NewController(store, h.chat, h.guild, h.bus)
	h.chat.postAnchor(testChannel, testAnchor)
	return h
}

func (h *harness) add(t *testing.T, emoji, role, typ string) {
	t.Helper()
	_, err := h.ctrl.Add(context.Background(), h.inv, AddRequest{
		MessageID: testAnchor,
		Emoji:     emoji,
		Role:      role,
		Channel:   "<#" + testChannel + ">",
		Type:      typ,
	})
	require.NoError(t, err)
}

func (h *harness) rows(t *testing.T) []*domain.ReactionRole {
	t.Helper()
	rows, err := h.store.List(context.Background())
	require.NoError(t, err)
	return rows
}

// failingCommitRepo aborts every transaction at commit time.
type failingCommitRepo struct {
	*sqlite.Store
}

func (r failingCommitRepo) Begin(ctx context.Context) (domain.ReactionRoleTx, error) {
	tx, err := r.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return failingCommitTx{tx}, nil
}

type failingCommitTx struct {
	domain.ReactionRoleTx
}

func (t failingCommitTx) Commit() error {
	_ = t.ReactionRoleTx.Rollback()
	return domain.NewIOError("sqlite: commit", errors.New("disk I/O error"))
}
