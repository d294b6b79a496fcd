package reactionroles

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactbot/internal/app/events"
	"reactbot/internal/domain"
	"reactbot/internal/infrastructure/persistence/sqlite"
)

func TestAddThenList(t *testing.T) {
	h := newHarness(t)
	added, unsubscribe := h.bus.Subscribe(events.TopicReactionRoleAdded)
	defer unsubscribe()

	h.add(t, "👍", "<@&"+testRole+">", "free")

	rows := h.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, testAnchor, rows[0].MessageID)
	assert.Equal(t, "👍", rows[0].Reaction)
	assert.Equal(t, testRole, rows[0].RoleID)
	assert.Equal(t, domain.BindingFree, rows[0].Type)
	assert.Equal(t, testChannel, rows[0].ChannelID)
	assert.Equal(t, []string{"👍"}, h.chat.anchor(testChannel, testAnchor).Reactions)
	require.Len(t, added, 1)

	n, err := h.ctrl.List(context.Background(), h.inv)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, h.chat.sent, 1)
	assert.Equal(t, "👍 : <@&400> [Message ID: `300`] [Type: `free`]\n", h.chat.sent[0])
}

func TestAddCustomEmojiStoresIDAndReactsWithNameID(t *testing.T) {
	h := newHarness(t)

	h.add(t, "<:foo:123>", testRole, "group")

	rows := h.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "123", rows[0].Reaction)
	assert.Equal(t, []string{"foo:123"}, h.chat.anchor(testChannel, testAnchor).Reactions)
}

func TestAddTypeConflictLeavesStoreUnchanged(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "group")

	_, err := h.ctrl.Add(context.Background(), h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👎", Role: testRole2, Channel: testChannel, Type: "free",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTypeConflict))

	var conflict *TypeConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, domain.BindingGroup, conflict.Existing)
	assert.Equal(t, domain.BindingFree, conflict.Requested)

	assert.Len(t, h.rows(t), 1)
	assert.Equal(t, []string{"👍"}, h.chat.anchor(testChannel, testAnchor).Reactions)
}

func TestAddDuplicateKey(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "free")

	_, err := h.ctrl.Add(context.Background(), h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: testRole2, Channel: testChannel, Type: "free",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateKey))

	rows := h.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, testRole, rows[0].RoleID)
	assert.Len(t, h.chat.anchor(testChannel, testAnchor).Reactions, 1)
}

func TestAddReactionFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.chat.addErr = errors.New("missing permissions")

	_, err := h.ctrl.Add(context.Background(), h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: testRole, Channel: testChannel, Type: "free",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIOFailure))
	assert.Empty(t, h.rows(t))
}

func TestAddNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: "301", Emoji: "👍", Role: testRole, Channel: testChannel, Type: "free",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "missing message")

	_, err = h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: testRole, Channel: "201", Type: "free",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "missing channel")

	_, err = h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: "402", Channel: testChannel, Type: "free",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "missing role")

	assert.Empty(t, h.rows(t))
}

func TestAddFetchFailureIsIOFailure(t *testing.T) {
	h := newHarness(t)
	h.chat.fetchErr = errors.New("discord: HTTP 502 Bad Gateway")

	_, err := h.ctrl.Add(context.Background(), h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: testRole, Channel: testChannel, Type: "free",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIOFailure))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "502")
	assert.Empty(t, h.rows(t))
	assert.Empty(t, h.chat.anchor(testChannel, testAnchor).Reactions)
}

func TestAddLogsRejectedLookups(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: testRole, Channel: "201", Type: "free",
	})
	require.True(t, errors.Is(err, domain.ErrNotFound))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "add rejected, unknown channel", entry.Message)
	assert.Equal(t, "201", entry.Data["channel_id"])
	assert.Equal(t, testAnchor, entry.Data["message_id"])

	_, err = h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: "402", Channel: testChannel, Type: "free",
	})
	require.True(t, errors.Is(err, domain.ErrNotFound))
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "add rejected, unknown role", entry.Message)
	assert.Equal(t, "402", entry.Data["role_id"])
}

func TestAddCommitFailureTakesBackReaction(t *testing.T) {
	h := newHarness(t)
	ctrl := NewController(failingCommitRepo{h.store}, h.chat, h.guild, h.bus)

	_, err := ctrl.Add(context.Background(), h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: testRole, Channel: testChannel, Type: "free",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIOFailure))
	assert.Equal(t, []string{"👍"}, h.chat.removals)
	assert.Empty(t, h.chat.anchor(testChannel, testAnchor).Reactions)
	assert.Empty(t, h.rows(t))
}

func TestStoreFailureIsIOFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.add(t, "👍", testRole, "free")
	require.NoError(t, h.store.Close())

	_, err := h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "<:foo:123>", Role: testRole2, Channel: testChannel, Type: "free",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIOFailure), "add: %v", err)

	_, err = h.ctrl.Edit(ctx, h.inv, testAnchor, "👍", testRole2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIOFailure), "edit: %v", err)

	store, err := sqlite.Open(h.path)
	require.NoError(t, err)
	defer store.Close()
	rows, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, testRole, rows[0].RoleID)
	assert.Equal(t, []string{"👍"}, h.chat.anchor(testChannel, testAnchor).Reactions)
}

func TestEditCommitFailureKeepsRole(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "free")
	ctrl := NewController(failingCommitRepo{h.store}, h.chat, h.guild, h.bus)

	_, err := ctrl.Edit(context.Background(), h.inv, testAnchor, "👍", testRole2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIOFailure))

	rows := h.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, testRole, rows[0].RoleID)
}

func TestAddInFlightDoesNotBlockReaders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// otro mensaje ya enlazado, con un miembro que tiene su rol
	h.chat.postAnchor(testChannel, "777")
	_, err := h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: "777", Emoji: "👍", Role: testRole2, Channel: testChannel, Type: "free",
	})
	require.NoError(t, err)
	h.member(testUser, false, testRole2)

	gate := make(chan struct{})
	release := sync.OnceFunc(func() { close(gate) })
	defer release()
	h.chat.mu.Lock()
	h.chat.addGate = gate
	h.chat.addCalled = make(chan struct{}, 1)
	h.chat.mu.Unlock()

	added := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Add(ctx, h.inv, AddRequest{
			MessageID: testAnchor, Emoji: "👍", Role: testRole, Channel: testChannel, Type: "free",
		})
		added <- err
	}()
	select {
	case <-h.chat.addCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("add never reached the chat call")
	}

	ev := removal("", "👍")
	ev.MessageID = "777"
	revoked := make(chan bool, 1)
	go func() { revoked <- h.toggler().HandleReactionRemove(ctx, ev) }()
	select {
	case ok := <-revoked:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("toggle read blocked behind the pending add")
	}
	assert.Len(t, h.rows(t), 1, "uncommitted binding is not visible")

	release()
	require.NoError(t, <-added)
	assert.Len(t, h.rows(t), 2)
}

func TestAddInvalidArguments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: testAnchor, Emoji: "👍", Role: testRole, Channel: testChannel, Type: "radio",
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArguments))

	_, err = h.ctrl.Add(ctx, h.inv, AddRequest{
		MessageID: "abc", Emoji: "👍", Role: testRole, Channel: testChannel, Type: "free",
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArguments))
}

func TestEditMissingIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "free")

	_, err := h.ctrl.Edit(context.Background(), h.inv, testAnchor, "👎", testRole2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	rows := h.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, testRole, rows[0].RoleID)
}

func TestEditRetargetsRole(t *testing.T) {
	h := newHarness(t)
	h.add(t, "<:foo:123>", testRole, "free")

	res, err := h.ctrl.Edit(context.Background(), h.inv, testAnchor, "<:foo:123>", "<@&"+testRole2+">")
	require.NoError(t, err)
	assert.Equal(t, testRole, res.OldRoleID)
	assert.Equal(t, testRole2, res.Binding.RoleID)

	rows := h.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, testRole2, rows[0].RoleID)
	assert.Equal(t, []string{"foo:123"}, h.chat.anchor(testChannel, testAnchor).Reactions)
}

func TestDeleteTimeoutCancels(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "free")

	_, err := h.ctrl.Delete(context.Background(), h.inv, testAnchor, "👍")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCancelled))

	var cancelled *domain.CancelledError
	require.True(t, errors.As(err, &cancelled))
	assert.True(t, cancelled.TimedOut)
	assert.Equal(t, ConfirmationTimeout, h.chat.awaitedTimeout)
	require.Len(t, h.chat.prompts, 1)
	assert.Contains(t, h.chat.prompts[0], "within 10 seconds")
	assert.Equal(t, []string{"expect", "prompt"}, h.chat.calls, "reply waiter registered before the prompt")

	assert.Len(t, h.rows(t), 1)
	assert.Empty(t, h.chat.removals)
}

func TestDeleteDeclinedCancels(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "free")
	h.chat.answer("no")

	_, err := h.ctrl.Delete(context.Background(), h.inv, testAnchor, "👍")
	var cancelled *domain.CancelledError
	require.True(t, errors.As(err, &cancelled))
	assert.False(t, cancelled.TimedOut)
	assert.Len(t, h.rows(t), 1)
}

func TestDeleteConfirmed(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "free")
	h.chat.answer("YES")

	res, err := h.ctrl.Delete(context.Background(), h.inv, testAnchor, "👍")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, h.rows(t))
	assert.Empty(t, h.chat.anchor(testChannel, testAnchor).Reactions)
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.chat.answer("yes")

	_, err := h.ctrl.Delete(context.Background(), h.inv, testAnchor, "👍")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Empty(t, h.chat.prompts)
}

func TestDeleteMirrorFailureStillCommits(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	h := newHarness(t)
	h.add(t, "👍", testRole, "free")
	h.chat.answer("yes")
	h.chat.removeErr["👍"] = errors.New("rate limited")

	res, err := h.ctrl.Delete(context.Background(), h.inv, testAnchor, "👍")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "rate limited")
	assert.Empty(t, h.rows(t))

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "could not remove reaction" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestDeleteAnchorGoneStillCommits(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "free")
	h.chat.answer("yes")
	h.chat.mu.Lock()
	delete(h.chat.messages, testChannel+"/"+testAnchor)
	h.chat.mu.Unlock()

	res, err := h.ctrl.Delete(context.Background(), h.inv, testAnchor, "👍")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Maybe it was deleted")
	assert.Empty(t, h.rows(t))
}

func TestDeleteAnchorFetchFailureStillCommits(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "free")
	h.chat.answer("yes")
	h.chat.fetchErr = errors.New("discord: HTTP 503 Service Unavailable")

	res, err := h.ctrl.Delete(context.Background(), h.inv, testAnchor, "👍")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Could not fetch message id")
	assert.Contains(t, res.Warnings[0], "503")
	assert.Empty(t, h.rows(t))
	assert.Empty(t, h.chat.removals)
}

func TestDeleteGroupContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "group")
	h.add(t, "<:foo:123>", testRole2, "group")
	h.add(t, "🎉", testRole, "group")
	h.chat.answer("yes")
	h.chat.removeErr["foo:123"] = errors.New("boom")

	res, err := h.ctrl.DeleteGroup(context.Background(), h.inv, testAnchor)
	require.NoError(t, err)
	assert.Len(t, res.Bindings, 3)
	assert.Len(t, res.Warnings, 1)
	assert.ElementsMatch(t, []string{"👍", "foo:123", "🎉"}, h.chat.removals)
	assert.Empty(t, h.rows(t))
	assert.Equal(t, []string{"foo:123"}, h.chat.anchor(testChannel, testAnchor).Reactions)

	require.Len(t, h.chat.prompts, 1)
	assert.Contains(t, h.chat.prompts[0], "<:foo:123> : <@&401> [Type: `group`]")
}

func TestDeleteGroupTimeoutLeavesRows(t *testing.T) {
	h := newHarness(t)
	h.add(t, "👍", testRole, "group")
	h.add(t, "🎉", testRole2, "group")

	_, err := h.ctrl.DeleteGroup(context.Background(), h.inv, testAnchor)
	assert.True(t, errors.Is(err, domain.ErrCancelled))
	assert.Len(t, h.rows(t), 2)
}

func TestDeleteGroupNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctrl.DeleteGroup(context.Background(), h.inv, testAnchor)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListEmpty(t *testing.T) {
	h := newHarness(t)

	n, err := h.ctrl.List(context.Background(), h.inv)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"No data found."}, h.chat.sent)
}

func TestListPaginates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tx, err := h.store.Begin(ctx)
	require.NoError(t, err)
	for i := 0; i < 23; i++ {
		require.NoError(t, tx.Insert(ctx, &domain.ReactionRole{
			MessageID: fmt.Sprintf("%d", 1000+i),
			Reaction:  "👍",
			RoleID:    "402",
			Type:      domain.BindingFree,
			ChannelID: testChannel,
		}))
	}
	require.NoError(t, tx.Commit())

	n, err := h.ctrl.List(ctx, h.inv)
	require.NoError(t, err)
	assert.Equal(t, 23, n)
	require.Len(t, h.chat.sent, 3)
	assert.Equal(t, ListPageSize, strings.Count(h.chat.sent[0], "\n"))
	assert.Equal(t, ListPageSize, strings.Count(h.chat.sent[1], "\n"))
	assert.Equal(t, 3, strings.Count(h.chat.sent[2], "\n"))
	assert.True(t, strings.HasPrefix(h.chat.sent[0], "👍 : `<Deleted>` [Message ID: `1000`]"))
}

func TestRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.add(t, "👍", testRole, "free")
	rows := h.rows(t)
	require.Len(t, rows, 1)

	_, err := h.ctrl.Edit(ctx, h.inv, testAnchor, "👍", testRole2)
	require.NoError(t, err)
	rows = h.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, testRole2, rows[0].RoleID)

	h.chat.answer("yes")
	_, err = h.ctrl.Delete(ctx, h.inv, testAnchor, "👍")
	require.NoError(t, err)
	assert.Empty(t, h.rows(t))
}
