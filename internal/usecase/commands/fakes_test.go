package commands

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"reactbot/internal/domain"
	"reactbot/internal/usecase/reactionroles"
	"reactbot/internal/usecase/resolve"
)

type embed struct {
	success     bool
	channelID   string
	title       string
	description string
	fields      []domain.EmbedField
}

type fakeReplier struct {
	embeds []embed
	texts  []string
	denied []string
}

func (f *fakeReplier) Success(_ context.Context, channelID, title, description string, fields ...domain.EmbedField) error {
	f.embeds = append(f.embeds, embed{success: true, channelID: channelID, title: title, description: description, fields: fields})
	return nil
}

func (f *fakeReplier) Error(_ context.Context, channelID, title, description string, fields ...domain.EmbedField) error {
	f.embeds = append(f.embeds, embed{channelID: channelID, title: title, description: description, fields: fields})
	return nil
}

func (f *fakeReplier) Text(_ context.Context, _ string, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeReplier) PermissionDenied(_ context.Context, msg domain.Message, cmdName string) error {
	f.denied = append(f.denied, msg.UserID+"/"+cmdName)
	return nil
}

func (f *fakeReplier) last() embed {
	if len(f.embeds) == 0 {
		return embed{}
	}
	return f.embeds[len(f.embeds)-1]
}

type fakeChat struct {
	sent      map[string][]string
	deleted   []string
	bulk      int
	bulkErr   error
	anchor    *domain.AnchorMessage
	reactions []string
	removed   []string
}

func newFakeChat() *fakeChat {
	return &fakeChat{sent: map[string][]string{}}
}

func (f *fakeChat) SendMessage(_ context.Context, channelID, text string) error {
	f.sent[channelID] = append(f.sent[channelID], text)
	return nil
}

func (f *fakeChat) SendEmbed(context.Context, string, domain.Embed) error { return nil }
func (f *fakeChat) Reply(context.Context, string, string, string) error   { return nil }

func (f *fakeChat) FetchMessage(_ context.Context, _, messageID string) (*domain.AnchorMessage, error) {
	if f.anchor == nil || f.anchor.ID != messageID {
		return nil, errors.Wrap(domain.ErrNotFound, "message")
	}
	return f.anchor, nil
}

func (f *fakeChat) AddReaction(_ context.Context, _, _, emoji string) error {
	f.reactions = append(f.reactions, emoji)
	return nil
}

func (f *fakeChat) RemoveOwnReaction(_ context.Context, _, _, emoji string) error {
	f.removed = append(f.removed, emoji)
	return nil
}

func (f *fakeChat) ExpectReply(string, string) domain.PendingReply { return noReply{} }

type noReply struct{}

func (noReply) Wait(context.Context, time.Duration) (*domain.Message, error) { return nil, nil }

func (f *fakeChat) DeleteMessage(_ context.Context, _, messageID string) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeChat) BulkDelete(_ context.Context, _ string, limit int) (int, error) {
	f.bulk = limit
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	return limit, nil
}

type fakeGuild struct{}

func (fakeGuild) Role(_ string, roleID string) (*domain.GuildRole, bool) {
	if roleID == "400" {
		return &domain.GuildRole{ID: roleID, Name: "red"}, true
	}
	return nil, false
}

func (fakeGuild) Channel(_ string, channelID string) (*domain.GuildChannel, bool) {
	if channelID == "200" {
		return &domain.GuildChannel{ID: channelID, Name: "roles"}, true
	}
	return nil, false
}

func (fakeGuild) Emoji(_ string, emojiID string) (*domain.CustomEmoji, bool) {
	if emojiID == "123" {
		return &domain.CustomEmoji{ID: "123", Name: "foo"}, true
	}
	return nil, false
}

func (fakeGuild) Member(context.Context, string, string) (*domain.GuildMember, error) {
	return nil, domain.ErrNotFound
}

func (fakeGuild) RemoveMemberRole(context.Context, string, string, string) error { return nil }

// fakeReactionRoles devuelve los resultados o errores configurados.
type fakeReactionRoles struct {
	err       error
	added     *domain.ReactionRole
	edited    *reactionroles.EditResult
	deleted   *reactionroles.DeleteResult
	listCount int
	lastAdd   reactionroles.AddRequest
}

func (f *fakeReactionRoles) Add(_ context.Context, _ reactionroles.Invocation, req reactionroles.AddRequest) (*domain.ReactionRole, error) {
	f.lastAdd = req
	return f.added, f.err
}

func (f *fakeReactionRoles) Edit(context.Context, reactionroles.Invocation, string, string, string) (*reactionroles.EditResult, error) {
	return f.edited, f.err
}

func (f *fakeReactionRoles) Delete(context.Context, reactionroles.Invocation, string, string) (*reactionroles.DeleteResult, error) {
	return f.deleted, f.err
}

func (f *fakeReactionRoles) DeleteGroup(context.Context, reactionroles.Invocation, string) (*reactionroles.DeleteResult, error) {
	return f.deleted, f.err
}

func (f *fakeReactionRoles) List(context.Context, reactionroles.Invocation) (int, error) {
	return f.listCount, f.err
}

func (f *fakeReactionRoles) Emoji(guildID, key string) resolve.Emoji {
	return resolve.FromKey(key, func(id string) (*domain.CustomEmoji, bool) {
		return fakeGuild{}.Emoji(guildID, id)
	})
}

func (f *fakeReactionRoles) RoleLabel(guildID, roleID string) string {
	if r, ok := (fakeGuild{}).Role(guildID, roleID); ok {
		return r.Mention()
	}
	return "`<Deleted>`"
}

const setupChannel = "10"

func command(text string) domain.Message {
	return domain.Message{
		ID:        "900",
		GuildID:   "1",
		ChannelID: setupChannel,
		UserID:    "500",
		Username:  "tester",
		Text:      text,
	}
}

type harness struct {
	router *Router
	out    *fakeReplier
	chat   *fakeChat
	rr     *fakeReactionRoles
}

func newHarness() *harness {
	h := &harness{
		router: NewRouter("!", setupChannel),
		out:    &fakeReplier{},
		chat:   newFakeChat(),
		rr:     &fakeReactionRoles{},
	}
	RegisterBuiltins(h.router, Deps{
		Chat:          h.chat,
		Guild:         fakeGuild{},
		ReactionRoles: h.rr,
		Permissions:   Permissions{BotOwner: "1000", RoleAdmin: "50", RoleMod: "51"},
	})
	return h
}

func (h *harness) run(text string) error {
	_, err := h.router.Handle(context.Background(), command(text), h.out, "req-1")
	return err
}
