package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/coconet/starshop/internal/broadcast"
	"github.com/coconet/starshop/internal/config"
	"github.com/coconet/starshop/internal/storage"
)

// fakeClient records outbound calls instead of hitting the Telegram API.
type fakeClient struct {
	sent     []*bot.SendMessageParams
	edited   []*bot.EditMessageTextParams
	copied   []*bot.CopyMessageParams
	answered []*bot.AnswerCallbackQueryParams

	sendErr error
}

func (f *fakeClient) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, params)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeClient) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	f.edited = append(f.edited, params)
	return &models.Message{ID: params.MessageID}, nil
}

func (f *fakeClient) CopyMessage(_ context.Context, params *bot.CopyMessageParams) (*models.MessageID, error) {
	f.copied = append(f.copied, params)
	return &models.MessageID{ID: len(f.copied)}, nil
}

func (f *fakeClient) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.answered = append(f.answered, params)
	return true, nil
}

// sentTo returns the texts of messages sent to one chat, in order.
func (f *fakeClient) sentTo(chatID int64) []string {
	var texts []string
	for _, p := range f.sent {
		if id, ok := p.ChatID.(int64); ok && id == chatID {
			texts = append(texts, p.Text)
		}
	}
	return texts
}

const (
	testAdminChat     = int64(42)
	testModeratorChat = int64(7)
)

func newTestBot(t *testing.T) (*Bot, *storage.Storage, *fakeClient) {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	client := &fakeClient{}
	b := &Bot{
		client: client,
		cfg: &config.Config{
			AdminChatID:  testAdminChat,
			ModeratorIDs: map[int64]bool{testModeratorChat: true},
		},
		storage:    store,
		broadcasts: broadcast.NewManager(),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, store, client
}

func seedRecipients(t *testing.T, store *storage.Storage, chatIDs ...int64) {
	t.Helper()
	for _, id := range chatIDs {
		if err := store.UpsertUser(id, ""); err != nil {
			t.Fatalf("seed user %d: %v", id, err)
		}
	}
}

func privateMessage(chatID int64, username, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   1,
			Text: text,
			Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
			From: &models.User{ID: chatID, Username: username},
		},
	}
}

func runMiddleware(b *Bot, update *models.Update) bool {
	called := false
	next := func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		called = true
	}
	b.trackUsers(next)(context.Background(), nil, update)
	return called
}

func TestTrackUsersRecordsPrivateChats(t *testing.T) {
	b, store, _ := newTestBot(t)

	for i := 0; i < 3; i++ {
		if !runMiddleware(b, privateMessage(10, "alice", "hello")) {
			t.Fatal("middleware must always call the next handler")
		}
	}

	count, err := store.CountUsers()
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one directory row, got %d", count)
	}

	user, err := store.GetUser(10)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("expected username alice, got %q", user.Username)
	}
}

func TestTrackUsersIgnoresGroupChats(t *testing.T) {
	b, store, _ := newTestBot(t)

	update := privateMessage(20, "bob", "hi")
	update.Message.Chat.Type = models.ChatTypeGroup
	runMiddleware(b, update)

	if count, _ := store.CountUsers(); count != 0 {
		t.Fatalf("group chats must not enter the directory, got %d rows", count)
	}
}

func TestTrackUsersClearsWaitStateOnCommand(t *testing.T) {
	b, _, _ := newTestBot(t)

	b.broadcasts.SetWaiting(30)
	runMiddleware(b, privateMessage(30, "mod", "/start"))

	if b.broadcasts.IsWaiting(30) {
		t.Fatal("a command must abandon the pending broadcast")
	}
}

func TestTrackUsersKeepsWaitStateForContent(t *testing.T) {
	b, _, _ := newTestBot(t)

	b.broadcasts.SetWaiting(40)
	runMiddleware(b, privateMessage(40, "mod", "broadcast body"))

	if !b.broadcasts.IsWaiting(40) {
		t.Fatal("plain content must leave the wait state for the default handler")
	}
}

func TestDefaultHandlerConsumesOnlyWaitingChats(t *testing.T) {
	b, _, client := newTestBot(t)

	b.defaultHandler(context.Background(), nil, privateMessage(testModeratorChat, "mod", "unsolicited"))

	if len(client.sent)+len(client.copied) != 0 {
		t.Fatal("a chat outside the wait state must be ignored")
	}
	if b.broadcasts.PendingCount() != 0 {
		t.Fatal("no request should be created for an ignored message")
	}
}

func TestAdminSubmissionDeliversImmediately(t *testing.T) {
	b, store, client := newTestBot(t)
	seedRecipients(t, store, 101, 102, 103)

	b.broadcasts.SetWaiting(testAdminChat)
	b.defaultHandler(context.Background(), nil, privateMessage(testAdminChat, "boss", "post"))

	if got := b.broadcasts.PendingCount(); got != 0 {
		t.Fatalf("admin content must not enter moderation, got %d pending", got)
	}
	if len(client.copied) != 3 {
		t.Fatalf("expected 3 copies to recipients, got %d", len(client.copied))
	}

	progress := client.sentTo(testAdminChat)
	if len(progress) != 2 {
		t.Fatalf("expected start and summary reports, got %d messages", len(progress))
	}
	if !strings.Contains(progress[1], "3") {
		t.Fatalf("summary should count 3 deliveries, got %q", progress[1])
	}
}

func TestModeratorSubmissionEntersModeration(t *testing.T) {
	b, _, client := newTestBot(t)

	b.broadcasts.SetWaiting(testModeratorChat)
	b.defaultHandler(context.Background(), nil, privateMessage(testModeratorChat, "mod", "post"))

	if got := b.broadcasts.PendingCount(); got != 1 {
		t.Fatalf("expected exactly one pending request, got %d", got)
	}

	// One preview copy to the admin chat, nothing to the user directory.
	if len(client.copied) != 1 {
		t.Fatalf("expected a single preview copy, got %d", len(client.copied))
	}
	if id, ok := client.copied[0].ChatID.(int64); !ok || id != testAdminChat {
		t.Fatalf("preview must go to the admin chat, got %v", client.copied[0].ChatID)
	}

	var prompt *bot.SendMessageParams
	for _, p := range client.sent {
		if id, ok := p.ChatID.(int64); ok && id == testAdminChat {
			prompt = p
		}
	}
	if prompt == nil || prompt.ReplyMarkup == nil {
		t.Fatal("admin must receive the decision prompt with a keyboard")
	}

	ack := client.sentTo(testModeratorChat)
	if len(ack) != 1 || ack[0] != underReviewText("en") {
		t.Fatalf("moderator must get the under-review ack, got %v", ack)
	}
}

func TestDecisionOnUnknownRequestIsStale(t *testing.T) {
	b, _, client := newTestBot(t)

	cb := &models.CallbackQuery{ID: "cb1", From: models.User{ID: testAdminChat}}
	b.handleDecision(context.Background(), cb, "missing", true)

	if len(client.answered) != 1 {
		t.Fatalf("expected one callback answer, got %d", len(client.answered))
	}
	if client.answered[0].Text != staleRequestText {
		t.Fatalf("expected stale notice, got %q", client.answered[0].Text)
	}
	if len(client.copied)+len(client.sent) != 0 {
		t.Fatal("a stale decision must not trigger any delivery")
	}
}

func TestApproveDeliversAndNotifiesModerator(t *testing.T) {
	b, store, client := newTestBot(t)
	seedRecipients(t, store, 201, 202)

	req := b.broadcasts.AddPending(testModeratorChat, "mod", broadcast.Content{
		ChatID:    testModeratorChat,
		MessageID: 5,
	})

	cb := &models.CallbackQuery{
		ID:      "cb2",
		From:    models.User{ID: testAdminChat},
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{ID: 9, Chat: models.Chat{ID: testAdminChat}}},
	}
	b.handleDecision(context.Background(), cb, req.ID, true)

	if b.broadcasts.PendingCount() != 0 {
		t.Fatal("an approved request must leave the pending set")
	}
	if len(client.copied) != 2 {
		t.Fatalf("expected fan-out to 2 recipients, got %d copies", len(client.copied))
	}
	if len(client.edited) != 1 || !strings.Contains(client.edited[0].Text, "@mod") {
		t.Fatalf("decision message should be edited with the submitter, got %+v", client.edited)
	}

	modMsgs := client.sentTo(testModeratorChat)
	if len(modMsgs) != 1 || modMsgs[0] != approvedText("en") {
		t.Fatalf("moderator must be told about the approval, got %v", modMsgs)
	}
}

func TestRejectSkipsDelivery(t *testing.T) {
	b, store, client := newTestBot(t)
	seedRecipients(t, store, 301)

	req := b.broadcasts.AddPending(testModeratorChat, "mod", broadcast.Content{
		ChatID:    testModeratorChat,
		MessageID: 6,
	})

	cb := &models.CallbackQuery{
		ID:      "cb3",
		From:    models.User{ID: testAdminChat},
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{ID: 9, Chat: models.Chat{ID: testAdminChat}}},
	}
	b.handleDecision(context.Background(), cb, req.ID, false)

	if len(client.copied) != 0 {
		t.Fatal("a rejected request must never reach recipients")
	}

	modMsgs := client.sentTo(testModeratorChat)
	if len(modMsgs) != 1 || modMsgs[0] != rejectedText("en") {
		t.Fatalf("moderator must be told about the rejection, got %v", modMsgs)
	}
}

func TestNonAdminDecisionIsIgnored(t *testing.T) {
	b, _, client := newTestBot(t)

	req := b.broadcasts.AddPending(testModeratorChat, "mod", broadcast.Content{
		ChatID:    testModeratorChat,
		MessageID: 7,
	})

	cb := &models.CallbackQuery{ID: "cb4", From: models.User{ID: testModeratorChat}}
	b.handleDecision(context.Background(), cb, req.ID, true)

	if b.broadcasts.PendingCount() != 1 {
		t.Fatal("only the admin may resolve a pending request")
	}
	if len(client.copied)+len(client.edited) != 0 {
		t.Fatal("a non-admin decision must have no effect")
	}
}

func TestDeliverReportsRecipientListFailure(t *testing.T) {
	b, store, client := newTestBot(t)
	store.Close()

	b.deliver(context.Background(), testAdminChat, broadcast.Content{ChatID: testAdminChat, MessageID: 1})

	msgs := client.sentTo(testAdminChat)
	if len(msgs) != 1 || msgs[0] != deliveryFailedText("en") {
		t.Fatalf("expected a delivery failure notice, got %v", msgs)
	}
}

func TestSendFallsBackToTextForm(t *testing.T) {
	b, _, client := newTestBot(t)

	if err := b.Send(context.Background(), 55, broadcast.Content{Text: "inline body"}); err != nil {
		t.Fatalf("send text content: %v", err)
	}
	if len(client.sent) != 1 || len(client.copied) != 0 {
		t.Fatal("text content must be sent, not copied")
	}

	client.sendErr = errors.New("blocked")
	if err := b.Send(context.Background(), 56, broadcast.Content{Text: "inline body"}); err == nil {
		t.Fatal("send errors must propagate to the fan-out tally")
	}
}

func TestModerationTextsNameTheSubmitter(t *testing.T) {
	if got := moderationApprovedText("mod"); !strings.Contains(got, "@mod") {
		t.Fatalf("expected submitter mention, got %q", got)
	}
	for _, text := range []string{
		moderationPromptText(""),
		moderationApprovedText(""),
		moderationRejectedText(""),
	} {
		if strings.Contains(text, "@") {
			t.Fatalf("missing username must not render a bare @: %q", text)
		}
	}
}

func TestHelpTextIsRoleSensitive(t *testing.T) {
	adminHelp := helpText("en", roleAdmin)
	modHelp := helpText("en", roleModerator)
	userHelp := helpText("en", roleUser)

	if !strings.Contains(adminHelp, "/admin") {
		t.Fatal("admin help should mention /admin")
	}
	if strings.Contains(modHelp, "/admin") {
		t.Fatal("moderator help must not offer /admin")
	}
	if !strings.Contains(modHelp, "/broadcast") {
		t.Fatal("moderator help should mention /broadcast")
	}
	if strings.Contains(userHelp, "/broadcast") {
		t.Fatal("user help must not offer /broadcast")
	}
}

func TestHelpTextLocalized(t *testing.T) {
	if helpText("ru", roleUser) == helpText("en", roleUser) {
		t.Fatal("expected distinct ru and en help texts")
	}
}

func TestApproveRejectKeyboardTagsRequestID(t *testing.T) {
	kb := ApproveRejectKeyboard("abc-123")

	if len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard shape: %+v", kb.InlineKeyboard)
	}
	if kb.InlineKeyboard[0][0].CallbackData != "approve_abc-123" {
		t.Fatalf("unexpected approve data %q", kb.InlineKeyboard[0][0].CallbackData)
	}
	if kb.InlineKeyboard[0][1].CallbackData != "reject_abc-123" {
		t.Fatalf("unexpected reject data %q", kb.InlineKeyboard[0][1].CallbackData)
	}
}
