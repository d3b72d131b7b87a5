package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"chat-realtime/internal/database"
	"chat-realtime/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedUsers(t *testing.T, db *gorm.DB, names ...string) []uint {
	t.Helper()
	repo := NewUserRepository(db)
	ids := make([]uint, 0, len(names))
	for _, n := range names {
		u := &models.User{Username: n, Email: n + "@example.com"}
		require.NoError(t, repo.Create(context.Background(), u))
		ids = append(ids, u.ID)
	}
	return ids
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	ids := seedUsers(t, db, "alice", "bob")

	u, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = repo.Create(ctx, &models.User{Username: "alice2", Email: "alice@example.com"})
	assert.Error(t, err)

	n, err := repo.CountExisting(ctx, []uint{ids[0], ids[1], 999})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// soft-deleted users no longer resolve
	require.NoError(t, db.Delete(&models.User{}, ids[1]).Error)
	_, err = repo.FindByID(ctx, ids[1])
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChatRepository(t *testing.T) {
	db := newTestDB(t)
	chats := NewChatRepository(db)
	ctx := context.Background()
	ids := seedUsers(t, db, "alice", "bob", "carol")

	err := chats.Create(ctx, &models.Chat{}, []uint{ids[0]})
	assert.Error(t, err)

	chat := &models.Chat{Name: "team", IsGroup: true}
	require.NoError(t, chats.Create(ctx, chat, ids))

	got, err := chats.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, got.ParticipantIDs())

	_, err = chats.FindByID(ctx, 4242)
	assert.ErrorIs(t, err, models.ErrNotFound)

	ok, err := chats.IsParticipant(ctx, chat.ID, ids[1])
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = chats.IsParticipant(ctx, chat.ID, 4242)
	require.NoError(t, err)
	assert.False(t, ok)

	chatIDs, err := chats.FindChatIDsByParticipant(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, []uint{chat.ID}, chatIDs)

	require.NoError(t, chats.IncrementUnread(ctx, chat.ID, ids[0]))
	require.NoError(t, chats.IncrementUnread(ctx, chat.ID, ids[0]))
	got, err = chats.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{ids[0]: 0, ids[1]: 2, ids[2]: 2}, got.UnreadCounts())

	require.NoError(t, chats.ResetUnread(ctx, chat.ID, ids[1]))
	require.NoError(t, chats.ResetUnread(ctx, chat.ID, ids[1]))
	got, err = chats.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCounts()[ids[1]])
	assert.Equal(t, 2, got.UnreadCounts()[ids[2]])

	assert.ErrorIs(t, chats.SetLastMessage(ctx, 4242, 1), models.ErrNotFound)
}

func TestIncrementUnreadConcurrentSenders(t *testing.T) {
	db := newTestDB(t)
	chats := NewChatRepository(db)
	ctx := context.Background()
	ids := seedUsers(t, db, "alice", "bob", "carol")
	chat := &models.Chat{IsGroup: true}
	require.NoError(t, chats.Create(ctx, chat, ids))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(sender uint) {
			defer wg.Done()
			assert.NoError(t, chats.IncrementUnread(ctx, chat.ID, sender))
		}(ids[i%2])
	}
	wg.Wait()

	got, err := chats.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	counts := got.UnreadCounts()
	assert.Equal(t, 10, counts[ids[0]])
	assert.Equal(t, 10, counts[ids[1]])
	assert.Equal(t, 20, counts[ids[2]])
}

func TestMessageStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	chats := NewChatRepository(db)
	msgs := NewMessageRepository(db)
	ctx := context.Background()
	ids := seedUsers(t, db, "alice", "bob")
	alice, bob := ids[0], ids[1]

	chat := &models.Chat{}
	require.NoError(t, chats.Create(ctx, chat, ids))

	m1 := &models.Message{ChatID: chat.ID, SenderID: alice, Content: "one", Type: models.MessageTypeText}
	m2 := &models.Message{ChatID: chat.ID, SenderID: alice, Content: "two", Type: models.MessageTypeText}
	own := &models.Message{ChatID: chat.ID, SenderID: bob, Content: "mine", Type: models.MessageTypeText}
	for _, m := range []*models.Message{m1, m2, own} {
		require.NoError(t, msgs.Create(ctx, m))
		assert.Equal(t, models.MessageStatusSent, m.Status)
	}
	require.NoError(t, chats.SetLastMessage(ctx, chat.ID, own.ID))

	now := time.Now().UTC().Truncate(time.Second)

	// direct delivery of m1
	moved, err := msgs.MarkDelivered(ctx, m1.ID, now)
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = msgs.MarkDelivered(ctx, m1.ID, now)
	require.NoError(t, err)
	assert.False(t, moved, "second delivered transition must be a no-op")

	// sweep for bob only catches m2; m1 is already delivered and own is bob's
	swept, err := msgs.MarkChatDelivered(ctx, chat.ID, bob, now)
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, m2.ID, swept[0].ID)
	assert.Equal(t, alice, swept[0].SenderID)

	swept, err = msgs.MarkChatDelivered(ctx, chat.ID, bob, now)
	require.NoError(t, err)
	assert.Empty(t, swept)

	// bob reads m2 and tries to read his own message
	read, err := msgs.MarkRead(ctx, chat.ID, bob, []uint{m2.ID, own.ID}, now)
	require.NoError(t, err)
	require.Len(t, read, 1)
	assert.Equal(t, m2.ID, read[0].ID)

	read, err = msgs.MarkRead(ctx, chat.ID, bob, []uint{m2.ID}, now)
	require.NoError(t, err)
	assert.Empty(t, read, "reading twice is idempotent")

	got, err := msgs.FindByID(ctx, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusRead, got.Status)
	require.NotNil(t, got.ReadAt)
	require.NotNil(t, got.DeliveredAt)

	got, err = msgs.FindByID(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusDelivered, got.Status)

	// a delivered transition never regresses a read message
	moved, err = msgs.MarkDelivered(ctx, m2.ID, now)
	require.NoError(t, err)
	assert.False(t, moved)
	got, err = msgs.FindByID(ctx, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusRead, got.Status)

	ownGot, err := msgs.FindByID(ctx, own.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusSent, ownGot.Status)
}

func TestMarkReadFromSentFillsDeliveredAt(t *testing.T) {
	db := newTestDB(t)
	chats := NewChatRepository(db)
	msgs := NewMessageRepository(db)
	ctx := context.Background()
	ids := seedUsers(t, db, "alice", "bob")

	chat := &models.Chat{}
	require.NoError(t, chats.Create(ctx, chat, ids))
	m := &models.Message{ChatID: chat.ID, SenderID: ids[0], Content: "hey", Type: models.MessageTypeText}
	require.NoError(t, msgs.Create(ctx, m))

	read, err := msgs.MarkRead(ctx, chat.ID, ids[1], []uint{m.ID}, time.Now())
	require.NoError(t, err)
	require.Len(t, read, 1)

	got, err := msgs.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusRead, got.Status)
	assert.NotNil(t, got.DeliveredAt)

	// messages from another chat are never touched
	read, err = msgs.MarkRead(ctx, chat.ID+1, ids[1], []uint{m.ID}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, read)
}

func TestListByChatPagination(t *testing.T) {
	db := newTestDB(t)
	chats := NewChatRepository(db)
	msgs := NewMessageRepository(db)
	ctx := context.Background()
	ids := seedUsers(t, db, "alice", "bob")
	chat := &models.Chat{}
	require.NoError(t, chats.Create(ctx, chat, ids))

	for i := 0; i < 5; i++ {
		require.NoError(t, msgs.Create(ctx, &models.Message{
			ChatID: chat.ID, SenderID: ids[0], Content: fmt.Sprintf("m%d", i), Type: models.MessageTypeText,
			Attachments: []models.Attachment{{Key: fmt.Sprintf("files/%d", i)}},
		}))
	}

	page, err := msgs.ListByChat(ctx, chat.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m4", page[0].Content)
	assert.Equal(t, "files/4", page[0].Attachments[0].Key)

	next, err := msgs.ListByChat(ctx, chat.ID, 10, page[1].ID)
	require.NoError(t, err)
	assert.Len(t, next, 3)
	assert.Equal(t, "m2", next[0].Content)
}
