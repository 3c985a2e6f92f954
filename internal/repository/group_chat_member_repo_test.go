package repository

import (
	"testing"

	"github.com/ourclass/backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func seedMembers(t *testing.T, repo GroupChatMemberRepository, roomID uint64, userIDs ...string) {
	t.Helper()
	for _, id := range userIDs {
		err := repo.Create(&domain.GroupChatMember{RoomID: roomID, UserID: id})
		assert.NoError(t, err)
	}
}

func TestAdvanceCursor_NeverDecreases(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatMemberRepository(db)
	seedMembers(t, repo, 1, "alice")

	assert.NoError(t, repo.AdvanceCursor(1, "alice", 5))

	member, err := repo.FindByRoomAndUser(1, "alice")
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), member.LastReadMessageID)

	// A stale retry with an older message ID is a no-op
	assert.NoError(t, repo.AdvanceCursor(1, "alice", 3))

	member, err = repo.FindByRoomAndUser(1, "alice")
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), member.LastReadMessageID)

	assert.NoError(t, repo.AdvanceCursor(1, "alice", 9))

	member, err = repo.FindByRoomAndUser(1, "alice")
	assert.NoError(t, err)
	assert.Equal(t, uint64(9), member.LastReadMessageID)
}

func TestCountUnreadMembers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatMemberRepository(db)
	seedMembers(t, repo, 1, "alice", "bob", "carol")
	seedMembers(t, repo, 2, "dave")

	assert.NoError(t, repo.AdvanceCursor(1, "alice", 7))
	assert.NoError(t, repo.AdvanceCursor(1, "bob", 4))

	// carol at 0 and bob at 4 have not reached message 7
	count, err := repo.CountUnreadMembers(1, 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountUnreadMembers(1, 4)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// members of other rooms never count
	count, err = repo.CountUnreadMembers(2, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemberLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupChatMemberRepository(db)
	seedMembers(t, repo, 1, "alice", "bob")

	ok, err := repo.Exists(1, "alice")
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, repo.Delete(1, "alice"))

	ok, err = repo.Exists(1, "alice")
	assert.NoError(t, err)
	assert.False(t, ok)

	// rejoin starts over with a zero cursor
	seedMembers(t, repo, 1, "alice")
	member, err := repo.FindByRoomAndUser(1, "alice")
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), member.LastReadMessageID)

	members, err := repo.FindByRoom(1)
	assert.NoError(t, err)
	assert.Len(t, members, 2)
}
