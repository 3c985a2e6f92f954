package service

import (
	"errors"
	"testing"
	"time"

	"github.com/ourclass/backend/internal/common"
	"github.com/ourclass/backend/internal/domain"
	"github.com/ourclass/backend/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mock ChatRoomRepository ---

type mockChatRoomRepo struct {
	mock.Mock
}

func (m *mockChatRoomRepo) GetOrCreate(user1ID, user2ID string) (*domain.ChatRoom, error) {
	args := m.Called(user1ID, user2ID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatRoom), args.Error(1)
}

func (m *mockChatRoomRepo) FindByID(id uint64) (*domain.ChatRoom, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatRoom), args.Error(1)
}

func (m *mockChatRoomRepo) FindByUser(userID string) ([]domain.ChatRoom, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatRoom), args.Error(1)
}

func (m *mockChatRoomRepo) UpdatePreview(roomID uint64, preview string) error {
	return m.Called(roomID, preview).Error(0)
}

func (m *mockChatRoomRepo) DeleteWithMessages(roomID uint64) error {
	return m.Called(roomID).Error(0)
}

// --- Mock ChatMessageRepository ---

type mockChatMsgRepo struct {
	mock.Mock
}

func (m *mockChatMsgRepo) Create(msg *domain.ChatMessage) error {
	args := m.Called(msg)
	if args.Error(0) == nil && msg.ID == 0 {
		msg.ID = 1
	}
	return args.Error(0)
}

func (m *mockChatMsgRepo) FindByID(id uint64) (*domain.ChatMessage, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *mockChatMsgRepo) FindByRoomAndMarkRead(roomID uint64, viewerID string) ([]domain.ChatMessage, error) {
	args := m.Called(roomID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

func (m *mockChatMsgRepo) CountUnread(roomID uint64, viewerID string) (int64, error) {
	args := m.Called(roomID, viewerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockChatMsgRepo) MarkAllAsRead(roomIDs []uint64, viewerID string) error {
	return m.Called(roomIDs, viewerID).Error(0)
}

// UpdateWithLock runs fn against the message seeded via On("UpdateWithLock", id),
// mirroring the real repository's locked read-modify-write.
func (m *mockChatMsgRepo) UpdateWithLock(id uint64, fn func(msg *domain.ChatMessage) error) (*domain.ChatMessage, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	msg := args.Get(0).(*domain.ChatMessage)
	if err := fn(msg); err != nil {
		return nil, err
	}
	return msg, args.Error(1)
}

// --- Mock Directory ---

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Lookup(userID string) (*domain.UserInfo, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserInfo), args.Error(1)
}

func (m *mockDirectory) LookupMany(userIDs []string) (map[string]domain.UserInfo, error) {
	args := m.Called(userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.UserInfo), args.Error(1)
}

// --- Mock NotificationService ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) CreateAndSend(recipientID, senderID, senderName, notifType, content string, referenceID uint64) error {
	return m.Called(recipientID, senderID, senderName, notifType, content, referenceID).Error(0)
}

func (m *mockNotifier) GetList(userID string, page, limit int) (*domain.NotificationListResponse, error) {
	args := m.Called(userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NotificationListResponse), args.Error(1)
}

func (m *mockNotifier) GetUnreadCount(userID string) (*domain.NotificationSummaryResponse, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NotificationSummaryResponse), args.Error(1)
}

func (m *mockNotifier) MarkAsRead(userID string, id uint64) error {
	return m.Called(userID, id).Error(0)
}

func (m *mockNotifier) MarkAllAsRead(userID string) error {
	return m.Called(userID).Error(0)
}

func (m *mockNotifier) Delete(userID string, id uint64) error {
	return m.Called(userID, id).Error(0)
}

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(channel string, event *ws.Event) {
	m.Called(channel, event)
}

// --- Helpers ---

func newChatFixture() (*mockChatRoomRepo, *mockChatMsgRepo, *mockDirectory, *mockNotifier, *mockPublisher, ChatService) {
	roomRepo := new(mockChatRoomRepo)
	msgRepo := new(mockChatMsgRepo)
	directory := new(mockDirectory)
	notifier := new(mockNotifier)
	publisher := new(mockPublisher)
	svc := NewChatService(roomRepo, msgRepo, directory, notifier, publisher)
	return roomRepo, msgRepo, directory, notifier, publisher, svc
}

func userInfo(id, name string) *domain.UserInfo {
	return &domain.UserInfo{UserID: id, Name: name}
}

// --- GetOrCreateRoom ---

func TestGetOrCreateRoom_Success(t *testing.T) {
	roomRepo, _, directory, _, _, svc := newChatFixture()

	directory.On("Lookup", "alice").Return(userInfo("alice", "Alice"), nil)
	directory.On("Lookup", "bob").Return(userInfo("bob", "Bob"), nil)
	roomRepo.On("GetOrCreate", "alice", "bob").
		Return(&domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}, nil)

	room, err := svc.GetOrCreateRoom("alice", "bob")

	assert.NoError(t, err)
	assert.Equal(t, uint64(1), room.ID)
	roomRepo.AssertExpectations(t)
	directory.AssertExpectations(t)
}

func TestGetOrCreateRoom_SelfChat(t *testing.T) {
	_, _, _, _, _, svc := newChatFixture()

	room, err := svc.GetOrCreateRoom("alice", "alice")

	assert.Nil(t, room)
	assert.ErrorIs(t, err, common.ErrSelfChat)
}

func TestGetOrCreateRoom_UnknownUser(t *testing.T) {
	_, _, directory, _, _, svc := newChatFixture()

	directory.On("Lookup", "alice").Return(userInfo("alice", "Alice"), nil)
	directory.On("Lookup", "ghost").Return(nil, nil)

	room, err := svc.GetOrCreateRoom("alice", "ghost")

	assert.Nil(t, room)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

// --- GetMyRooms ---

func TestGetMyRooms_Success(t *testing.T) {
	roomRepo, msgRepo, directory, _, _, svc := newChatFixture()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rooms := []domain.ChatRoom{
		{ID: 1, User1ID: "alice", User2ID: "bob", LastMessage: "hi", LastMessageAt: &at},
	}
	roomRepo.On("FindByUser", "alice").Return(rooms, nil)
	directory.On("Lookup", "bob").Return(userInfo("bob", "Bob"), nil)
	msgRepo.On("CountUnread", uint64(1), "alice").Return(int64(3), nil)

	result, err := svc.GetMyRooms("alice")

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, "Bob", result[0].OtherUser.Name)
	assert.Equal(t, int64(3), result[0].UnreadCount)
	assert.Equal(t, "hi", result[0].LastMessage)
	roomRepo.AssertExpectations(t)
}

func TestGetMyRooms_UnknownCounterpart(t *testing.T) {
	roomRepo, msgRepo, directory, _, _, svc := newChatFixture()

	rooms := []domain.ChatRoom{{ID: 1, User1ID: "alice", User2ID: "gone"}}
	roomRepo.On("FindByUser", "alice").Return(rooms, nil)
	directory.On("Lookup", "gone").Return(nil, nil)
	msgRepo.On("CountUnread", uint64(1), "alice").Return(int64(0), nil)

	result, err := svc.GetMyRooms("alice")

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	// Deleted account: bare ID, empty display name
	assert.Equal(t, "gone", result[0].OtherUser.UserID)
	assert.Empty(t, result[0].OtherUser.Name)
}

// --- SendMessage ---

func TestSendMessage_Success(t *testing.T) {
	roomRepo, msgRepo, directory, notifier, publisher, svc := newChatFixture()

	room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
	roomRepo.On("FindByID", uint64(1)).Return(room, nil)
	directory.On("Lookup", "alice").Return(userInfo("alice", "Alice"), nil)
	msgRepo.On("Create", mock.AnythingOfType("*domain.ChatMessage")).Return(nil)
	roomRepo.On("UpdatePreview", uint64(1), "hello").Return(nil)
	publisher.On("Publish", "chat:1", mock.AnythingOfType("*ws.Event")).Return()

	notified := make(chan struct{})
	notifier.On("CreateAndSend", "bob", "alice", "Alice", domain.NotificationTypeChat,
		"Alice님이 메시지를 보냈습니다", uint64(1)).
		Run(func(mock.Arguments) { close(notified) }).
		Return(nil)

	resp, err := svc.SendMessage(1, "alice", "hello")

	assert.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "Alice", resp.SenderName)
	assert.False(t, resp.IsRead)

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("notification was never sent")
	}
	roomRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSendMessage_NotMember(t *testing.T) {
	roomRepo, _, _, _, _, svc := newChatFixture()

	room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
	roomRepo.On("FindByID", uint64(1)).Return(room, nil)

	resp, err := svc.SendMessage(1, "mallory", "hello")

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, common.ErrNotRoomMember)
}

func TestSendMessage_RoomNotFound(t *testing.T) {
	roomRepo, _, _, _, _, svc := newChatFixture()

	roomRepo.On("FindByID", uint64(99)).Return(nil, nil)

	resp, err := svc.SendMessage(99, "alice", "hello")

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, common.ErrRoomNotFound)
}

func TestSendMessage_PreviewFailureDoesNotFailSend(t *testing.T) {
	roomRepo, msgRepo, directory, notifier, publisher, svc := newChatFixture()

	room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
	roomRepo.On("FindByID", uint64(1)).Return(room, nil)
	directory.On("Lookup", "alice").Return(userInfo("alice", "Alice"), nil)
	msgRepo.On("Create", mock.AnythingOfType("*domain.ChatMessage")).Return(nil)
	roomRepo.On("UpdatePreview", uint64(1), "hello").Return(errors.New("db error"))
	publisher.On("Publish", "chat:1", mock.AnythingOfType("*ws.Event")).Return()
	notifier.On("CreateAndSend", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything).Return(nil).Maybe()

	resp, err := svc.SendMessage(1, "alice", "hello")

	assert.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestSendMessage_LongContentTruncatedInPreview(t *testing.T) {
	roomRepo, msgRepo, directory, notifier, publisher, svc := newChatFixture()

	long := ""
	for i := 0; i < 150; i++ {
		long += "가"
	}
	wantPreview := string([]rune(long)[:domain.PreviewMaxRunes]) + "..."

	room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
	roomRepo.On("FindByID", uint64(1)).Return(room, nil)
	directory.On("Lookup", "alice").Return(userInfo("alice", "Alice"), nil)
	msgRepo.On("Create", mock.AnythingOfType("*domain.ChatMessage")).Return(nil)
	roomRepo.On("UpdatePreview", uint64(1), wantPreview).Return(nil)
	publisher.On("Publish", "chat:1", mock.AnythingOfType("*ws.Event")).Return()
	notifier.On("CreateAndSend", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything).Return(nil).Maybe()

	resp, err := svc.SendMessage(1, "alice", long)

	assert.NoError(t, err)
	// The message itself keeps the full content
	assert.Equal(t, long, resp.Content)
	roomRepo.AssertExpectations(t)
}

// --- GetMessages ---

func TestGetMessages_MarksReadAfterBuildingBatch(t *testing.T) {
	roomRepo, msgRepo, directory, _, _, svc := newChatFixture()

	room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
	roomRepo.On("FindByID", uint64(1)).Return(room, nil)
	messages := []domain.ChatMessage{
		{ID: 1, ChatRoomID: 1, SenderID: "alice", Content: "hi", IsRead: true},
		{ID: 2, ChatRoomID: 1, SenderID: "alice", Content: "you there?", IsRead: false},
	}
	msgRepo.On("FindByRoomAndMarkRead", uint64(1), "bob").Return(messages, nil)
	directory.On("LookupMany", []string{"alice", "bob"}).Return(map[string]domain.UserInfo{
		"alice": {UserID: "alice", Name: "Alice"},
		"bob":   {UserID: "bob", Name: "Bob"},
	}, nil)

	result, err := svc.GetMessages(1, "bob")

	assert.NoError(t, err)
	assert.Len(t, result, 2)
	// The batch shows the state before this visit marked anything
	assert.True(t, result[0].IsRead)
	assert.False(t, result[1].IsRead)
	msgRepo.AssertExpectations(t)
}

func TestGetMessages_VisibilityPerViewer(t *testing.T) {
	messages := []domain.ChatMessage{
		{ID: 1, ChatRoomID: 1, SenderID: "alice", Content: "normal"},
		{ID: 2, ChatRoomID: 1, SenderID: "alice", Content: "withdrawn", CompletelyDeleted: true},
		{ID: 3, ChatRoomID: 1, SenderID: "alice", Content: "sender-hidden", IsRead: true, DeletedBySender: true},
	}
	names := map[string]domain.UserInfo{
		"alice": {UserID: "alice", Name: "Alice"},
		"bob":   {UserID: "bob", Name: "Bob"},
	}

	run := func(viewerID string) []*domain.ChatMessageResponse {
		roomRepo, msgRepo, directory, _, _, svc := newChatFixture()
		room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
		roomRepo.On("FindByID", uint64(1)).Return(room, nil)
		msgRepo.On("FindByRoomAndMarkRead", uint64(1), viewerID).Return(messages, nil)
		directory.On("LookupMany", []string{"alice", "bob"}).Return(names, nil)

		result, err := svc.GetMessages(1, viewerID)
		assert.NoError(t, err)
		return result
	}

	// The sender no longer sees the message they cleaned up
	forAlice := run("alice")
	assert.Len(t, forAlice, 1)
	assert.Equal(t, "normal", forAlice[0].Content)

	// The recipient still sees it; only the withdrawn one is gone
	forBob := run("bob")
	assert.Len(t, forBob, 2)
	assert.Equal(t, "normal", forBob[0].Content)
	assert.Equal(t, "sender-hidden", forBob[1].Content)
}

func TestGetMessages_NotMember(t *testing.T) {
	roomRepo, _, _, _, _, svc := newChatFixture()

	room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
	roomRepo.On("FindByID", uint64(1)).Return(room, nil)

	result, err := svc.GetMessages(1, "mallory")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrNotRoomMember)
}

// --- DeleteMessage ---

func TestDeleteMessage_UnreadIsWithdrawnForBoth(t *testing.T) {
	_, msgRepo, _, _, _, svc := newChatFixture()

	msg := &domain.ChatMessage{ID: 1, ChatRoomID: 1, SenderID: "alice", IsRead: false}
	msgRepo.On("UpdateWithLock", uint64(1)).Return(msg, nil)

	err := svc.DeleteMessage(1, "alice")

	assert.NoError(t, err)
	assert.True(t, msg.CompletelyDeleted)
	assert.False(t, msg.DeletedBySender)
}

func TestDeleteMessage_ReadDisappearsForSenderOnly(t *testing.T) {
	_, msgRepo, _, _, _, svc := newChatFixture()

	msg := &domain.ChatMessage{ID: 1, ChatRoomID: 1, SenderID: "alice", IsRead: true}
	msgRepo.On("UpdateWithLock", uint64(1)).Return(msg, nil)

	err := svc.DeleteMessage(1, "alice")

	assert.NoError(t, err)
	assert.False(t, msg.CompletelyDeleted)
	assert.True(t, msg.DeletedBySender)
}

func TestDeleteMessage_NotSender(t *testing.T) {
	_, msgRepo, _, _, _, svc := newChatFixture()

	msg := &domain.ChatMessage{ID: 1, ChatRoomID: 1, SenderID: "alice"}
	msgRepo.On("UpdateWithLock", uint64(1)).Return(msg, nil)

	err := svc.DeleteMessage(1, "bob")

	assert.ErrorIs(t, err, common.ErrNotSender)
	assert.False(t, msg.CompletelyDeleted)
	assert.False(t, msg.DeletedBySender)
}

func TestDeleteMessage_NotFound(t *testing.T) {
	_, msgRepo, _, _, _, svc := newChatFixture()

	msgRepo.On("UpdateWithLock", uint64(99)).Return(nil, nil)

	err := svc.DeleteMessage(99, "alice")

	assert.ErrorIs(t, err, common.ErrMessageNotFound)
}

// --- MarkAllAsRead ---

func TestMarkAllAsRead_CoversEveryRoom(t *testing.T) {
	roomRepo, msgRepo, _, _, _, svc := newChatFixture()

	rooms := []domain.ChatRoom{
		{ID: 1, User1ID: "alice", User2ID: "bob"},
		{ID: 7, User1ID: "alice", User2ID: "carol"},
	}
	roomRepo.On("FindByUser", "alice").Return(rooms, nil)
	msgRepo.On("MarkAllAsRead", []uint64{1, 7}, "alice").Return(nil)

	err := svc.MarkAllAsRead("alice")

	assert.NoError(t, err)
	msgRepo.AssertExpectations(t)
}

// --- LeaveRoom ---

func TestLeaveRoom_HardDeletesForBoth(t *testing.T) {
	roomRepo, _, _, _, _, svc := newChatFixture()

	room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
	roomRepo.On("FindByID", uint64(1)).Return(room, nil)
	roomRepo.On("DeleteWithMessages", uint64(1)).Return(nil)

	err := svc.LeaveRoom(1, "alice")

	assert.NoError(t, err)
	roomRepo.AssertExpectations(t)
}

func TestLeaveRoom_NotMember(t *testing.T) {
	roomRepo, _, _, _, _, svc := newChatFixture()

	room := &domain.ChatRoom{ID: 1, User1ID: "alice", User2ID: "bob"}
	roomRepo.On("FindByID", uint64(1)).Return(room, nil)

	err := svc.LeaveRoom(1, "mallory")

	assert.ErrorIs(t, err, common.ErrNotRoomMember)
	roomRepo.AssertNotCalled(t, "DeleteWithMessages", uint64(1))
}
