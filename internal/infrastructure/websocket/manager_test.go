package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"uninest/internal/domain/entity"
	"uninest/internal/infrastructure/eventbus"
	"uninest/pkg/errors"
)

type fakeDirectory struct {
	conversations map[string]*entity.Conversation
}

func (d *fakeDirectory) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	conversation, ok := d.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conversation, nil
}

type deliveredCall struct {
	ConversationID string
	MessageID      string
	UserID         string
}

type fakeChatService struct {
	mu        sync.Mutex
	delivered chan deliveredCall
	reads     []deliveredCall
	typings   int
}

func newFakeChatService() *fakeChatService {
	return &fakeChatService{delivered: make(chan deliveredCall, 8)}
}

func (s *fakeChatService) MarkDelivered(ctx context.Context, conversationID, messageID, userID string) error {
	s.delivered <- deliveredCall{conversationID, messageID, userID}
	return nil
}

func (s *fakeChatService) MarkRead(ctx context.Context, conversationID, messageID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, deliveredCall{conversationID, messageID, userID})
	return nil
}

func (s *fakeChatService) Typing(ctx context.Context, conversationID, userID string, typing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typings++
	return nil
}

type nullPublisher struct{}

func (nullPublisher) PublishMessageCreated(ctx context.Context, event eventbus.ChatEvent) error {
	return nil
}
func (nullPublisher) PublishStatusChanged(ctx context.Context, event eventbus.StatusEvent) error {
	return nil
}
func (nullPublisher) PublishTyping(ctx context.Context, event eventbus.TypingEvent) error { return nil }
func (nullPublisher) PublishPresence(ctx context.Context, event eventbus.PresenceEvent) error {
	return nil
}

func newTestManager() (*Manager, *fakeChatService) {
	directory := &fakeDirectory{conversations: map[string]*entity.Conversation{
		"listing-42:alice:bob": {
			ID:           "listing-42:alice:bob",
			ParticipantA: "alice",
			ParticipantB: "bob",
			ListingID:    "listing-42",
			Active:       true,
		},
	}}
	chat := newFakeChatService()
	return NewManager(directory, chat, nullPublisher{}), chat
}

func newTestClient(userID string) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 16)}
}

func drainFrame(t *testing.T, client *Client) Frame {
	t.Helper()
	select {
	case payload := <-client.Send:
		var frame Frame
		assert.NoError(t, json.Unmarshal(payload, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return Frame{}
	}
}

func TestSubscribeRefusesAnonymousSessions(t *testing.T) {
	m, _ := newTestManager()
	client := newTestClient("")
	m.addClient(context.Background(), client)

	m.HandleClientFrame(client, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))

	frame := drainFrame(t, client)
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, "authentication required", frame.Error)
}

func TestSubscribeRefusesNonParticipants(t *testing.T) {
	m, _ := newTestManager()
	client := newTestClient("mallory")
	m.addClient(context.Background(), client)

	m.HandleClientFrame(client, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))

	frame := drainFrame(t, client)
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, "not a participant", frame.Error)
}

func TestSubscribeAcksParticipants(t *testing.T) {
	m, _ := newTestManager()
	client := newTestClient("alice")
	m.addClient(context.Background(), client)

	m.HandleClientFrame(client, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))

	frame := drainFrame(t, client)
	assert.Equal(t, FrameAck, frame.Type)
	assert.Equal(t, "listing-42:alice:bob", frame.ConversationID)
}

func TestDeliveryToRecipientConfirmsDelivery(t *testing.T) {
	m, chat := newTestManager()
	ctx := context.Background()

	alice := newTestClient("alice")
	bob := newTestClient("bob")
	m.addClient(ctx, alice)
	m.addClient(ctx, bob)

	m.HandleClientFrame(alice, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))
	m.HandleClientFrame(bob, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))
	drainFrame(t, alice)
	drainFrame(t, bob)

	data, _ := json.Marshal(eventbus.ChatEvent{
		MessageID:      "msg-1",
		ConversationID: "listing-42:alice:bob",
		Sender:         eventbus.EventSender{ID: "alice"},
		Content:        "hello",
		Status:         entity.StatusSent,
	})
	payload, _ := json.Marshal(eventbus.Envelope{
		Event:          eventbus.EventMessageCreated,
		ConversationID: "listing-42:alice:bob",
		Data:           data,
	})

	m.DeliverConversation("listing-42:alice:bob", payload)

	// Both subscribed sessions receive the event.
	assert.Equal(t, payload, <-alice.Send)
	assert.Equal(t, payload, <-bob.Send)

	// Only the recipient's session confirms delivery, never the sender's.
	select {
	case call := <-chat.delivered:
		assert.Equal(t, "bob", call.UserID)
		assert.Equal(t, "msg-1", call.MessageID)
		assert.Equal(t, "listing-42:alice:bob", call.ConversationID)
	case <-time.After(time.Second):
		t.Fatal("delivery was never confirmed")
	}

	select {
	case call := <-chat.delivered:
		t.Fatalf("unexpected delivery confirmation for %s", call.UserID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStatusEventsAreForwardedWithoutConfirmingDelivery(t *testing.T) {
	m, chat := newTestManager()
	ctx := context.Background()

	alice := newTestClient("alice")
	m.addClient(ctx, alice)
	m.HandleClientFrame(alice, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))
	drainFrame(t, alice)

	data, _ := json.Marshal(eventbus.StatusEvent{
		MessageID:      "msg-1",
		ConversationID: "listing-42:alice:bob",
		UserID:         "bob",
		Status:         entity.StatusRead,
	})
	payload, _ := json.Marshal(eventbus.Envelope{
		Event:          eventbus.EventStatusChanged,
		ConversationID: "listing-42:alice:bob",
		Data:           data,
	})

	m.DeliverConversation("listing-42:alice:bob", payload)
	assert.Equal(t, payload, <-alice.Send)

	select {
	case <-chat.delivered:
		t.Fatal("status events must not trigger delivery confirmation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMarkReadFrameRequiresSubscription(t *testing.T) {
	m, chat := newTestManager()
	ctx := context.Background()

	bob := newTestClient("bob")
	m.addClient(ctx, bob)

	m.HandleClientFrame(bob, []byte(`{"type":"mark_read","conversation_id":"listing-42:alice:bob","message_id":"msg-1"}`))
	frame := drainFrame(t, bob)
	assert.Equal(t, FrameError, frame.Type)
	assert.Empty(t, chat.reads)

	m.HandleClientFrame(bob, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))
	drainFrame(t, bob)

	m.HandleClientFrame(bob, []byte(`{"type":"mark_read","conversation_id":"listing-42:alice:bob","message_id":"msg-1"}`))
	chat.mu.Lock()
	defer chat.mu.Unlock()
	assert.Len(t, chat.reads, 1)
	assert.Equal(t, "bob", chat.reads[0].UserID)
}

func TestPresenceOnlyReachesAuthenticatedSessions(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	alice := newTestClient("alice")
	anonymous := newTestClient("")
	m.addClient(ctx, alice)
	m.addClient(ctx, anonymous)

	payload := []byte(`{"event":"presence.online","data":{"userId":"bob","online":true}}`)
	m.DeliverPresence(payload)

	assert.Equal(t, payload, <-alice.Send)
	select {
	case <-anonymous.Send:
		t.Fatal("anonymous sessions must not receive presence")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	alice := newTestClient("alice")
	m.addClient(ctx, alice)
	m.HandleClientFrame(alice, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))
	drainFrame(t, alice)

	m.HandleClientFrame(alice, []byte(`{"type":"unsubscribe","conversation_id":"listing-42:alice:bob"}`))
	m.DeliverConversation("listing-42:alice:bob", []byte(`{"event":"message.created","data":{}}`))

	select {
	case <-alice.Send:
		t.Fatal("unsubscribed session received conversation traffic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRemovedClientIsNotSentTo(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	alice := newTestClient("alice")
	m.addClient(ctx, alice)
	m.HandleClientFrame(alice, []byte(`{"type":"subscribe","conversation_id":"listing-42:alice:bob"}`))
	drainFrame(t, alice)

	m.removeClient(ctx, alice)
	m.DeliverConversation("listing-42:alice:bob", []byte(`{"event":"message.created","data":{}}`))
}
