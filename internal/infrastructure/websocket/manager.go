package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"uninest/internal/domain/entity"
	"uninest/internal/infrastructure/eventbus"
	"uninest/pkg/logger"
)

// ConversationDirectory resolves conversations for subscription
// authorization.
type ConversationDirectory interface {
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
}

// ChatService is the slice of the chat usecase the manager needs: delivery
// confirmation when an event reaches a recipient's session, read
// acknowledgment and typing relay for inbound frames.
type ChatService interface {
	MarkDelivered(ctx context.Context, conversationID, messageID, userID string) error
	MarkRead(ctx context.Context, conversationID, messageID, userID string) error
	Typing(ctx context.Context, conversationID, userID string, typing bool) error
}

// Manager owns all active WebSocket connections and their conversation
// subscriptions. It is the local delivery end of the event bus.
type Manager struct {
	clients map[*Client]bool
	// subscriptions by conversation ID; only authenticated participants
	// ever appear here.
	subs map[string]map[*Client]bool
	// connection count per authenticated user, for presence edges.
	online map[string]int

	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	directory ConversationDirectory
	chat      ChatService
	publisher eventbus.Publisher
}

func NewManager(directory ConversationDirectory, chat ChatService, publisher eventbus.Publisher) *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		subs:       make(map[string]map[*Client]bool),
		online:     make(map[string]int),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		directory:  directory,
		chat:       chat,
		publisher:  publisher,
	}
}

// Start runs the manager's registration loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.addClient(ctx, client)

			case client := <-m.Unregister:
				m.removeClient(ctx, client)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) addClient(ctx context.Context, client *Client) {
	m.mutex.Lock()
	m.clients[client] = true
	first := false
	if client.UserID != "" {
		m.online[client.UserID]++
		first = m.online[client.UserID] == 1
	}
	m.mutex.Unlock()

	logger.Info("Client registered (authenticated=%t)", client.UserID != "")

	if first {
		m.publishPresence(ctx, client.UserID, true)
	}
}

func (m *Manager) removeClient(ctx context.Context, client *Client) {
	m.mutex.Lock()
	if _, ok := m.clients[client]; !ok {
		m.mutex.Unlock()
		return
	}
	delete(m.clients, client)
	for _, members := range m.subs {
		delete(members, client)
	}
	close(client.Send)

	last := false
	if client.UserID != "" {
		m.online[client.UserID]--
		if m.online[client.UserID] <= 0 {
			delete(m.online, client.UserID)
			last = true
		}
	}
	m.mutex.Unlock()

	logger.Info("Client unregistered (authenticated=%t)", client.UserID != "")

	if last {
		m.publishPresence(ctx, client.UserID, false)
	}
}

func (m *Manager) publishPresence(ctx context.Context, userID string, online bool) {
	err := m.publisher.PublishPresence(ctx, eventbus.PresenceEvent{
		UserID:   userID,
		Online:   online,
		LastSeen: time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to publish presence for user %s: %v", userID, err)
	}
}

// HandleClientFrame processes one inbound frame from a connection.
func (m *Manager) HandleClientFrame(client *Client, payload []byte) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		m.send(client, errorFrame("invalid frame"))
		return
	}

	ctx := context.Background()

	switch frame.Type {
	case FramePing:
		m.send(client, marshalFrame(Frame{Type: FramePong}))

	case FrameSubscribe:
		m.subscribe(ctx, client, frame.ConversationID)

	case FrameUnsubscribe:
		m.unsubscribe(client, frame.ConversationID)

	case FrameTyping:
		if !m.requireSubscribed(client, frame.ConversationID) {
			return
		}
		if err := m.chat.Typing(ctx, frame.ConversationID, client.UserID, frame.Typing); err != nil {
			logger.Debug("Typing relay failed for conversation %s: %v", frame.ConversationID, err)
		}

	case FrameMarkRead:
		if !m.requireSubscribed(client, frame.ConversationID) {
			return
		}
		if err := m.chat.MarkRead(ctx, frame.ConversationID, frame.MessageID, client.UserID); err != nil {
			m.send(client, errorFrame("mark read failed"))
		}

	default:
		m.send(client, errorFrame("unsupported frame type"))
	}
}

// subscribe admits a client to a conversation's delivery set. Anonymous
// sessions and non-participants are refused; the refusal is the enforcement
// point the gate defers to.
func (m *Manager) subscribe(ctx context.Context, client *Client, conversationID string) {
	if client.UserID == "" {
		m.send(client, errorFrame("authentication required"))
		return
	}
	if conversationID == "" {
		m.send(client, errorFrame("conversation_id required"))
		return
	}

	conversation, err := m.directory.GetByID(ctx, conversationID)
	if err != nil {
		m.send(client, errorFrame("conversation not found"))
		return
	}
	if !conversation.HasParticipant(client.UserID) {
		m.send(client, errorFrame("not a participant"))
		return
	}

	m.mutex.Lock()
	if m.subs[conversationID] == nil {
		m.subs[conversationID] = make(map[*Client]bool)
	}
	m.subs[conversationID][client] = true
	m.mutex.Unlock()

	m.send(client, marshalFrame(Frame{Type: FrameAck, ConversationID: conversationID}))
}

func (m *Manager) unsubscribe(client *Client, conversationID string) {
	m.mutex.Lock()
	if members, ok := m.subs[conversationID]; ok {
		delete(members, client)
	}
	m.mutex.Unlock()
}

func (m *Manager) requireSubscribed(client *Client, conversationID string) bool {
	m.mutex.RLock()
	subscribed := m.subs[conversationID][client]
	m.mutex.RUnlock()

	if !subscribed {
		m.send(client, errorFrame("not subscribed"))
	}
	return subscribed
}

// DeliverConversation fans a bus payload out to this instance's subscribers
// of the conversation. Receiving a message.created event on a recipient's
// session confirms delivery, which advances the ledger.
func (m *Manager) DeliverConversation(conversationID string, payload []byte) {
	m.mutex.RLock()
	members := make([]*Client, 0, len(m.subs[conversationID]))
	for client := range m.subs[conversationID] {
		members = append(members, client)
	}
	m.mutex.RUnlock()

	if len(members) == 0 {
		return
	}

	var env eventbus.Envelope
	confirmDelivery := false
	senderID := ""
	messageID := ""
	if err := json.Unmarshal(payload, &env); err == nil && env.Event == eventbus.EventMessageCreated {
		var event eventbus.ChatEvent
		if err := json.Unmarshal(env.Data, &event); err == nil {
			confirmDelivery = true
			senderID = event.Sender.ID
			messageID = event.MessageID
		}
	}

	for _, client := range members {
		if !m.send(client, payload) {
			continue
		}
		if confirmDelivery && client.UserID != senderID {
			go func(userID string) {
				if err := m.chat.MarkDelivered(context.Background(), conversationID, messageID, userID); err != nil {
					logger.Warn("Failed to record delivery for message %s to user %s: %v", messageID, userID, err)
				}
			}(client.UserID)
		}
	}
}

// DeliverPresence forwards a presence payload to every authenticated
// connection.
func (m *Manager) DeliverPresence(payload []byte) {
	m.mutex.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for client := range m.clients {
		if client.UserID != "" {
			clients = append(clients, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range clients {
		m.send(client, payload)
	}
}

// send enqueues a payload without blocking; a client whose buffer is full
// is dropped, matching the pump lifecycle.
func (m *Manager) send(client *Client, payload []byte) bool {
	m.mutex.RLock()
	alive := m.clients[client]
	m.mutex.RUnlock()
	if !alive {
		return false
	}

	select {
	case client.Send <- payload:
		return true
	default:
		go func() { m.Unregister <- client }()
		return false
	}
}
