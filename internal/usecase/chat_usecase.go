package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
	"uninest/internal/infrastructure/eventbus"
	"uninest/internal/infrastructure/ratelimit"
	"uninest/pkg/errors"
	"uninest/pkg/logger"
)

// ChatUseCase owns conversations, messages and their delivery ledger.
// Persistence always commits before fan-out; a bus failure never fails the
// caller once the message is stored.
type ChatUseCase struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	userRepo         repository.UserRepository
	listingRepo      repository.ListingRepository
	ledger           *StatusLedger
	publisher        eventbus.Publisher
	rateLimiter      *ratelimit.RateLimiter
}

func NewChatUseCase(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	ledger *StatusLedger,
	publisher eventbus.Publisher,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		listingRepo:      listingRepo,
		ledger:           ledger,
		publisher:        publisher,
		rateLimiter:      rateLimiter,
	}
}

type StartConversationInput struct {
	RecipientID    string
	ListingID      string
	InitialMessage string
}

type PostMessageInput struct {
	ConversationID string
	Content        string
	Type           string
}

type ConversationResponse struct {
	*entity.Conversation
	OtherUser *entity.User    `json:"other_user,omitempty"`
	Listing   *entity.Listing `json:"listing,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Status string `json:"status"`
}

// StartConversation resolves (or creates) the conversation between the
// caller and the recipient about one listing, optionally posting the
// opening message.
func (uc *ChatUseCase) StartConversation(ctx context.Context, userID string, input StartConversationInput) (*ConversationResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "create_conversation")
	if !allowed {
		logger.Warn("StartConversation rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation")
	}

	if userID == input.RecipientID {
		return nil, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	recipient, err := uc.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		return nil, errors.NotFound("Recipient", err)
	}

	listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, errors.NotFound("Listing", err)
	}

	conversation, err := uc.GetOrCreateConversation(ctx, userID, input.RecipientID, input.ListingID)
	if err != nil {
		return nil, err
	}

	if input.InitialMessage != "" {
		if _, err := uc.PostMessage(ctx, userID, PostMessageInput{
			ConversationID: conversation.ID,
			Content:        input.InitialMessage,
			Type:           entity.MessageTypeText,
		}); err != nil {
			return nil, err
		}
		// Reload so the response carries the advanced lastMessageAt.
		conversation, err = uc.conversationRepo.GetByID(ctx, conversation.ID)
		if err != nil {
			return nil, err
		}
	}

	return &ConversationResponse{
		Conversation: conversation,
		OtherUser:    recipient,
		Listing:      listing,
	}, nil
}

// GetOrCreateConversation is deterministic in the unordered pair: both
// argument orderings resolve to the same conversation for a listing.
func (uc *ChatUseCase) GetOrCreateConversation(ctx context.Context, userA, userB, listingID string) (*entity.Conversation, error) {
	if userA == userB {
		return nil, errors.BadRequest("A conversation needs two distinct participants", nil)
	}

	now := time.Now()
	conversation := &entity.Conversation{
		PairKey:       entity.ConversationPairKey(userA, userB, listingID),
		ParticipantA:  userA,
		ParticipantB:  userB,
		ListingID:     listingID,
		Active:        true,
		CreatedAt:     now,
		LastMessageAt: now,
	}

	result, created, err := uc.conversationRepo.GetOrCreate(ctx, conversation)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("Conversation %s created for listing %s", result.ID, listingID)
	}

	return result, nil
}

// PostMessage appends a message to the conversation. The write order is:
// persist the message, seed the ledger with SENT, then publish. A publish
// failure is logged and swallowed — recipients recover the backlog from the
// store on their next fetch.
func (uc *ChatUseCase) PostMessage(ctx context.Context, senderID string, input PostMessageInput) (*MessageResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(senderID, "post_message")
	if !allowed {
		logger.Warn("PostMessage rate limited: user %s must wait %v", senderID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message")
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.BadRequest("Message content must not be empty", nil)
	}

	messageType := input.Type
	if messageType == "" {
		messageType = entity.MessageTypeText
	}
	if !entity.ValidMessageType(messageType) {
		return nil, errors.BadRequest(fmt.Sprintf("Unknown message type %q", messageType), nil)
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderID) {
		return nil, errors.Forbidden("Only participants may post to this conversation", nil)
	}
	if !conversation.Active {
		return nil, errors.BadRequest("This conversation has been closed", nil)
	}

	message := &entity.Message{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Content:        content,
		Type:           messageType,
		SentAt:         time.Now(),
	}

	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if err := uc.ledger.RecordSent(ctx, conversation.ID, message); err != nil {
		return nil, err
	}

	conversation.LastMessageAt = message.SentAt
	if err := uc.conversationRepo.Update(ctx, conversation); err != nil {
		logger.Error("Failed to advance lastMessageAt for conversation %s: %v", conversation.ID, err)
	}

	uc.publishMessageCreated(ctx, conversation, message)

	return &MessageResponse{
		Message: message,
		Status:  entity.StatusSent,
	}, nil
}

func (uc *ChatUseCase) publishMessageCreated(ctx context.Context, conversation *entity.Conversation, message *entity.Message) {
	sender := eventbus.EventSender{ID: message.SenderID}
	if user, err := uc.userRepo.GetByID(ctx, message.SenderID); err == nil {
		sender.FirstName = user.FirstName
		sender.LastName = user.LastName
	}

	err := uc.publisher.PublishMessageCreated(ctx, eventbus.ChatEvent{
		MessageID:      message.ID,
		ConversationID: conversation.ID,
		Sender:         sender,
		Content:        message.Content,
		MessageType:    message.Type,
		SentAt:         message.SentAt,
		Status:         entity.StatusSent,
	})
	if err != nil {
		// The message is already persisted; fan-out failure is not the
		// caller's problem.
		logger.Warn("Failed to publish message.created for message %s: %v", message.ID, err)
	}
}

// EditMessage rewrites the content of the editor's own message. sentAt is
// immutable; only the edited flag and timestamp move.
func (uc *ChatUseCase) EditMessage(ctx context.Context, editorID, conversationID, messageID, newContent string) (*MessageResponse, error) {
	content := strings.TrimSpace(newContent)
	if content == "" {
		return nil, errors.BadRequest("Message content must not be empty", nil)
	}

	message, err := uc.messageRepo.GetByID(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != editorID {
		return nil, errors.Forbidden("Only the original sender may edit a message", nil)
	}

	message.Content = content
	message.Edited = true
	message.EditedAt = time.Now()

	if err := uc.messageRepo.Update(ctx, message); err != nil {
		return nil, err
	}

	status, err := uc.ledger.AggregateStatus(ctx, conversationID, messageID, message.SenderID)
	if err != nil {
		status = entity.StatusSent
	}

	return &MessageResponse{
		Message: message,
		Status:  status,
	}, nil
}

func (uc *ChatUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationResponse, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}

	response := &ConversationResponse{Conversation: conversation}
	if other, err := uc.userRepo.GetByID(ctx, conversation.OtherParticipant(userID)); err == nil {
		response.OtherUser = other
	}
	if listing, err := uc.listingRepo.GetByID(ctx, conversation.ListingID); err == nil {
		response.Listing = listing
	}

	return response, nil
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationResponse, int64, error) {
	conversations, total, err := uc.conversationRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		response := &ConversationResponse{Conversation: conversation}
		if other, err := uc.userRepo.GetByID(ctx, conversation.OtherParticipant(userID)); err == nil {
			response.OtherUser = other
		}
		responses = append(responses, response)
	}

	return responses, total, nil
}

// ListMessages returns the conversation's messages in their immutable
// store order (sentAt, then ID), each annotated with its aggregate status.
func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, conversationID string, limit, offset int) ([]*MessageResponse, int64, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("You are not a participant of this conversation", nil)
	}

	messages, total, err := uc.messageRepo.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*MessageResponse, 0, len(messages))
	for _, message := range messages {
		status, err := uc.ledger.AggregateStatus(ctx, conversationID, message.ID, message.SenderID)
		if err != nil {
			logger.Warn("Failed to aggregate status for message %s: %v", message.ID, err)
			status = entity.StatusSent
		}
		responses = append(responses, &MessageResponse{
			Message: message,
			Status:  status,
		})
	}

	return responses, total, nil
}

// MarkDelivered records a delivery confirmation for a recipient. Called by
// the realtime layer when the event reaches a subscribed session, and by
// the explicit HTTP acknowledgment.
func (uc *ChatUseCase) MarkDelivered(ctx context.Context, conversationID, messageID, userID string) error {
	return uc.recordStatus(ctx, conversationID, messageID, userID, entity.StatusDelivered)
}

// MarkRead records an explicit read acknowledgment.
func (uc *ChatUseCase) MarkRead(ctx context.Context, conversationID, messageID, userID string) error {
	return uc.recordStatus(ctx, conversationID, messageID, userID, entity.StatusRead)
}

func (uc *ChatUseCase) recordStatus(ctx context.Context, conversationID, messageID, userID, status string) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("You are not a participant of this conversation", nil)
	}

	message, err := uc.messageRepo.GetByID(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if message.SenderID == userID {
		// Senders do not acknowledge their own messages.
		return nil
	}

	switch status {
	case entity.StatusDelivered:
		err = uc.ledger.RecordDelivered(ctx, conversationID, messageID, userID)
	case entity.StatusRead:
		err = uc.ledger.RecordRead(ctx, conversationID, messageID, userID)
	default:
		return errors.BadRequest(fmt.Sprintf("Unknown status %q", status), nil)
	}
	if err != nil {
		return err
	}

	publishErr := uc.publisher.PublishStatusChanged(ctx, eventbus.StatusEvent{
		MessageID:      messageID,
		ConversationID: conversationID,
		UserID:         userID,
		Status:         status,
		At:             time.Now(),
	})
	if publishErr != nil {
		logger.Warn("Failed to publish status change for message %s: %v", messageID, publishErr)
	}

	return nil
}

// Typing relays an ephemeral typing indicator. Nothing is persisted and
// there is no delivery guarantee.
func (uc *ChatUseCase) Typing(ctx context.Context, conversationID, userID string, typing bool) error {
	allowed, _ := uc.rateLimiter.Allow(userID, "typing")
	if !allowed {
		return nil
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("You are not a participant of this conversation", nil)
	}

	err = uc.publisher.PublishTyping(ctx, eventbus.TypingEvent{
		ConversationID: conversationID,
		UserID:         userID,
		Typing:         typing,
	})
	if err != nil {
		logger.Debug("Failed to publish typing indicator for conversation %s: %v", conversationID, err)
	}

	return nil
}

// AggregateStatus exposes the ledger aggregate for one message.
func (uc *ChatUseCase) AggregateStatus(ctx context.Context, userID, conversationID, messageID string) (string, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if !conversation.HasParticipant(userID) {
		return "", errors.Forbidden("You are not a participant of this conversation", nil)
	}

	message, err := uc.messageRepo.GetByID(ctx, conversationID, messageID)
	if err != nil {
		return "", err
	}

	return uc.ledger.AggregateStatus(ctx, conversationID, messageID, message.SenderID)
}

// DeactivateConversation soft-closes a conversation. Conversations are
// never hard-deleted.
func (uc *ChatUseCase) DeactivateConversation(ctx context.Context, userID, conversationID string) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("You are not a participant of this conversation", nil)
	}
	if !conversation.Active {
		return nil
	}

	conversation.Active = false
	return uc.conversationRepo.Update(ctx, conversation)
}
