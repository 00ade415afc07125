package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"uninest/internal/domain/entity"
	"uninest/internal/domain/repository"
	"uninest/internal/infrastructure/eventbus"
	"uninest/pkg/errors"
)

// In-memory repositories backing the usecase tests. They enforce the same
// uniqueness rules as the Firestore adapters: deterministic keys, and a
// duplicate create is success.

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemoryUserRepo(users ...*entity.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: map[string]*entity.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memoryUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return errors.Conflict("User already exists", nil)
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (r *memoryUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return errors.NotFound("User", nil)
	}
	r.users[user.ID] = user
	return nil
}

type memoryListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing
}

func newMemoryListingRepo(listings ...*entity.Listing) *memoryListingRepo {
	repo := &memoryListingRepo{listings: map[string]*entity.Listing{}}
	for _, l := range listings {
		repo.listings[l.ID] = l
	}
	return repo
}

func (r *memoryListingRepo) Create(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if listing.ID == "" {
		listing.ID = fmt.Sprintf("listing-%d", len(r.listings)+1)
	}
	r.listings[listing.ID] = listing
	return nil
}

func (r *memoryListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return listing, nil
}

func (r *memoryListingRepo) List(ctx context.Context, filter repository.ListingFilter, limit, offset int) ([]*entity.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.Listing
	for _, listing := range r.listings {
		if filter.OwnerID != "" && listing.OwnerID != filter.OwnerID {
			continue
		}
		if filter.City != "" && listing.City != filter.City {
			continue
		}
		if filter.Status != "" && listing.Status != filter.Status {
			continue
		}
		result = append(result, listing)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

func (r *memoryListingRepo) Update(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[listing.ID]; !ok {
		return errors.NotFound("Listing", nil)
	}
	r.listings[listing.ID] = listing
	return nil
}

type memoryFavoriteRepo struct {
	mu        sync.Mutex
	favorites map[string]*entity.Favorite
}

func newMemoryFavoriteRepo() *memoryFavoriteRepo {
	return &memoryFavoriteRepo{favorites: map[string]*entity.Favorite{}}
}

func (r *memoryFavoriteRepo) Add(ctx context.Context, userID, listingID string) (*entity.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userID + "_" + listingID
	if existing, ok := r.favorites[key]; ok {
		return existing, nil
	}
	favorite := &entity.Favorite{
		ID:        key,
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: time.Now(),
	}
	r.favorites[key] = favorite
	return favorite, nil
}

func (r *memoryFavoriteRepo) Remove(ctx context.Context, userID, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.favorites, userID+"_"+listingID)
	return nil
}

func (r *memoryFavoriteRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Favorite, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.Favorite
	for _, favorite := range r.favorites {
		if favorite.UserID == userID {
			result = append(result, favorite)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

type memoryConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
}

func newMemoryConversationRepo() *memoryConversationRepo {
	return &memoryConversationRepo{conversations: map[string]*entity.Conversation{}}
}

func (r *memoryConversationRepo) GetOrCreate(ctx context.Context, conversation *entity.Conversation) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.conversations[conversation.PairKey]; ok {
		return existing, false, nil
	}
	conversation.ID = conversation.PairKey
	r.conversations[conversation.PairKey] = conversation
	return conversation, true, nil
}

func (r *memoryConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	copied := *conversation
	return &copied, nil
}

func (r *memoryConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.Conversation
	for _, conversation := range r.conversations {
		if conversation.HasParticipant(userID) {
			result = append(result, conversation)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	return result, int64(len(result)), nil
}

func (r *memoryConversationRepo) Update(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conversation.ID]; !ok {
		return errors.NotFound("Conversation", nil)
	}
	copied := *conversation
	r.conversations[conversation.ID] = &copied
	return nil
}

type memoryMessageRepo struct {
	mu       sync.Mutex
	seq      int
	messages map[string][]*entity.Message
}

func newMemoryMessageRepo() *memoryMessageRepo {
	return &memoryMessageRepo{messages: map[string][]*entity.Message{}}
}

func (r *memoryMessageRepo) Create(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	message.ID = fmt.Sprintf("msg-%04d", r.seq)
	copied := *message
	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], &copied)
	return nil
}

func (r *memoryMessageRepo) GetByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, message := range r.messages[conversationID] {
		if message.ID == messageID {
			copied := *message
			return &copied, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *memoryMessageRepo) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.messages[conversationID]
	result := make([]*entity.Message, 0, len(stored))
	for _, message := range stored {
		copied := *message
		result = append(result, &copied)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].SentAt.Equal(result[j].SentAt) {
			return result[i].SentAt.Before(result[j].SentAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, int64(len(result)), nil
}

func (r *memoryMessageRepo) Update(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, stored := range r.messages[message.ConversationID] {
		if stored.ID == message.ID {
			copied := *message
			r.messages[message.ConversationID][i] = &copied
			return nil
		}
	}
	return errors.NotFound("Message", nil)
}

// memoryStatusRepo mirrors the Firestore adapter: one row per
// (message, user, status), duplicate writes succeed silently.
type memoryStatusRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.MessageStatus
}

func newMemoryStatusRepo() *memoryStatusRepo {
	return &memoryStatusRepo{rows: map[string]*entity.MessageStatus{}}
}

func statusKey(messageID, userID, status string) string {
	return messageID + "_" + userID + "_" + status
}

func (r *memoryStatusRepo) Record(ctx context.Context, conversationID string, status *entity.MessageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := statusKey(status.MessageID, status.UserID, status.Status)
	if _, ok := r.rows[key]; ok {
		return nil
	}
	status.ID = key
	copied := *status
	r.rows[key] = &copied
	return nil
}

func (r *memoryStatusRepo) RecordReadWithDelivery(ctx context.Context, conversationID, messageID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, status := range []string{entity.StatusDelivered, entity.StatusRead} {
		key := statusKey(messageID, userID, status)
		if _, ok := r.rows[key]; ok {
			continue
		}
		r.rows[key] = &entity.MessageStatus{
			ID:        key,
			MessageID: messageID,
			UserID:    userID,
			Status:    status,
			CreatedAt: at,
		}
	}
	return nil
}

func (r *memoryStatusRepo) ListByMessage(ctx context.Context, conversationID, messageID string) ([]*entity.MessageStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.MessageStatus
	for _, row := range r.rows {
		if row.MessageID == messageID {
			copied := *row
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// recordingPublisher captures published events; failNext simulates a bus
// outage for exactly one publish.
type recordingPublisher struct {
	mu       sync.Mutex
	failNext bool
	chat     []eventbus.ChatEvent
	status   []eventbus.StatusEvent
	typing   []eventbus.TypingEvent
	presence []eventbus.PresenceEvent
}

func (p *recordingPublisher) consumeFailure() error {
	if p.failNext {
		p.failNext = false
		return fmt.Errorf("bus unavailable")
	}
	return nil
}

func (p *recordingPublisher) PublishMessageCreated(ctx context.Context, event eventbus.ChatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.consumeFailure(); err != nil {
		return err
	}
	p.chat = append(p.chat, event)
	return nil
}

func (p *recordingPublisher) PublishStatusChanged(ctx context.Context, event eventbus.StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.consumeFailure(); err != nil {
		return err
	}
	p.status = append(p.status, event)
	return nil
}

func (p *recordingPublisher) PublishTyping(ctx context.Context, event eventbus.TypingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.consumeFailure(); err != nil {
		return err
	}
	p.typing = append(p.typing, event)
	return nil
}

func (p *recordingPublisher) PublishPresence(ctx context.Context, event eventbus.PresenceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.consumeFailure(); err != nil {
		return err
	}
	p.presence = append(p.presence, event)
	return nil
}
