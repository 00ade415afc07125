package entity

import (
	"sort"
	"strings"
	"time"
)

// Conversation is a persistent thread between two users about one listing.
// There is at most one active conversation per (unordered pair, listing);
// the pair key doubles as the storage document ID to make that a hard
// constraint rather than a query-time convention.
type Conversation struct {
	ID           string `json:"id" firestore:"id"`
	PairKey      string `json:"-" firestore:"pairKey"`
	ParticipantA string `json:"participant_a" firestore:"participantA"`
	ParticipantB string `json:"participant_b" firestore:"participantB"`
	ListingID    string `json:"listing_id" firestore:"listingId"`
	Active       bool   `json:"active" firestore:"active"`

	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt"`
}

// ConversationPairKey canonicalizes (userA, userB, listing) so that the pair
// order never matters. Both orderings of the same pair yield the same key.
func ConversationPairKey(userA, userB, listingID string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join([]string{listingID, pair[0], pair[1]}, ":")
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}
