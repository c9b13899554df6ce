package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entity kinds carried in change events.
const (
	EntityCategory     = "category"
	EntityExpense      = "expense"
	EntityIncomeSource = "income_source"
	EntitySavingsGoal  = "savings_goal"
)

// EntityChangedMessage tells other processes that one of a user's entities
// mutated, so they can mirror the cache invalidation into their own local
// cache. It carries identities only; consumers re-read whatever they need.
type EntityChangedMessage struct {
	Entity        string    `json:"entity"`
	UserID        uuid.UUID `json:"userId"`
	CategoryID    uuid.UUID `json:"categoryId,omitempty"`
	SavingsGoalID uuid.UUID `json:"savingsGoalId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewEntityChangedMessage creates a change event stamped now.
func NewEntityChangedMessage(entity string, userID, categoryID, savingsGoalID uuid.UUID) *EntityChangedMessage {
	return &EntityChangedMessage{
		Entity:        entity,
		UserID:        userID,
		CategoryID:    categoryID,
		SavingsGoalID: savingsGoalID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntityChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntityChangedMessageFromJSON creates a message from JSON bytes
func EntityChangedMessageFromJSON(data []byte) (*EntityChangedMessage, error) {
	var msg EntityChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
