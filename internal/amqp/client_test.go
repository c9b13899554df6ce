package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{63, 30 * time.Second}, // shift overflow still caps
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "connection refused",
			err:      errors.New("connection refused"),
			expected: true,
		},
		{
			name:     "closed connection",
			err:      errors.New("connection closed"),
			expected: true,
		},
		{
			name:     "closed channel",
			err:      errors.New("channel/connection is not open"),
			expected: true,
		},
		{
			name:     "EOF",
			err:      errors.New("unexpected EOF"),
			expected: true,
		},
		{
			name:     "broken pipe",
			err:      errors.New("broken pipe"),
			expected: true,
		},
		{
			name:     "closed network connection",
			err:      errors.New("use of closed network connection"),
			expected: true,
		},
		{
			name:     "wrapped connection error",
			err:      fmt.Errorf("start consumer: %w", errors.New("connection refused")),
			expected: true,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
		{
			name:     "validation error",
			err:      errors.New("invalid amount"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestNewEntityChangedMessage(t *testing.T) {
	userID := uuid.New()
	categoryID := uuid.New()

	msg := NewEntityChangedMessage(EntityExpense, userID, categoryID, uuid.Nil)

	if msg.Entity != EntityExpense {
		t.Errorf("Entity = %q, want %q", msg.Entity, EntityExpense)
	}
	if msg.UserID != userID {
		t.Errorf("UserID = %v, want %v", msg.UserID, userID)
	}
	if msg.CategoryID != categoryID {
		t.Errorf("CategoryID = %v, want %v", msg.CategoryID, categoryID)
	}
	if msg.SavingsGoalID != uuid.Nil {
		t.Errorf("SavingsGoalID = %v, want nil id", msg.SavingsGoalID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestEntityChangedMessage_JSON(t *testing.T) {
	msg := &EntityChangedMessage{
		Entity:        EntitySavingsGoal,
		UserID:        uuid.New(),
		SavingsGoalID: uuid.New(),
		Timestamp:     time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := EntityChangedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("EntityChangedMessageFromJSON() error = %v", err)
	}

	if parsed.Entity != msg.Entity {
		t.Errorf("Parsed Entity = %q, want %q", parsed.Entity, msg.Entity)
	}
	if parsed.UserID != msg.UserID {
		t.Errorf("Parsed UserID = %v, want %v", parsed.UserID, msg.UserID)
	}
	if parsed.SavingsGoalID != msg.SavingsGoalID {
		t.Errorf("Parsed SavingsGoalID = %v, want %v", parsed.SavingsGoalID, msg.SavingsGoalID)
	}
	if parsed.CategoryID != uuid.Nil {
		t.Errorf("Parsed CategoryID = %v, want nil id", parsed.CategoryID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestEntityChangedMessage_InvalidJSON(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte(`not json at all`)},
		{"wrong user id type", []byte(`{"entity": "expense", "userId": 42}`)},
		{"malformed uuid", []byte(`{"entity": "expense", "userId": "not-a-uuid"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EntityChangedMessageFromJSON(tt.body); err == nil {
				t.Error("EntityChangedMessageFromJSON() should fail")
			}
		})
	}
}
