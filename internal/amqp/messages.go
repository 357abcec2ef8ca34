package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// RoutingTransactionChanged is the routing key and message type for ledger writes
const RoutingTransactionChanged = "transaction.changed"

// Action describes what happened to a transaction
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// TransactionChanged is published after every successful transaction write.
// Consumers refetch whatever they need; the message only names the owner.
type TransactionChanged struct {
	UserID        int64     `json:"userId"`
	TransactionID int64     `json:"transactionId"`
	Action        Action    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionChanged creates a message stamped with the current time
func NewTransactionChanged(userID, transactionID int64, action Action) *TransactionChanged {
	return &TransactionChanged{
		UserID:        userID,
		TransactionID: transactionID,
		Action:        action,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangedFromJSON decodes and validates a message
func TransactionChangedFromJSON(data []byte) (*TransactionChanged, error) {
	var msg TransactionChanged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID <= 0 {
		return nil, fmt.Errorf("message without user id")
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	return &msg, nil
}
