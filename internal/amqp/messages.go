package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// StateSyncMessage tells the worker that a user's state reached a new
// revision. The worker reads the document itself from the local store.
type StateSyncMessage struct {
	UserID    string    `json:"userId"`
	Revision  uint64    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStateSyncMessage creates a message stamped with the current time.
func NewStateSyncMessage(userID string, revision uint64) *StateSyncMessage {
	return &StateSyncMessage{
		UserID:    userID,
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *StateSyncMessage) Validate() error {
	if m.UserID == "" {
		return errors.New("sync message without userId")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *StateSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StateSyncMessageFromJSON parses and validates a message.
func StateSyncMessageFromJSON(data []byte) (*StateSyncMessage, error) {
	var msg StateSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
