package store

import (
	"encoding/json"
	"fmt"

	"hiretalk/pkg/models"
)

// GetConversation loads the conversation meta record. A missing
// conversation returns pebble's not-found error; callers translate it.
func GetConversation(convID string) (*models.Conversation, error) {
	raw, err := Get(ConvMetaKey(convID))
	if err != nil {
		return nil, err
	}
	var c models.Conversation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("store: corrupt conversation %s: %w", convID, err)
	}
	return &c, nil
}

// PutConversation writes the conversation meta record.
func PutConversation(c *models.Conversation) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return SetKey(ConvMetaKey(c.ID), raw)
}

// ConversationKV returns the meta record as a batch entry so callers can
// commit it atomically alongside message writes.
func ConversationKV(c *models.Conversation) (KV, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return KV{}, err
	}
	return KV{Key: ConvMetaKey(c.ID), Value: raw}, nil
}
