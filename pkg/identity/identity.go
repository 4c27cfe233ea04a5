// Package identity stores the user directory that message and
// participant records snapshot their display names from.
package identity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hiretalk/pkg/apperr"
	"hiretalk/pkg/models"
	"hiretalk/pkg/store"
)

// Resolve returns the user record for id.
func Resolve(id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty user id", apperr.ErrInvalidArgument)
	}
	raw, err := store.Get(store.UserKey(id))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
		}
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("identity: corrupt record for %s: %w", id, err)
	}
	return &u, nil
}

// Upsert creates or updates a user record. CreatedTS is preserved across
// updates.
func Upsert(u *models.User) error {
	if u == nil || strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("%w: user id required", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: user name required", apperr.ErrInvalidArgument)
	}
	now := time.Now().UnixMilli()
	if prev, err := Resolve(u.ID); err == nil {
		u.CreatedTS = prev.CreatedTS
	} else {
		u.CreatedTS = now
	}
	u.UpdatedTS = now
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return store.SetKey(store.UserKey(u.ID), raw)
}

// List returns all user records in ID order.
func List() ([]*models.User, error) {
	vals, err := store.ScanPrefix("user:")
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(vals))
	for _, raw := range vals {
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			continue
		}
		out = append(out, &u)
	}
	return out, nil
}
