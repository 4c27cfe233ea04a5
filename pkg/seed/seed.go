// Package seed replays a YAML fixture file through the regular write
// paths so development databases start with realistic data.
package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hiretalk/pkg/directory"
	"hiretalk/pkg/identity"
	"hiretalk/pkg/ledger"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/models"
)

// File is the fixture document shape.
type File struct {
	Users         []SeedUser         `yaml:"users"`
	Conversations []SeedConversation `yaml:"conversations"`
}

type SeedUser struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

type SeedConversation struct {
	CandidateID       string        `yaml:"candidate_id"`
	CandidateName     string        `yaml:"candidate_name"`
	CandidatePosition string        `yaml:"candidate_position"`
	Participants      []string      `yaml:"participants"`
	Priority          string        `yaml:"priority"`
	Tags              []string      `yaml:"tags"`
	Messages          []SeedMessage `yaml:"messages"`
}

type SeedMessage struct {
	Sender   string `yaml:"sender"`
	Content  string `yaml:"content"`
	Priority string `yaml:"priority"`
}

// Load parses the fixture at path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("seed: parse %s: %w", path, err)
	}
	return &f, nil
}

// Apply replays the fixture: users first, then conversations with their
// opening messages. Returns the IDs of created conversations.
func Apply(f *File) ([]string, error) {
	for _, su := range f.Users {
		u := &models.User{ID: su.ID, Name: su.Name, Role: su.Role}
		if err := identity.Upsert(u); err != nil {
			return nil, fmt.Errorf("seed: user %s: %w", su.ID, err)
		}
	}
	var convIDs []string
	for i, sc := range f.Conversations {
		conv, err := directory.Create(directory.CreateInput{
			CandidateID:       sc.CandidateID,
			CandidateName:     sc.CandidateName,
			CandidatePosition: sc.CandidatePosition,
			ParticipantIDs:    sc.Participants,
			Priority:          sc.Priority,
			Tags:              sc.Tags,
		})
		if err != nil {
			return nil, fmt.Errorf("seed: conversation %d: %w", i, err)
		}
		for j, sm := range sc.Messages {
			if _, err := ledger.Append(conv.ID, ledger.AppendInput{
				SenderID: sm.Sender,
				Content:  sm.Content,
				Priority: sm.Priority,
			}); err != nil {
				return nil, fmt.Errorf("seed: conversation %d message %d: %w", i, j, err)
			}
		}
		convIDs = append(convIDs, conv.ID)
	}
	logger.Info("seed_applied", "users", len(f.Users), "conversations", len(convIDs))
	return convIDs, nil
}

// Run loads and applies the fixture at path.
func Run(path string) error {
	f, err := Load(path)
	if err != nil {
		return err
	}
	_, err = Apply(f)
	return err
}
