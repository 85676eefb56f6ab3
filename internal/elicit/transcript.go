package elicit

import (
	"fmt"

	"github.com/kalambet/blueprint/internal/engine"
)

// Role tags a transcript entry.
type Role string

const (
	RoleSystem    Role = engine.RoleSystem
	RoleUser      Role = engine.RoleUser
	RoleAssistant Role = engine.RoleAssistant
)

// Entry is one message of the conversation.
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Transcript is the append-only conversation. The single system entry is
// always first.
type Transcript struct {
	entries []Entry
}

// NewTranscript seeds a transcript with the system contract and the initial
// request.
func NewTranscript(system, request string) *Transcript {
	return &Transcript{entries: []Entry{
		{Role: RoleSystem, Text: system},
		{Role: RoleUser, Text: request},
	}}
}

// Append adds a user or assistant entry.
func (t *Transcript) Append(role Role, text string) error {
	switch role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("cannot append %q entry", role)
	}
	t.entries = append(t.entries, Entry{Role: role, Text: text})
	return nil
}

// Len returns the number of entries.
func (t *Transcript) Len() int { return len(t.entries) }

// Entries returns a copy of the entries.
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Messages converts the transcript to chat messages.
func (t *Transcript) Messages() []engine.Message {
	msgs := make([]engine.Message, len(t.entries))
	for i, e := range t.entries {
		msgs[i] = engine.Message{Role: string(e.Role), Content: e.Text}
	}
	return msgs
}
