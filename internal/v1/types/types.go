package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"k8s.io/utils/set"
)

// --- Core Domain Types ---

// ConnectionStatus describes the state of the single transport session.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// MessageKind discriminates the two message variants on the wire ("type" field).
type MessageKind string

const (
	MessageKindSystem MessageKind = "system"
	MessageKindUser   MessageKind = "user"
)

var (
	ErrUnknownMessageKind = errors.New("unknown message kind")
	ErrMissingMessageID   = errors.New("user message requires an id")
	ErrMissingUsername    = errors.New("user message requires a username")
)

// Message is either a system notice or a chat line written by a user.
// System messages may have an empty ID; user messages never do.
type Message struct {
	Kind      MessageKind `json:"type"`
	ID        string      `json:"id,omitempty"`
	Username  string      `json:"username,omitempty"`
	Color     string      `json:"color,omitempty"`
	Text      string      `json:"text"`
	Timestamp int64       `json:"timestamp"`
}

// NewSystemMessage builds a system notice. id may be empty.
func NewSystemMessage(id, text string, timestamp int64) Message {
	return Message{Kind: MessageKindSystem, ID: id, Text: text, Timestamp: timestamp}
}

// NewUserMessage builds a chat line.
func NewUserMessage(id, username, color, text string, timestamp int64) Message {
	return Message{Kind: MessageKindUser, ID: id, Username: username, Color: color, Text: text, Timestamp: timestamp}
}

func (m Message) IsSystem() bool { return m.Kind == MessageKindSystem }

func (m Message) IsUser() bool { return m.Kind == MessageKindUser }

// Validate checks the union invariants.
func (m Message) Validate() error {
	switch m.Kind {
	case MessageKindSystem:
		return nil
	case MessageKindUser:
		if m.ID == "" {
			return ErrMissingMessageID
		}
		if m.Username == "" {
			return ErrMissingUsername
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageKind, m.Kind)
	}
}

// UnmarshalJSON decodes a message and rejects payloads that do not form a valid variant.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	msg := Message(raw)
	if err := msg.Validate(); err != nil {
		return err
	}
	*m = msg
	return nil
}

// User is a presence entry keyed by Username.
type User struct {
	Username string `json:"username"`
	Color    string `json:"color"`
	IsGuest  bool   `json:"isGuest"`
	IsAdmin  bool   `json:"isAdmin"`
	IsOnline bool   `json:"isOnline"`
}

// RoomCharacter binds an AI persona and a model connection to a room.
type RoomCharacter struct {
	CharacterID        string  `json:"characterId"`
	APIConfigID        string  `json:"apiConfigId"`
	TriggerOnMention   bool    `json:"triggerOnMention"`
	TriggerOnMessage   bool    `json:"triggerOnMessage"`
	TriggerProbability float64 `json:"triggerProbability"` // 0-100
}

// Room is a chat room. Members holds lowercase usernames.
type Room struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   int64           `json:"createdAt"`
	Members     []string        `json:"members"`
	IsPublic    bool            `json:"isPublic"`
	Characters  []RoomCharacter `json:"characters,omitempty"`
}

// MemberSet returns the room members as a set of lowercase usernames.
func (r Room) MemberSet() set.Set[string] {
	members := set.New[string]()
	for _, m := range r.Members {
		members.Insert(strings.ToLower(m))
	}
	return members
}

// IsMember reports whether username belongs to the room, ignoring case.
func (r Room) IsMember(username string) bool {
	return r.MemberSet().Has(strings.ToLower(username))
}

// CharacterIDs returns the ids of the characters bound to the room.
func (r Room) CharacterIDs() set.Set[string] {
	ids := set.New[string]()
	for _, c := range r.Characters {
		ids.Insert(c.CharacterID)
	}
	return ids
}

// CharacterDraft is a character card before the server assigns identity fields.
type CharacterDraft struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Personality  string   `json:"personality"`
	Scenario     string   `json:"scenario"`
	FirstMes     string   `json:"first_mes"`
	MesExample   string   `json:"mes_example"`
	SystemPrompt string   `json:"system_prompt"`
	CreatorNotes string   `json:"creator_notes"`
	Tags         []string `json:"tags"`
	Avatar       string   `json:"avatar,omitempty"`
}

// CharacterCard is an admin-managed AI persona.
type CharacterCard struct {
	ID string `json:"id"`
	CharacterDraft
	CreatedAt int64  `json:"createdAt"`
	CreatedBy string `json:"createdBy"`
}

// APIProvider names the backend an APIConfig talks to.
type APIProvider string

const (
	ProviderOpenAI     APIProvider = "openai"
	ProviderAnthropic  APIProvider = "anthropic"
	ProviderOpenRouter APIProvider = "openrouter"
	ProviderKobold     APIProvider = "kobold"
	ProviderOllama     APIProvider = "ollama"
	ProviderCustom     APIProvider = "custom"
)

// APIConfigDraft is a model connection before the server assigns identity fields.
type APIConfigDraft struct {
	Name        string      `json:"name"`
	Provider    APIProvider `json:"provider"`
	APIKey      string      `json:"apiKey,omitempty"`
	APIURL      string      `json:"apiUrl,omitempty"`
	Model       string      `json:"model"`
	MaxTokens   int         `json:"maxTokens"`
	Temperature float64     `json:"temperature"`
	IsActive    bool        `json:"isActive"`
}

// APIConfig is an admin-managed model connection.
type APIConfig struct {
	ID string `json:"id"`
	APIConfigDraft
	CreatedAt int64 `json:"createdAt"`
}

// --- Result envelopes ---
// Each holds only the latest terminal outcome of a command family.

type AuthResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
}

type AdminResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Action  string `json:"action"`
}

// RoomResult multiplexes join, leave and list outcomes.
// Rooms is nil when the field was absent and non-nil (possibly empty) when present.
type RoomResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Room    *Room  `json:"room,omitempty"`
	Rooms   []Room `json:"rooms,omitempty"`
}

func (r RoomResult) HasRoom() bool { return r.Room != nil }

func (r RoomResult) HasRooms() bool { return r.Rooms != nil }

type CharacterResult struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Character *CharacterCard `json:"character,omitempty"`
}

type APIConfigResult struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Config  *APIConfig `json:"config,omitempty"`
}
