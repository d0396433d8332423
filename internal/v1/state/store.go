package state

import (
	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/types"
)

// Store owns every slice of one chat client. All durable slices start empty
// except ConnectionStatus, which starts as connecting.
type Store struct {
	ConnectionStatus *Slice[types.ConnectionStatus]
	Messages         *Slice[[]types.Message]
	Users            *Slice[[]types.User]
	Rooms            *Slice[[]types.Room]
	CurrentRoom      *Slice[*types.Room]
	RoomUsers        *Slice[[]types.User]
	Characters       *Slice[[]types.CharacterCard]
	APIConfigs       *Slice[[]types.APIConfig]

	AuthResult      *Slice[types.AuthResult]
	AdminResult     *Slice[types.AdminResult]
	RoomResult      *Slice[types.RoomResult]
	CharacterResult *Slice[types.CharacterResult]
	APIConfigResult *Slice[types.APIConfigResult]
}

// Snapshot is a point-in-time copy of the durable slices. API keys are masked.
type Snapshot struct {
	ConnectionStatus types.ConnectionStatus `json:"connectionStatus"`
	Messages         []types.Message        `json:"messages"`
	Users            []types.User           `json:"users"`
	Rooms            []types.Room           `json:"rooms"`
	CurrentRoom      *types.Room            `json:"currentRoom"`
	RoomUsers        []types.User           `json:"roomUsers"`
	Characters       []types.CharacterCard  `json:"characters"`
	APIConfigs       []types.APIConfig      `json:"apiConfigs"`
}

func NewStore() *Store {
	return &Store{
		ConnectionStatus: NewDurable("connection_status", types.StatusConnecting),
		Messages:         NewDurable("messages", []types.Message{}),
		Users:            NewDurable("users", []types.User{}),
		Rooms:            NewDurable("rooms", []types.Room{}),
		CurrentRoom:      NewDurable[*types.Room]("current_room", nil),
		RoomUsers:        NewDurable("room_users", []types.User{}),
		Characters:       NewDurable("characters", []types.CharacterCard{}),
		APIConfigs:       NewDurable("api_configs", []types.APIConfig{}),

		AuthResult:      NewTransient[types.AuthResult]("auth_result"),
		AdminResult:     NewTransient[types.AdminResult]("admin_result"),
		RoomResult:      NewTransient[types.RoomResult]("room_result"),
		CharacterResult: NewTransient[types.CharacterResult]("character_result"),
		APIConfigResult: NewTransient[types.APIConfigResult]("api_config_result"),
	}
}

// ResetDurable publishes the empty value into every durable data slice.
// Connection status and the transient result slices are left alone.
func (s *Store) ResetDurable() {
	s.Messages.Reset()
	s.Users.Reset()
	s.Rooms.Reset()
	s.CurrentRoom.Reset()
	s.RoomUsers.Reset()
	s.Characters.Reset()
	s.APIConfigs.Reset()
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		ConnectionStatus: s.ConnectionStatus.Get(),
		Messages:         s.Messages.Get(),
		Users:            s.Users.Get(),
		Rooms:            s.Rooms.Get(),
		CurrentRoom:      s.CurrentRoom.Get(),
		RoomUsers:        s.RoomUsers.Get(),
		Characters:       s.Characters.Get(),
		APIConfigs:       redactKeys(s.APIConfigs.Get()),
	}
}

func redactKeys(configs []types.APIConfig) []types.APIConfig {
	out := make([]types.APIConfig, len(configs))
	for i, c := range configs {
		if c.APIKey != "" {
			c.APIKey = logging.Redact(c.APIKey)
		}
		out[i] = c
	}
	return out
}
