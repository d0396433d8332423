package state

import (
	"encoding/json"
	"testing"

	"github.com/L0C8/gooser/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_InitialValues(t *testing.T) {
	s := NewStore()

	assert.Equal(t, types.StatusConnecting, s.ConnectionStatus.Get())
	assert.Empty(t, s.Messages.Get())
	assert.NotNil(t, s.Messages.Get())
	assert.Nil(t, s.CurrentRoom.Get())

	assert.True(t, s.Rooms.durable)
	assert.False(t, s.AuthResult.durable)
	assert.False(t, s.RoomResult.durable)
}

func TestResetDurable(t *testing.T) {
	s := NewStore()
	s.ConnectionStatus.Publish(types.StatusConnected)
	s.Messages.Publish([]types.Message{types.NewSystemMessage("", "Welcome", 1)})
	s.Users.Publish([]types.User{{Username: "al", IsOnline: true}})
	s.Rooms.Publish([]types.Room{{ID: "r1"}})
	s.CurrentRoom.Publish(&types.Room{ID: "r1"})
	s.RoomUsers.Publish([]types.User{{Username: "al"}})
	s.Characters.Publish([]types.CharacterCard{{ID: "c1"}})
	s.APIConfigs.Publish([]types.APIConfig{{ID: "a1"}})
	s.AuthResult.Publish(types.AuthResult{Success: true})

	var seen [][]types.Message
	defer s.Messages.Subscribe(func(m []types.Message) { seen = append(seen, m) })()

	s.ResetDurable()

	assert.Empty(t, s.Messages.Get())
	assert.Empty(t, s.Users.Get())
	assert.Empty(t, s.Rooms.Get())
	assert.Nil(t, s.CurrentRoom.Get())
	assert.Empty(t, s.RoomUsers.Get())
	assert.Empty(t, s.Characters.Get())
	assert.Empty(t, s.APIConfigs.Get())

	assert.Equal(t, types.StatusConnected, s.ConnectionStatus.Get(), "status is owned by the connection manager")
	assert.True(t, s.AuthResult.Get().Success, "transient slices are unaffected")

	require.Len(t, seen, 2)
	assert.Empty(t, seen[1])
}

func TestSnapshot_JSON(t *testing.T) {
	s := NewStore()
	s.Rooms.Publish([]types.Room{{ID: "r1", Name: "Lobby", Members: []string{"al"}}})

	raw, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.JSONEq(t, `"connecting"`, string(decoded["connectionStatus"]))
	assert.JSONEq(t, `[]`, string(decoded["messages"]))
	assert.JSONEq(t, `null`, string(decoded["currentRoom"]))
	assert.Contains(t, string(decoded["rooms"]), `"Lobby"`)
}

func TestSnapshot_MasksAPIKeys(t *testing.T) {
	s := NewStore()
	s.APIConfigs.Publish([]types.APIConfig{
		{ID: "k1", APIConfigDraft: types.APIConfigDraft{Name: "main", APIKey: "sk-secret-value"}},
		{ID: "k2", APIConfigDraft: types.APIConfigDraft{Name: "local"}},
	})

	snap := s.Snapshot()
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "sk-secret-value")
	assert.Equal(t, "sk-s***", snap.APIConfigs[0].APIKey)
	assert.Empty(t, snap.APIConfigs[1].APIKey)
	assert.Equal(t, "sk-secret-value", s.APIConfigs.Get()[0].APIKey, "the slice itself is untouched")
}
