package command

import (
	"context"
	"errors"

	"github.com/L0C8/gooser/internal/v1/connection"
	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/metrics"
	"github.com/L0C8/gooser/internal/v1/state"
	"github.com/L0C8/gooser/internal/v1/types"
	"go.uber.org/zap"
)

// Emitter sends one outbound command and returns its correlation id.
type Emitter interface {
	Emit(event string, data any) (string, error)
}

// Client is the typed outbound command surface. Commands are fire and forget:
// the returned error only reports whether the command left the client.
// The server's verdict arrives later in the matching result slice.
type Client struct {
	emitter     Emitter
	currentRoom *state.Slice[*types.Room]
}

// New returns a Client. currentRoom is the slice LeaveRoom clears.
func New(emitter Emitter, currentRoom *state.Slice[*types.Room]) *Client {
	return &Client{emitter: emitter, currentRoom: currentRoom}
}

// --- Account ---

func (c *Client) Register(username, password, color string) error {
	return c.emit(types.CmdRegister, types.RegisterPayload{Username: username, Password: password, Color: color})
}

func (c *Client) Login(username, password string) error {
	return c.emit(types.CmdLogin, types.LoginPayload{Username: username, Password: password})
}

func (c *Client) GuestJoin(username, color string) error {
	return c.emit(types.CmdGuestJoin, types.GuestJoinPayload{Username: username, Color: color})
}

// SendMessage posts text to the current room.
func (c *Client) SendMessage(text string) error {
	return c.emit(types.CmdChat, text)
}

// --- Admin ---

func (c *Client) ResetPassword(targetUsername, newPassword string) error {
	return c.emit(types.CmdResetPassword, types.ResetPasswordPayload{TargetUsername: targetUsername, NewPassword: newPassword})
}

func (c *Client) DeleteMessage(messageID string) error {
	return c.emit(types.CmdDeleteMessage, messageID)
}

func (c *Client) KickUser(targetUsername string) error {
	return c.emit(types.CmdKickUser, types.KickUserPayload{TargetUsername: targetUsername})
}

// --- Rooms ---

func (c *Client) CreateRoom(name, description string, isPublic bool) error {
	return c.emit(types.CmdCreateRoom, types.CreateRoomPayload{Name: name, Description: description, IsPublic: isPublic})
}

func (c *Client) JoinRoom(roomID string) error {
	return c.emit(types.CmdJoinRoom, roomID)
}

// LeaveRoom asks the server to leave roomID and clears the current room
// immediately, whether or not the command could be sent. The server's
// roomResult for a leave cannot be told apart from other outcomes reliably.
func (c *Client) LeaveRoom(roomID string) error {
	err := c.emit(types.CmdLeaveRoom, roomID)
	c.currentRoom.Update(func(*types.Room) *types.Room { return nil })
	return err
}

func (c *Client) GetRooms() error {
	return c.emit(types.CmdGetRooms, nil)
}

func (c *Client) GetMyRooms() error {
	return c.emit(types.CmdGetMyRooms, nil)
}

func (c *Client) AddCharacterToRoom(roomID string, character types.RoomCharacter) error {
	return c.emit(types.CmdAddCharacterToRoom, types.AddCharacterToRoomPayload{RoomID: roomID, Character: character})
}

func (c *Client) RemoveCharacterFromRoom(roomID, characterID string) error {
	return c.emit(types.CmdRemoveCharacterFromRoom, types.RemoveCharacterFromRoomPayload{RoomID: roomID, CharacterID: characterID})
}

// --- Characters ---

func (c *Client) GetCharacters() error {
	return c.emit(types.CmdGetCharacters, nil)
}

func (c *Client) CreateCharacter(draft types.CharacterDraft) error {
	return c.emit(types.CmdCreateCharacter, draft)
}

func (c *Client) UpdateCharacter(card types.CharacterCard) error {
	return c.emit(types.CmdUpdateCharacter, card)
}

func (c *Client) DeleteCharacter(characterID string) error {
	return c.emit(types.CmdDeleteCharacter, characterID)
}

// --- API configs ---

func (c *Client) GetAPIConfigs() error {
	return c.emit(types.CmdGetAPIConfigs, nil)
}

func (c *Client) CreateAPIConfig(draft types.APIConfigDraft) error {
	return c.emit(types.CmdCreateAPIConfig, draft)
}

func (c *Client) UpdateAPIConfig(config types.APIConfig) error {
	return c.emit(types.CmdUpdateAPIConfig, config)
}

func (c *Client) DeleteAPIConfig(configID string) error {
	return c.emit(types.CmdDeleteAPIConfig, configID)
}

func (c *Client) emit(command string, data any) error {
	id, err := c.emitter.Emit(command, data)
	ctx := logging.WithCorrelationID(context.Background(), id)

	switch {
	case err == nil:
		metrics.OutboundCommands.WithLabelValues(command, "sent").Inc()
		// payloads are never logged: several carry credentials
		logging.Debug(ctx, "Command sent", zap.String("command", command))
	case errors.Is(err, connection.ErrNotConnected):
		metrics.OutboundCommands.WithLabelValues(command, "not_connected").Inc()
		logging.Debug(ctx, "Command not sent, no active session", zap.String("command", command))
	default:
		metrics.OutboundCommands.WithLabelValues(command, "error").Inc()
		logging.Warn(ctx, "Command could not be sent", zap.String("command", command), zap.Error(err))
	}
	return err
}
