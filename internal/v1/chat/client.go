// Package chat composes the slice store, event router, connection manager and
// command client into the single object an application talks to.
package chat

import (
	"context"

	"github.com/L0C8/gooser/internal/v1/command"
	"github.com/L0C8/gooser/internal/v1/connection"
	"github.com/L0C8/gooser/internal/v1/router"
	"github.com/L0C8/gooser/internal/v1/state"
	"github.com/L0C8/gooser/internal/v1/transport"
	"github.com/L0C8/gooser/internal/v1/types"
)

type Options struct {
	Dialer     transport.Dialer
	SendBuffer int
	// Observers see every inbound envelope right before it is dispatched.
	Observers []connection.Observer
}

// Client is one chat client instance. The embedded command client provides
// every outbound command; the OnX methods subscribe to state.
type Client struct {
	*command.Client

	store *state.Store
	conn  *connection.Manager
}

// New builds a client and starts its dispatch loop. It does not connect.
func New(opts Options) *Client {
	store := state.NewStore()
	r := router.New(store)

	mopts := []connection.Option{connection.WithSendBuffer(opts.SendBuffer)}
	for _, o := range opts.Observers {
		mopts = append(mopts, connection.WithObserver(o))
	}
	conn := connection.NewManager(opts.Dialer, store.ConnectionStatus, r.Dispatch, store.ResetDurable, mopts...)

	return &Client{
		Client: command.New(conn, store.CurrentRoom),
		store:  store,
		conn:   conn,
	}
}

// --- Lifecycle ---

func (c *Client) Connect(ctx context.Context) error { return c.conn.Connect(ctx) }

// Disconnect drops the session and keeps the last known state.
func (c *Client) Disconnect() { c.conn.Disconnect() }

// Reconnect clears every durable slice and opens a fresh session.
func (c *Client) Reconnect(ctx context.Context) error { return c.conn.Reconnect(ctx) }

// Logout ends the server-side session by reconnecting, which also clears
// local state.
func (c *Client) Logout(ctx context.Context) error { return c.conn.Reconnect(ctx) }

// Flush waits until everything received so far has been applied.
func (c *Client) Flush(ctx context.Context) error { return c.conn.Flush(ctx) }

func (c *Client) Close(ctx context.Context) error { return c.conn.Close(ctx) }

// Snapshot returns the current value of every durable slice.
func (c *Client) Snapshot() state.Snapshot { return c.store.Snapshot() }

// --- Subscriptions ---
// Durable slices call fn immediately with their current value.
// Result slices only deliver values published after the call.

func (c *Client) OnConnectionStatus(fn func(types.ConnectionStatus)) func() {
	return c.store.ConnectionStatus.Subscribe(fn)
}

func (c *Client) OnMessages(fn func([]types.Message)) func() {
	return c.store.Messages.Subscribe(fn)
}

func (c *Client) OnUsers(fn func([]types.User)) func() {
	return c.store.Users.Subscribe(fn)
}

func (c *Client) OnRooms(fn func([]types.Room)) func() {
	return c.store.Rooms.Subscribe(fn)
}

func (c *Client) OnCurrentRoom(fn func(*types.Room)) func() {
	return c.store.CurrentRoom.Subscribe(fn)
}

func (c *Client) OnRoomUsers(fn func([]types.User)) func() {
	return c.store.RoomUsers.Subscribe(fn)
}

func (c *Client) OnCharacters(fn func([]types.CharacterCard)) func() {
	return c.store.Characters.Subscribe(fn)
}

func (c *Client) OnAPIConfigs(fn func([]types.APIConfig)) func() {
	return c.store.APIConfigs.Subscribe(fn)
}

func (c *Client) OnAuthResult(fn func(types.AuthResult)) func() {
	return c.store.AuthResult.Subscribe(fn)
}

func (c *Client) OnAdminResult(fn func(types.AdminResult)) func() {
	return c.store.AdminResult.Subscribe(fn)
}

func (c *Client) OnRoomResult(fn func(types.RoomResult)) func() {
	return c.store.RoomResult.Subscribe(fn)
}

func (c *Client) OnCharacterResult(fn func(types.CharacterResult)) func() {
	return c.store.CharacterResult.Subscribe(fn)
}

func (c *Client) OnAPIConfigResult(fn func(types.APIConfigResult)) func() {
	return c.store.APIConfigResult.Subscribe(fn)
}

// --- Current values ---

func (c *Client) ConnectionStatus() types.ConnectionStatus { return c.store.ConnectionStatus.Get() }
func (c *Client) Messages() []types.Message                { return c.store.Messages.Get() }
func (c *Client) Users() []types.User                      { return c.store.Users.Get() }
func (c *Client) Rooms() []types.Room                      { return c.store.Rooms.Get() }
func (c *Client) CurrentRoom() *types.Room                 { return c.store.CurrentRoom.Get() }
func (c *Client) RoomUsers() []types.User                  { return c.store.RoomUsers.Get() }
func (c *Client) Characters() []types.CharacterCard        { return c.store.Characters.Get() }
func (c *Client) APIConfigs() []types.APIConfig            { return c.store.APIConfigs.Get() }

// LastAuthResult returns the most recent auth outcome, zero if none arrived.
func (c *Client) LastAuthResult() types.AuthResult { return c.store.AuthResult.Get() }

func (c *Client) LastRoomResult() types.RoomResult { return c.store.RoomResult.Get() }
