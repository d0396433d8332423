package router

import "github.com/L0C8/gooser/internal/v1/types"

// Reducers are pure: they never mutate prior and always return a value that
// can be published as the slice's next state.

// Replace returns next as the new snapshot. A null snapshot becomes empty.
func Replace[T any](next []T) []T {
	if next == nil {
		return []T{}
	}
	return next
}

// AppendMessage adds msg to the end of the history without re-sorting.
func AppendMessage(prior []types.Message, msg types.Message) []types.Message {
	out := make([]types.Message, len(prior), len(prior)+1)
	copy(out, prior)
	return append(out, msg)
}

// DeleteMessage removes every message whose ID equals id, whatever its kind.
// An empty id matches nothing.
func DeleteMessage(prior []types.Message, id string) []types.Message {
	if id == "" {
		return prior
	}
	out := make([]types.Message, 0, len(prior))
	for _, m := range prior {
		if m.ID != id {
			out = append(out, m)
		}
	}
	if len(out) == len(prior) {
		return prior
	}
	return out
}

// CurrentRoomAfter infers the current room from a room action result.
//
// roomResult carries three outcomes on one event: a join (room present),
// a list fetch (rooms present) and a leave (neither present). Only
// successful results move the current room.
func CurrentRoomAfter(prior *types.Room, r types.RoomResult) *types.Room {
	if !r.Success {
		return prior
	}
	switch {
	case r.HasRoom():
		room := *r.Room
		return &room
	case !r.HasRooms():
		return nil
	default:
		return prior
	}
}
