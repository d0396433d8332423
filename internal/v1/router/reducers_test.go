package router

import (
	"testing"

	"github.com/L0C8/gooser/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplace(t *testing.T) {
	assert.Equal(t, []int{}, Replace[int](nil))
	assert.Equal(t, []int{1, 2}, Replace([]int{1, 2}))
}

func TestAppendMessage_GrowsByOneInArrivalOrder(t *testing.T) {
	var msgs []types.Message
	timestamps := []int64{30, 10, 20}
	for i, ts := range timestamps {
		prev := msgs
		msgs = AppendMessage(msgs, types.NewSystemMessage("", "n", ts))
		require.Len(t, msgs, i+1)
		assert.Len(t, prev, i, "prior value is not mutated")
	}

	// no re-sort by timestamp
	assert.Equal(t, int64(30), msgs[0].Timestamp)
	assert.Equal(t, int64(10), msgs[1].Timestamp)
	assert.Equal(t, int64(20), msgs[2].Timestamp)
}

func TestDeleteMessage(t *testing.T) {
	prior := []types.Message{
		types.NewSystemMessage("s1", "Welcome", 1),
		types.NewUserMessage("m1", "al", "#fff", "hi", 2),
		types.NewUserMessage("m2", "bo", "#000", "yo", 3),
		types.NewSystemMessage("m1", "dup id", 4),
		types.NewSystemMessage("", "no id", 5),
	}

	t.Run("removes every entry with the id regardless of kind", func(t *testing.T) {
		out := DeleteMessage(prior, "m1")
		require.Len(t, out, 3)
		for _, m := range out {
			assert.NotEqual(t, "m1", m.ID)
		}
		assert.Len(t, prior, 5, "prior value is not mutated")
	})

	t.Run("removes system messages", func(t *testing.T) {
		out := DeleteMessage(prior, "s1")
		assert.Len(t, out, 4)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		assert.Equal(t, prior, DeleteMessage(prior, "missing"))
	})

	t.Run("empty id never matches id-less system messages", func(t *testing.T) {
		assert.Equal(t, prior, DeleteMessage(prior, ""))
	})

	t.Run("re-delete is a no-op", func(t *testing.T) {
		once := DeleteMessage(prior, "m2")
		assert.Equal(t, once, DeleteMessage(once, "m2"))
	})
}

func TestCurrentRoomAfter(t *testing.T) {
	lobby := &types.Room{ID: "lobby"}
	r1 := types.Room{ID: "r1", Name: "One"}

	tests := []struct {
		name   string
		prior  *types.Room
		result types.RoomResult
		want   *types.Room
	}{
		{"join sets room", nil, types.RoomResult{Success: true, Room: &r1}, &r1},
		{"join replaces room", lobby, types.RoomResult{Success: true, Room: &r1}, &r1},
		{"leave clears room", lobby, types.RoomResult{Success: true}, nil},
		{"list keeps room", lobby, types.RoomResult{Success: true, Rooms: []types.Room{r1}}, lobby},
		{"empty list keeps room", lobby, types.RoomResult{Success: true, Rooms: []types.Room{}}, lobby},
		{"failure keeps room", lobby, types.RoomResult{Success: false, Error: "nope"}, lobby},
		{"failure with room keeps room", lobby, types.RoomResult{Success: false, Room: &r1}, lobby},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurrentRoomAfter(tt.prior, tt.result)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentRoomAfter_CopiesRoom(t *testing.T) {
	room := types.Room{ID: "r1"}
	got := CurrentRoomAfter(nil, types.RoomResult{Success: true, Room: &room})
	room.Name = "mutated"
	assert.Empty(t, got.Name)
}
