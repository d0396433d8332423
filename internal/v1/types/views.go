package types

import "strings"

// PartitionRooms splits a room list into the rooms username belongs to and
// the public rooms they could still join. Private rooms without the user are omitted.
func PartitionRooms(rooms []Room, username string) (mine, public []Room) {
	name := strings.ToLower(username)
	for _, r := range rooms {
		switch {
		case r.MemberSet().Has(name):
			mine = append(mine, r)
		case r.IsPublic:
			public = append(public, r)
		}
	}
	return mine, public
}

// OnlineCount returns how many users are currently online.
func OnlineCount(users []User) int {
	n := 0
	for _, u := range users {
		if u.IsOnline {
			n++
		}
	}
	return n
}

// ActiveConfigs returns the configs that may be bound to a room.
func ActiveConfigs(configs []APIConfig) []APIConfig {
	var out []APIConfig
	for _, c := range configs {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

// AssignableCharacters returns the characters not yet bound to room.
func AssignableCharacters(characters []CharacterCard, room Room) []CharacterCard {
	bound := room.CharacterIDs()
	var out []CharacterCard
	for _, c := range characters {
		if !bound.Has(c.ID) {
			out = append(out, c)
		}
	}
	return out
}
