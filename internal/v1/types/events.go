package types

// Inbound event names (server -> client).
const (
	EventMessage         = "message"
	EventMessages        = "messages"
	EventUsers           = "users"
	EventAuthResult      = "authResult"
	EventAdminResult     = "adminResult"
	EventMessageDeleted  = "messageDeleted"
	EventRoomResult      = "roomResult"
	EventRooms           = "rooms"
	EventRoomUsers       = "roomUsers"
	EventCharacters      = "characters"
	EventAPIConfigs      = "apiConfigs"
	EventCharacterResult = "characterResult"
	EventAPIConfigResult = "apiConfigResult"
)

// Outbound command names (client -> server).
const (
	CmdRegister                = "register"
	CmdLogin                   = "login"
	CmdGuestJoin               = "guestJoin"
	CmdChat                    = "chat"
	CmdResetPassword           = "resetPassword"
	CmdDeleteMessage           = "deleteMessage"
	CmdKickUser                = "kickUser"
	CmdCreateRoom              = "createRoom"
	CmdJoinRoom                = "joinRoom"
	CmdLeaveRoom               = "leaveRoom"
	CmdGetRooms                = "getRooms"
	CmdGetMyRooms              = "getMyRooms"
	CmdGetCharacters           = "getCharacters"
	CmdCreateCharacter         = "createCharacter"
	CmdUpdateCharacter         = "updateCharacter"
	CmdDeleteCharacter         = "deleteCharacter"
	CmdGetAPIConfigs           = "getAPIConfigs"
	CmdCreateAPIConfig         = "createAPIConfig"
	CmdUpdateAPIConfig         = "updateAPIConfig"
	CmdDeleteAPIConfig         = "deleteAPIConfig"
	CmdAddCharacterToRoom      = "addCharacterToRoom"
	CmdRemoveCharacterFromRoom = "removeCharacterFromRoom"
)

// --- Outbound payloads ---

type RegisterPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Color    string `json:"color"`
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type GuestJoinPayload struct {
	Username string `json:"username"`
	Color    string `json:"color"`
}

type ResetPasswordPayload struct {
	TargetUsername string `json:"targetUsername"`
	NewPassword    string `json:"newPassword"`
}

type KickUserPayload struct {
	TargetUsername string `json:"targetUsername"`
}

type CreateRoomPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

type AddCharacterToRoomPayload struct {
	RoomID    string        `json:"roomId"`
	Character RoomCharacter `json:"character"`
}

type RemoveCharacterFromRoomPayload struct {
	RoomID      string `json:"roomId"`
	CharacterID string `json:"characterId"`
}
