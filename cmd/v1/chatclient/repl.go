package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/L0C8/gooser/internal/v1/chat"
	"github.com/L0C8/gooser/internal/v1/types"
)

// Defaults used by /addchar, matching the admin panel form.
const (
	defaultTriggerOnMention   = true
	defaultTriggerOnMessage   = false
	defaultTriggerProbability = 10
)

var (
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("usage")
	errNoCurrentRoom  = errors.New("not in a room")
)

// line is one parsed input line. An empty Name means nothing to do.
type line struct {
	Name string
	Args []string
}

type commandSpec struct {
	arity int
	usage string
}

var commandSpecs = map[string]commandSpec{
	"register":   {3, "/register <username> <password> <color>"},
	"login":      {2, "/login <username> <password>"},
	"guest":      {2, "/guest <username> <color>"},
	"rooms":      {0, "/rooms"},
	"myrooms":    {0, "/myrooms"},
	"join":       {1, "/join <roomId>"},
	"leave":      {0, "/leave"},
	"delete":     {1, "/delete <messageId>"},
	"kick":       {1, "/kick <username>"},
	"resetpw":    {2, "/resetpw <username> <newPassword>"},
	"characters": {0, "/characters"},
	"configs":    {0, "/configs"},
	"delchar":    {1, "/delchar <characterId>"},
	"delconfig":  {1, "/delconfig <configId>"},
	"addchar":    {3, "/addchar <roomId> <characterId> <apiConfigId>"},
	"rmchar":     {2, "/rmchar <roomId> <characterId>"},
	"connect":    {0, "/connect"},
	"reconnect":  {0, "/reconnect"},
	"disconnect": {0, "/disconnect"},
	"logout":     {0, "/logout"},
	"quit":       {0, "/quit"},
}

const createUsage = "/create <name> | <description> | public|private"

// parseLine turns raw input into a line. Text without a leading slash is a
// chat message.
func parseLine(raw string) (line, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return line{}, nil
	}
	if !strings.HasPrefix(raw, "/") {
		return line{Name: "chat", Args: []string{raw}}, nil
	}

	name, rest, _ := strings.Cut(raw[1:], " ")
	name = strings.ToLower(name)

	if name == "create" {
		parts := strings.Split(rest, "|")
		if len(parts) != 3 {
			return line{}, fmt.Errorf("%w: %s", errUsage, createUsage)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] == "" || (parts[2] != "public" && parts[2] != "private") {
			return line{}, fmt.Errorf("%w: %s", errUsage, createUsage)
		}
		return line{Name: name, Args: parts}, nil
	}

	spec, ok := commandSpecs[name]
	if !ok {
		return line{}, fmt.Errorf("%w: /%s", errUnknownCommand, name)
	}
	args := strings.Fields(rest)
	if len(args) != spec.arity {
		return line{}, fmt.Errorf("%w: %s", errUsage, spec.usage)
	}
	return line{Name: name, Args: args}, nil
}

// chatAPI is the part of *chat.Client the REPL drives.
type chatAPI interface {
	Register(username, password, color string) error
	Login(username, password string) error
	GuestJoin(username, color string) error
	SendMessage(text string) error
	ResetPassword(targetUsername, newPassword string) error
	DeleteMessage(messageID string) error
	KickUser(targetUsername string) error
	CreateRoom(name, description string, isPublic bool) error
	JoinRoom(roomID string) error
	LeaveRoom(roomID string) error
	GetRooms() error
	GetMyRooms() error
	AddCharacterToRoom(roomID string, character types.RoomCharacter) error
	RemoveCharacterFromRoom(roomID, characterID string) error
	GetCharacters() error
	DeleteCharacter(characterID string) error
	GetAPIConfigs() error
	DeleteAPIConfig(configID string) error
	CurrentRoom() *types.Room

	Connect(ctx context.Context) error
	Disconnect()
	Reconnect(ctx context.Context) error
	Logout(ctx context.Context) error
}

var _ chatAPI = (*chat.Client)(nil)

// execute runs one parsed line. quit reports that the user asked to exit.
func execute(ctx context.Context, c chatAPI, l line) (quit bool, err error) {
	a := l.Args
	switch l.Name {
	case "":
		return false, nil
	case "chat":
		return false, c.SendMessage(a[0])
	case "register":
		return false, c.Register(a[0], a[1], a[2])
	case "login":
		return false, c.Login(a[0], a[1])
	case "guest":
		return false, c.GuestJoin(a[0], a[1])
	case "rooms":
		return false, c.GetRooms()
	case "myrooms":
		return false, c.GetMyRooms()
	case "create":
		return false, c.CreateRoom(a[0], a[1], a[2] == "public")
	case "join":
		return false, c.JoinRoom(a[0])
	case "leave":
		room := c.CurrentRoom()
		if room == nil {
			return false, errNoCurrentRoom
		}
		return false, c.LeaveRoom(room.ID)
	case "delete":
		return false, c.DeleteMessage(a[0])
	case "kick":
		return false, c.KickUser(a[0])
	case "resetpw":
		return false, c.ResetPassword(a[0], a[1])
	case "characters":
		return false, c.GetCharacters()
	case "configs":
		return false, c.GetAPIConfigs()
	case "delchar":
		return false, c.DeleteCharacter(a[0])
	case "delconfig":
		return false, c.DeleteAPIConfig(a[0])
	case "addchar":
		return false, c.AddCharacterToRoom(a[0], types.RoomCharacter{
			CharacterID:        a[1],
			APIConfigID:        a[2],
			TriggerOnMention:   defaultTriggerOnMention,
			TriggerOnMessage:   defaultTriggerOnMessage,
			TriggerProbability: defaultTriggerProbability,
		})
	case "rmchar":
		return false, c.RemoveCharacterFromRoom(a[0], a[1])
	case "connect":
		return false, c.Connect(ctx)
	case "reconnect":
		return false, c.Reconnect(ctx)
	case "disconnect":
		c.Disconnect()
		return false, nil
	case "logout":
		return false, c.Logout(ctx)
	case "quit":
		return true, nil
	default:
		return false, fmt.Errorf("%w: /%s", errUnknownCommand, l.Name)
	}
}

// runREPL reads lines from in until EOF, /quit or ctx is cancelled. p may be
// nil; otherwise it learns the username of account commands that were sent.
func runREPL(ctx context.Context, c chatAPI, p *printer, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			l, err := parseLine(raw)
			if err != nil {
				fmt.Fprintln(out, "!", err)
				continue
			}
			quit, err := execute(ctx, c, l)
			if err != nil {
				fmt.Fprintln(out, "!", err)
			} else {
				p.track(l)
			}
			if quit {
				return nil
			}
		}
	}
}

// printer renders state changes as transcript lines.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	username string
	room     *types.Room
	history  []types.Message // as last rendered
}

// watch subscribes p to every slice it renders and returns the combined
// unsubscribe.
func (p *printer) watch(c *chat.Client) func() {
	unsubs := []func(){
		c.OnConnectionStatus(func(s types.ConnectionStatus) { p.printf("* %s", s) }),
		c.OnMessages(p.messages),
		c.OnCurrentRoom(p.currentRoom),
		c.OnRooms(p.rooms),
		c.OnUsers(func(users []types.User) {
			if len(users) > 0 {
				p.printf("* %d online", types.OnlineCount(users))
			}
		}),
		c.OnCharacters(p.characters),
		c.OnAPIConfigs(p.configs),
		c.OnAuthResult(func(r types.AuthResult) { p.result("auth", r.Success, r.Error) }),
		c.OnAdminResult(func(r types.AdminResult) { p.result("admin "+r.Action, r.Success, r.Error) }),
		c.OnRoomResult(func(r types.RoomResult) { p.result("room", r.Success, r.Error) }),
		c.OnCharacterResult(func(r types.CharacterResult) { p.result("character", r.Success, r.Error) }),
		c.OnAPIConfigResult(func(r types.APIConfigResult) { p.result("api config", r.Success, r.Error) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// track remembers who the user claimed to be, for the room listing.
func (p *printer) track(l line) {
	if p == nil {
		return
	}
	switch l.Name {
	case "register", "login", "guest":
		p.mu.Lock()
		p.username = l.Args[0]
		p.mu.Unlock()
	}
}

// messages prints what changed since the last rendered history: appended
// lines, deletion markers, or the whole history after a replacement.
func (p *printer) messages(msgs []types.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.history
	p.history = msgs

	if len(msgs) >= len(prev) && slices.Equal(msgs[:len(prev)], prev) {
		p.writeMessages(msgs[len(prev):])
		return
	}
	if len(msgs) == 0 {
		fmt.Fprintln(p.out, "-- history cleared")
		return
	}
	if removed, ok := removedFrom(prev, msgs); ok {
		for _, m := range removed {
			fmt.Fprintf(p.out, "-- message %s deleted\n", m.ID)
		}
		return
	}
	fmt.Fprintf(p.out, "-- history replaced (%d messages)\n", len(msgs))
	p.writeMessages(msgs)
}

func (p *printer) writeMessages(msgs []types.Message) {
	for _, m := range msgs {
		if m.IsSystem() {
			fmt.Fprintf(p.out, "-- %s\n", m.Text)
		} else {
			fmt.Fprintf(p.out, "<%s> %s  [%s]\n", m.Username, m.Text, m.ID)
		}
	}
}

// removedFrom returns the messages of prev missing from next when next is
// prev with some entries taken out.
func removedFrom(prev, next []types.Message) ([]types.Message, bool) {
	var removed []types.Message
	j := 0
	for _, m := range prev {
		if j < len(next) && next[j] == m {
			j++
			continue
		}
		removed = append(removed, m)
	}
	return removed, j == len(next)
}

func (p *printer) currentRoom(r *types.Room) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.room = r
	if r != nil {
		fmt.Fprintf(p.out, "* now in %s (%s)\n", r.Name, r.ID)
	}
}

func (p *printer) rooms(rooms []types.Room) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mine, public := types.PartitionRooms(rooms, p.username)
	for _, r := range mine {
		fmt.Fprintf(p.out, "  my room %s %q public=%t members=%d\n", r.ID, r.Name, r.IsPublic, len(r.Members))
	}
	for _, r := range public {
		fmt.Fprintf(p.out, "  open room %s %q members=%d\n", r.ID, r.Name, len(r.Members))
	}
}

// characters lists the characters that /addchar can still bind to the
// current room, or all of them outside a room.
func (p *printer) characters(chars []types.CharacterCard) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.room != nil {
		chars = types.AssignableCharacters(chars, *p.room)
	}
	for _, c := range chars {
		fmt.Fprintf(p.out, "  character %s %q\n", c.ID, c.Name)
	}
}

// configs lists the configs /addchar accepts.
func (p *printer) configs(configs []types.APIConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := types.ActiveConfigs(configs)
	if len(configs) > 0 {
		fmt.Fprintf(p.out, "* %d api configs, %d active\n", len(configs), len(active))
	}
	for _, c := range active {
		fmt.Fprintf(p.out, "  config %s %q %s/%s\n", c.ID, c.Name, c.Provider, c.Model)
	}
}

func (p *printer) result(kind string, ok bool, errMsg string) {
	if ok {
		p.printf("* %s ok", kind)
		return
	}
	p.printf("! %s failed: %s", kind, errMsg)
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}
