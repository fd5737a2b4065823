package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tomz197/platformer/internal/world"
)

// CommandKind is an upstream action.
type CommandKind int

const (
	CmdLeft CommandKind = iota
	CmdRight
	CmdJump
	CmdAttack
	CmdActivatePlayer2
	CmdSpectator
	CmdRestart
	CmdRegenerateTile
	CmdBonus
	CmdBonusOff
)

// Command is one parsed upstream token.
type Command struct {
	Kind   CommandKind
	Player int        // 1 or 2 for per-player commands
	Cell   world.Cell // REGENERATE_TILE target
}

var ErrUnknownCommand = errors.New("protocol: unknown command")

// Per-player movement tokens. Player 2 attacks with P; activation uses I.
var playerTokens = map[string]Command{
	"A":      {Kind: CmdLeft, Player: 1},
	"D":      {Kind: CmdRight, Player: 1},
	"W":      {Kind: CmdJump, Player: 1},
	"X":      {Kind: CmdAttack, Player: 1},
	"ATTACK": {Kind: CmdAttack, Player: 1},
	"LEFT":   {Kind: CmdLeft, Player: 2},
	"RIGHT":  {Kind: CmdRight, Player: 2},
	"JUMP":   {Kind: CmdJump, Player: 2},
	"P":      {Kind: CmdAttack, Player: 2},
}

// ParseCommand parses one plaintext token line.
func ParseCommand(s string) (Command, error) {
	fields := strings.Fields(strings.ToUpper(s))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command: %w", ErrUnknownCommand)
	}
	if c, ok := playerTokens[fields[0]]; ok && len(fields) == 1 {
		return c, nil
	}
	switch fields[0] {
	case "I":
		return Command{Kind: CmdActivatePlayer2, Player: 2}, nil
	case "O":
		return Command{Kind: CmdSpectator}, nil
	case "R", "RESTART":
		return Command{Kind: CmdRestart}, nil
	case "BONUS":
		player := 1
		if len(fields) == 2 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || (n != 1 && n != 2) {
				return Command{}, fmt.Errorf("bonus player %q: %w", fields[1], ErrUnknownCommand)
			}
			player = n
		}
		return Command{Kind: CmdBonus, Player: player}, nil
	case "BONUSOFF":
		return Command{Kind: CmdBonusOff}, nil
	case "REGENERATE_TILE":
		if len(fields) != 3 {
			return Command{}, fmt.Errorf("regenerate tile needs x y: %w", ErrUnknownCommand)
		}
		col, errX := strconv.Atoi(fields[1])
		row, errY := strconv.Atoi(fields[2])
		if errX != nil || errY != nil {
			return Command{}, fmt.Errorf("regenerate tile %q %q: %w", fields[1], fields[2], ErrUnknownCommand)
		}
		return Command{Kind: CmdRegenerateTile, Cell: world.Cell{Row: row, Col: col}}, nil
	}
	return Command{}, fmt.Errorf("%q: %w", s, ErrUnknownCommand)
}

// String formats the command as its wire token.
func (c Command) String() string {
	switch c.Kind {
	case CmdLeft:
		return pick(c.Player, "A", "LEFT")
	case CmdRight:
		return pick(c.Player, "D", "RIGHT")
	case CmdJump:
		return pick(c.Player, "W", "JUMP")
	case CmdAttack:
		return pick(c.Player, "X", "P")
	case CmdActivatePlayer2:
		return "I"
	case CmdSpectator:
		return "O"
	case CmdRestart:
		return "RESTART"
	case CmdRegenerateTile:
		return fmt.Sprintf("REGENERATE_TILE %d %d", c.Cell.Col, c.Cell.Row)
	case CmdBonus:
		if c.Player == 2 {
			return "BONUS 2"
		}
		return "BONUS"
	case CmdBonusOff:
		return "BONUSOFF"
	default:
		return ""
	}
}

func pick(player int, p1, p2 string) string {
	if player == 2 {
		return p2
	}
	return p1
}

// Binary command frame: int32 type, int32 client id, NUL-padded text.
const (
	CommandFrameType   = 2
	CommandTextSize    = 256
	CommandFrameSize   = 4 + 4 + CommandTextSize
	maxCommandTextSize = CommandTextSize - 1 // Room for the NUL terminator
)

var ErrBadCommandFrame = errors.New("protocol: bad command frame")

// EncodeCommandFrame wraps a token in the fixed binary command frame. Text
// longer than the buffer is truncated.
func EncodeCommandFrame(clientID int32, text string) []byte {
	b := make([]byte, CommandFrameSize)
	binary.LittleEndian.PutUint32(b[0:], CommandFrameType)
	binary.LittleEndian.PutUint32(b[4:], uint32(clientID))
	msg := []byte(text)
	if len(msg) > maxCommandTextSize {
		msg = msg[:maxCommandTextSize]
	}
	copy(b[8:], msg)
	return b
}

// DecodeCommandFrame parses one command frame.
func DecodeCommandFrame(b []byte) (clientID int32, text string, err error) {
	if len(b) < CommandFrameSize {
		return 0, "", fmt.Errorf("command frame %d bytes: %w", len(b), ErrShortFrame)
	}
	if t := int32(binary.LittleEndian.Uint32(b[0:])); t != CommandFrameType {
		return 0, "", fmt.Errorf("command frame type %d: %w", t, ErrBadCommandFrame)
	}
	clientID = int32(binary.LittleEndian.Uint32(b[4:]))
	body := b[8:CommandFrameSize]
	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}
	return clientID, string(body), nil
}

// ReadCommandFrame reads one whole command frame from r.
func ReadCommandFrame(r io.Reader) (int32, string, error) {
	buf := make([]byte, CommandFrameSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, "", fmt.Errorf("read command frame: %w", ErrShortFrame)
		}
		return 0, "", err
	}
	return DecodeCommandFrame(buf)
}
