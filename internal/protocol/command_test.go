package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tomz197/platformer/internal/world"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"A", Command{Kind: CmdLeft, Player: 1}},
		{"d", Command{Kind: CmdRight, Player: 1}},
		{"W", Command{Kind: CmdJump, Player: 1}},
		{"X", Command{Kind: CmdAttack, Player: 1}},
		{"LEFT", Command{Kind: CmdLeft, Player: 2}},
		{"JUMP", Command{Kind: CmdJump, Player: 2}},
		{"P", Command{Kind: CmdAttack, Player: 2}},
		{"I", Command{Kind: CmdActivatePlayer2, Player: 2}},
		{"O", Command{Kind: CmdSpectator}},
		{"R", Command{Kind: CmdRestart}},
		{"RESTART", Command{Kind: CmdRestart}},
		{"BONUS", Command{Kind: CmdBonus, Player: 1}},
		{"BONUS 2", Command{Kind: CmdBonus, Player: 2}},
		{"BONUSOFF", Command{Kind: CmdBonusOff}},
		{"REGENERATE_TILE 5 3", Command{Kind: CmdRegenerateTile, Cell: world.Cell{Row: 3, Col: 5}}},
		{"  regenerate_tile 0 23 \n", Command{Kind: CmdRegenerateTile, Cell: world.Cell{Row: 23, Col: 0}}},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.in)
		if err != nil {
			t.Errorf("ParseCommand(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseCommandRejects(t *testing.T) {
	for _, in := range []string{"", "Z", "REGENERATE_TILE 1", "REGENERATE_TILE a b", "BONUS 3", "A B"} {
		if _, err := ParseCommand(in); !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("ParseCommand(%q) err = %v", in, err)
		}
	}
}

func TestCommandStringRoundTrip(t *testing.T) {
	cmds := []Command{
		{Kind: CmdLeft, Player: 1}, {Kind: CmdRight, Player: 2},
		{Kind: CmdJump, Player: 2}, {Kind: CmdAttack, Player: 1},
		{Kind: CmdAttack, Player: 2}, {Kind: CmdActivatePlayer2, Player: 2},
		{Kind: CmdSpectator}, {Kind: CmdRestart},
		{Kind: CmdBonus, Player: 2}, {Kind: CmdBonusOff},
		{Kind: CmdRegenerateTile, Cell: world.Cell{Row: 4, Col: 9}},
	}
	for _, c := range cmds {
		got, err := ParseCommand(c.String())
		if err != nil || got != c {
			t.Errorf("%q parsed to %+v (%v), want %+v", c.String(), got, err, c)
		}
	}
	if (Command{Kind: CmdRegenerateTile, Cell: world.Cell{Row: 4, Col: 9}}).String() != "REGENERATE_TILE 9 4" {
		t.Error("regenerate token must carry column then row")
	}
}

func TestCommandFrame(t *testing.T) {
	b := EncodeCommandFrame(7, "REGENERATE_TILE 3 4")
	if len(b) != CommandFrameSize || CommandFrameSize != 264 {
		t.Fatalf("frame size = %d", len(b))
	}
	id, text, err := DecodeCommandFrame(b)
	if err != nil || id != 7 || text != "REGENERATE_TILE 3 4" {
		t.Errorf("decoded %d %q %v", id, text, err)
	}

	long := strings.Repeat("x", 400)
	_, text, _ = DecodeCommandFrame(EncodeCommandFrame(0, long))
	if len(text) != CommandTextSize-1 {
		t.Errorf("long text kept %d bytes", len(text))
	}

	b[0] = 9
	if _, _, err := DecodeCommandFrame(b); !errors.Is(err, ErrBadCommandFrame) {
		t.Errorf("bad type err = %v", err)
	}
	if _, _, err := ReadCommandFrame(bytes.NewReader(b[:20])); !errors.Is(err, ErrShortFrame) {
		t.Errorf("short read err = %v", err)
	}
}
