package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/world"
)

func TestMarshalStampsTypeAndNewline(t *testing.T) {
	b, err := Marshal(&GameOver{Message: "all players out"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(b, []byte("\n")) {
		t.Error("missing line terminator")
	}
	if !bytes.Contains(b, []byte(`"type":"GAME_OVER"`)) {
		t.Errorf("line = %s", b)
	}
}

func TestUnmarshalDispatch(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"map", NewMapMessage(world.DefaultMap())},
		{"destroyed", NewTileDestroyed(world.Cell{Row: 3, Col: 5})},
		{"regenerated", NewTileRegenerated(world.Cell{Row: 3, Col: 5})},
		{"attack", &AttackResult{Hit: true, PlayerID: 2, Defeated: 1, Points: 800}},
		{"game over", &GameOver{Message: "bye"}},
		{"p2", &Player2Activated{Success: false, Reason: "already active"}},
		{"bonus", &BonusPhase{Action: BonusStart, PlayerID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Marshal(tt.msg)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Unmarshal(b)
			if err != nil {
				t.Fatal(err)
			}
			if got.MessageType() != tt.msg.MessageType() {
				t.Errorf("type = %s, want %s", got.MessageType(), tt.msg.MessageType())
			}
		})
	}
}

func TestTileMessageCoordinates(t *testing.T) {
	got, err := Unmarshal([]byte(`{"type":"TILE_REGENERATED","x":7,"y":11}`))
	if err != nil {
		t.Fatal(err)
	}
	tm, ok := got.(*TileMessage)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if tm.MessageType() != TypeTileRegenerated || tm.Cell() != (world.Cell{Row: 11, Col: 7}) {
		t.Errorf("tile = %+v", tm)
	}
}

func TestMapMessageMatrix(t *testing.T) {
	m := world.DefaultMap()
	b, _ := Marshal(NewMapMessage(m))
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	out, err := got.(*MapMessage).Matrix()
	if err != nil {
		t.Fatal(err)
	}
	if out != m {
		t.Error("matrix changed across the wire")
	}

	bad := &MapMessage{Width: 3, Height: 1, Map: [][]int32{{1, 1, 1}}}
	if _, err := bad.Matrix(); !errors.Is(err, ErrBadMap) {
		t.Errorf("err = %v, want ErrBadMap", err)
	}
}

func TestPlayerUpdateEntities(t *testing.T) {
	u := &PlayerUpdate{IsPlayer2Active: true}
	u.SetEnemies([]object.EnemyState{
		{Slot: 0, Kind: object.EnemyFlying, GridX: 2, GridY: 3, Active: true},
		{Slot: 1},
	})
	u.SetFruits([]object.FruitState{{Slot: 3, Kind: object.FruitBanana, GridX: 1, GridY: 1, Active: true}})

	b, err := Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	pu := got.(*PlayerUpdate)
	if !pu.IsPlayer2Active || pu.Player2 != nil || pu.PlayerAbove != nil {
		t.Errorf("update = %+v", pu)
	}
	enemies := pu.EnemyStates()
	if len(enemies) != 2 || enemies[0].Kind != object.EnemyFlying || enemies[1].Active {
		t.Errorf("enemies = %+v", enemies)
	}
	fruits := pu.FruitStates()
	if len(fruits) != 1 || fruits[0].Slot != 3 || fruits[0].Kind != object.FruitBanana {
		t.Errorf("fruits = %+v", fruits)
	}
	if pu.Fruits[0].Points != 200 {
		t.Errorf("points = %d", pu.Fruits[0].Points)
	}
}

func TestPlayerUpdateUnknownEnemyType(t *testing.T) {
	line := `{"type":"PLAYER_UPDATE","enemies":[{"id":"4","x":1,"y":2,"isActive":true,"enemyType":"DRAGON"}]}`
	got, err := Unmarshal([]byte(line))
	if err != nil {
		t.Fatal(err)
	}
	states := got.(*PlayerUpdate).EnemyStates()
	if states[0].Slot != 4 || states[0].Kind != object.EnemyNone {
		t.Errorf("state = %+v", states[0])
	}
}

func TestEntrySlotSources(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  int
	}{
		{"explicit zero wins over id", `{"slot":0,"id":"7","isActive":true}`, 0},
		{"explicit slot", `{"slot":5,"id":"7","isActive":true}`, 5},
		{"numeric id", `{"id":"7","isActive":true}`, 7},
		{"array position", `{"id":"bird","isActive":true}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := `{"type":"PLAYER_UPDATE","enemies":[{"slot":9,"isActive":false},` + tt.entry + `]}`
			got, err := Unmarshal([]byte(line))
			if err != nil {
				t.Fatal(err)
			}
			states := got.(*PlayerUpdate).EnemyStates()
			if states[1].Slot != tt.want {
				t.Errorf("slot = %d, want %d", states[1].Slot, tt.want)
			}
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{`{"type":"NOPE"}`, ErrUnknownMessage},
		{`{"type":"MAP"`, nil},
		{``, nil},
	}
	for _, tt := range tests {
		_, err := Unmarshal([]byte(tt.line))
		if err == nil {
			t.Errorf("Unmarshal(%q) succeeded", tt.line)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("Unmarshal(%q) err = %v, want %v", tt.line, err, tt.want)
		}
	}
}

func TestPlayerStateFromPlayer(t *testing.T) {
	p := object.NewPlayer(2)
	p.Lives = 0
	s := NewPlayerState(p)
	if s.IsAlive || s.Lives != 0 || s.X != p.X {
		t.Errorf("state = %+v", s)
	}
	if !strings.Contains(string(mustMarshal(t, &PlayerUpdate{Player1: s})), `"isAlive":false`) {
		t.Error("isAlive not encoded")
	}
}

func mustMarshal(t *testing.T, m Message) []byte {
	t.Helper()
	b, err := Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
