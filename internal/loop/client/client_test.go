package client

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/platformer/internal/input"
	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/network"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/protocol"
	"github.com/tomz197/platformer/internal/world"
)

var t0 = time.Unix(2000, 0)

type fakeUplink struct {
	mu        sync.Mutex
	wire      network.Wire
	connected bool
	sent      []protocol.Command
}

func (f *fakeUplink) Send(cmd protocol.Command) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return false
	}
	f.sent = append(f.sent, cmd)
	return true
}

func (f *fakeUplink) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeUplink) Wire() network.Wire { return f.wire }

func (f *fakeUplink) disconnect() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeUplink) take() []protocol.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

func floorMap() world.Matrix {
	var m world.Matrix
	for col := range config.GridCols {
		m[config.GridRows-1][col] = config.CellPlatform
	}
	return m
}

func newTestClient(up Uplink, m world.Matrix) *Client {
	c := NewClient(ClientOptions{
		Map:    m,
		Seed:   1,
		Uplink: up,
		Logger: log.New(&bytes.Buffer{}),
	})
	now := t0
	c.now = func() time.Time { return now }
	return c
}

func hasCommand(cmds []protocol.Command, want protocol.Command) bool {
	for _, c := range cmds {
		if c == want {
			return true
		}
	}
	return false
}

func TestTickSendsHeldKeys(t *testing.T) {
	up := &fakeUplink{connected: true}
	c := newTestClient(up, floorMap())

	var in input.Input
	in.Players[0] = object.Intent{Left: true, Attack: true}
	in.Players[1] = object.Intent{Right: true}
	c.Tick(t0, in)

	sent := up.take()
	if !hasCommand(sent, protocol.Command{Kind: protocol.CmdLeft, Player: 1}) ||
		!hasCommand(sent, protocol.Command{Kind: protocol.CmdAttack, Player: 1}) {
		t.Errorf("sent %+v", sent)
	}
	if hasCommand(sent, protocol.Command{Kind: protocol.CmdRight, Player: 2}) {
		t.Error("inactive player 2 sent a command")
	}
}

func TestOfflineTickSendsNothing(t *testing.T) {
	up := &fakeUplink{}
	c := newTestClient(up, floorMap())
	var in input.Input
	in.Players[0].Jump = true
	in.ActivatePlayer2 = true
	c.Tick(t0, in)
	if len(up.take()) != 0 {
		t.Error("commands sent while disconnected")
	}
	c.View(func(s *ClientState) {
		if !s.World.Player2Active {
			t.Error("offline activation should be local")
		}
	})
}

func TestPlayer2ActivationAwaitsReplyOnJSON(t *testing.T) {
	up := &fakeUplink{connected: true, wire: network.WireJSON}
	c := newTestClient(up, floorMap())
	c.Tick(t0, input.Input{ActivatePlayer2: true})

	if !hasCommand(up.take(), protocol.Command{Kind: protocol.CmdActivatePlayer2, Player: 2}) {
		t.Fatal("activation not sent")
	}
	c.View(func(s *ClientState) {
		if s.World.Player2Active {
			t.Error("activated before the host answered")
		}
	})

	c.HandleMessage(&protocol.Player2Activated{Success: false, Reason: "already active"})
	c.View(func(s *ClientState) {
		if s.World.Player2Active || !strings.Contains(s.Notice, "already active") {
			t.Errorf("refusal not shown: active=%v notice=%q", s.World.Player2Active, s.Notice)
		}
	})

	c.HandleMessage(&protocol.Player2Activated{Success: true})
	c.View(func(s *ClientState) {
		if !s.World.Player2Active {
			t.Error("player 2 not activated by reply")
		}
	})
}

func TestBinaryLinkActivatesLocally(t *testing.T) {
	up := &fakeUplink{connected: true, wire: network.WireBinary}
	c := newTestClient(up, floorMap())
	c.Tick(t0, input.Input{ActivatePlayer2: true})
	c.View(func(s *ClientState) {
		if !s.World.Player2Active {
			t.Error("binary link cannot answer; activation should be local")
		}
		if s.World.Regen.AwaitsConfirm() {
			t.Error("binary link must not wait for regeneration confirms")
		}
	})
}

func TestFrameReconcilesEntities(t *testing.T) {
	c := newTestClient(nil, floorMap())
	enemies := []object.EnemyState{{Slot: 3, Kind: object.EnemyGround, GridX: 5, GridY: 22, Active: true}}
	fruits := []object.FruitState{{Slot: 1, Kind: object.FruitLettuce, GridX: 8, GridY: 22, Active: true}}
	m := floorMap()
	m[10][10] = config.CellPlatform

	c.HandleFrame(*protocol.NewFrame(m, enemies, fruits, 900))

	c.View(func(s *ClientState) {
		if !s.World.Enemies.Slots()[3].Active || s.World.Enemies.Slots()[3].Kind != object.EnemyGround {
			t.Error("enemy slot 3 not activated")
		}
		if !s.World.Fruits.Slots()[1].Active {
			t.Error("fruit slot 1 not activated")
		}
		if s.World.Grid.Matrix()[10][10] != config.CellPlatform {
			t.Error("layout not loaded")
		}
		if s.HostScore != 900 || s.BaseMap != m {
			t.Errorf("host score %d", s.HostScore)
		}
	})
}

func TestTileMessages(t *testing.T) {
	up := &fakeUplink{connected: true, wire: network.WireJSON}
	m := floorMap()
	m[12][6] = config.CellPlatform
	c := newTestClient(up, m)
	cell := world.Cell{Row: 12, Col: 6}

	c.HandleMessage(protocol.NewTileDestroyed(cell))
	c.View(func(s *ClientState) {
		if tile, _ := s.World.Grid.At(12, 6); !tile.Broken {
			t.Fatal("tile not broken")
		}
	})

	// The due tile is requested upstream and waits for the host.
	c.Tick(t0.Add(config.RegenDelay), input.Input{})
	if !hasCommand(up.take(), protocol.Command{Kind: protocol.CmdRegenerateTile, Cell: cell}) {
		t.Fatal("regeneration not requested")
	}
	c.View(func(s *ClientState) {
		if tile, _ := s.World.Grid.At(12, 6); !tile.Broken {
			t.Error("tile regenerated without confirmation")
		}
	})

	c.HandleMessage(protocol.NewTileRegenerated(cell))
	c.View(func(s *ClientState) {
		if tile, _ := s.World.Grid.At(12, 6); tile.Broken {
			t.Error("confirmation not applied")
		}
	})
}

func TestDisconnectFallsBackToLocalRegen(t *testing.T) {
	up := &fakeUplink{connected: true, wire: network.WireJSON}
	m := floorMap()
	m[12][6] = config.CellPlatform
	c := newTestClient(up, m)
	c.HandleMessage(protocol.NewTileDestroyed(world.Cell{Row: 12, Col: 6}))

	up.disconnect()
	c.Tick(t0.Add(config.RegenDelay), input.Input{})
	c.View(func(s *ClientState) {
		if tile, _ := s.World.Grid.At(12, 6); tile.Broken {
			t.Error("tile did not regenerate locally after the link dropped")
		}
	})
}

func TestLocalBonusIsReportedUpstream(t *testing.T) {
	up := &fakeUplink{connected: true}
	m := floorMap()
	m[21][2] = config.CellBonusTrigger
	c := newTestClient(up, m)

	c.Tick(t0, input.Input{})
	if !hasCommand(up.take(), protocol.Command{Kind: protocol.CmdBonus, Player: 1}) {
		t.Fatal("BONUS not sent")
	}
	c.Tick(t0.Add(config.BonusDuration), input.Input{})
	if !hasCommand(up.take(), protocol.Command{Kind: protocol.CmdBonusOff}) {
		t.Error("BONUSOFF not sent")
	}
}

func TestHostBonusIsNotEchoed(t *testing.T) {
	up := &fakeUplink{connected: true}
	c := newTestClient(up, floorMap())
	c.HandleMessage(&protocol.BonusPhase{Action: protocol.BonusStart, PlayerID: 1})
	c.View(func(s *ClientState) {
		if !s.World.Bonus.Active() {
			t.Fatal("bonus not started")
		}
	})
	c.Tick(t0, input.Input{})
	if hasCommand(up.take(), protocol.Command{Kind: protocol.CmdBonus, Player: 1}) {
		t.Error("host bonus echoed back")
	}
	c.HandleMessage(&protocol.BonusPhase{Action: protocol.BonusEnd})
	c.View(func(s *ClientState) {
		if s.World.Bonus.Active() || s.World.Bonus.Completed() != 1 {
			t.Error("bonus not ended")
		}
	})
}

// worldView is the part of the client state a bad message must not touch.
type worldView struct {
	bonus    bool
	owner    int
	layout   world.Matrix
	broken   int
	enemies  int
	fruits   int
	lives    [config.MaxPlayers]int
	p2       bool
	gameOver bool
}

func viewOf(c *Client) worldView {
	var v worldView
	c.View(func(s *ClientState) {
		w := s.World
		v = worldView{
			bonus:    w.Bonus.Active(),
			owner:    w.Bonus.Owner(),
			layout:   w.Grid.Matrix(),
			broken:   len(w.Grid.DueForRegen(t0.Add(time.Hour), 0)),
			enemies:  w.Enemies.ActiveCount(),
			fruits:   w.Fruits.ActiveCount(),
			p2:       w.Player2Active,
			gameOver: w.GameOver,
		}
		for i, p := range w.Players {
			v.lives[i] = p.Lives
		}
	})
	return v
}

func TestMalformedMessagesLeaveStateAlone(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"bonus owner out of range", `{"type":"BONUS_PHASE","action":"START","playerId":3}`},
		{"bonus owner negative", `{"type":"BONUS_PHASE","action":"START","playerId":-1}`},
		{"bonus unknown action", `{"type":"BONUS_PHASE","action":"PAUSE","playerId":1}`},
		{"tile destroyed off grid", `{"type":"TILE_DESTROYED","x":40,"y":5}`},
		{"tile destroyed negative", `{"type":"TILE_DESTROYED","x":-1,"y":-1}`},
		{"tile regenerated off grid", `{"type":"TILE_REGENERATED","x":99,"y":99}`},
		{"enemy slot negative", `{"type":"PLAYER_UPDATE","enemies":[{"slot":-1,"x":3,"y":3,"isActive":true,"enemyType":"GROUND"}]}`},
		{"enemy slot too large", `{"type":"PLAYER_UPDATE","enemies":[{"slot":99,"x":3,"y":3,"isActive":true,"enemyType":"FLYING"}]}`},
		{"enemy unknown type", `{"type":"PLAYER_UPDATE","enemies":[{"slot":2,"x":3,"y":3,"isActive":true,"enemyType":"DRAGON"}]}`},
		{"fruit slot too large", `{"type":"PLAYER_UPDATE","fruits":[{"slot":42,"x":3,"y":3,"isActive":true,"fruitType":"ORANGE"}]}`},
		{"map wrong size", `{"type":"MAP","width":3,"height":1,"map":[[1,1,1]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := floorMap()
			m[12][6] = config.CellPlatform
			c := newTestClient(&fakeUplink{connected: true, wire: network.WireJSON}, m)
			before := viewOf(c)

			msg, err := protocol.Unmarshal([]byte(tt.line))
			if err != nil {
				t.Fatal(err)
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Fatalf("HandleMessage panicked: %v", r)
					}
				}()
				c.HandleMessage(msg)
			}()

			if after := viewOf(c); after != before {
				t.Errorf("state changed:\n before %+v\n after  %+v", before, after)
			}
		})
	}
}

func TestBonusStartWithoutOwnerDefaultsToPlayer1(t *testing.T) {
	c := newTestClient(nil, floorMap())
	msg, err := protocol.Unmarshal([]byte(`{"type":"BONUS_PHASE","action":"START"}`))
	if err != nil {
		t.Fatal(err)
	}
	c.HandleMessage(msg)
	if v := viewOf(c); !v.bonus || v.owner != 1 || v.lives[0] != config.InitialLives+1 {
		t.Errorf("view = %+v", v)
	}
}

func TestGameOverFreezesUntilRestart(t *testing.T) {
	up := &fakeUplink{connected: true}
	c := newTestClient(up, floorMap())
	c.HandleMessage(&protocol.GameOver{Message: "all players out"})

	var in input.Input
	in.Players[0].Right = true
	var x0 float64
	c.View(func(s *ClientState) { x0 = s.World.Players[0].X })
	c.Tick(t0, in)
	c.View(func(s *ClientState) {
		if s.World.Players[0].X != x0 {
			t.Error("player moved after game over")
		}
	})
	if len(up.take()) != 0 {
		t.Error("movement sent after game over")
	}

	c.Tick(t0, input.Input{Restart: true})
	if !hasCommand(up.take(), protocol.Command{Kind: protocol.CmdRestart}) {
		t.Error("RESTART not sent")
	}
	c.View(func(s *ClientState) {
		if s.World.GameOver {
			t.Error("still over after restart")
		}
	})
}

func TestSpectatorLimitNotice(t *testing.T) {
	c := newTestClient(nil, floorMap())
	defer c.Hub().Close()
	for range config.MaxSpectators {
		c.Tick(t0, input.Input{Spectate: true})
	}
	c.Tick(t0, input.Input{Spectate: true})
	if c.Hub().Count() != config.MaxSpectators {
		t.Errorf("spectators = %d", c.Hub().Count())
	}
	c.View(func(s *ClientState) {
		if s.Notice != "Spectator limit reached" {
			t.Errorf("notice = %q", s.Notice)
		}
	})
}

func TestQuitStopsTick(t *testing.T) {
	c := newTestClient(nil, floorMap())
	if c.Tick(t0, input.Input{Quit: true}) {
		t.Error("Tick continued after quit")
	}
}

func TestDrawFrame(t *testing.T) {
	var out bytes.Buffer
	c := NewClient(ClientOptions{Map: floorMap(), Out: &out, Logger: log.New(&bytes.Buffer{})})
	c.Tick(t0, input.Input{})
	c.mu.Lock()
	err := c.drawFrame(t0)
	c.mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "P1 lives 3") || !strings.Contains(out.String(), "[offline]") {
		t.Errorf("status line missing")
	}
}
