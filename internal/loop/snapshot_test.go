package loop

import (
	"testing"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/world"
)

func TestPlayerUpdateSnapshot(t *testing.T) {
	w := newTestWorld(floorMap())
	w.Players[0].Score = 120
	w.Enemies.Activate(2, object.EnemyGround, 5, 22, w.SpawnEnv())

	u := w.PlayerUpdate(t0)
	if u.Player1 == nil || u.Player2 != nil || u.IsPlayer2Active {
		t.Fatalf("player fields: %+v", u)
	}
	if u.BonusPlayerID != nil || u.IsBonusPhase {
		t.Error("bonus fields set outside a bonus phase")
	}
	if len(u.EnemyStates()) == 0 {
		t.Error("enemies missing")
	}

	w.ActivatePlayer2()
	w.Players[1].Score = 30
	w.StartBonus(2, t0)
	u = w.PlayerUpdate(t0.Add(config.BonusDuration / 2))
	if u.Player2 == nil || !u.IsPlayer2Active {
		t.Error("player 2 missing")
	}
	if u.BonusPlayerID == nil || *u.BonusPlayerID != 2 {
		t.Errorf("bonus owner = %v", u.BonusPlayerID)
	}
	if want := int((config.BonusDuration / 2).Milliseconds()); u.BonusTimeRemaining != want {
		t.Errorf("remaining = %d, want %d", u.BonusTimeRemaining, want)
	}
	if w.Score() != 150 {
		t.Errorf("score = %d", w.Score())
	}
}

func TestFrameCarriesBaseLayoutDuringBonus(t *testing.T) {
	m := floorMap()
	m[10][10] = config.CellPlatform
	w := newTestWorld(m)
	w.StartBonus(1, t0)

	f := w.Frame()
	if f.Matrix != m {
		t.Error("frame carries the bonus map")
	}
	if w.Grid.Matrix() != world.BonusMap() {
		t.Error("live grid is not the bonus map")
	}
}
