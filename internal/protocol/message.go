package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/world"
)

// Message types of the line-delimited wire form.
const (
	TypeMap              = "MAP"
	TypePlayerUpdate     = "PLAYER_UPDATE"
	TypeTileDestroyed    = "TILE_DESTROYED"
	TypeTileRegenerated  = "TILE_REGENERATED"
	TypeAttackResult     = "ATTACK_RESULT"
	TypeGameOver         = "GAME_OVER"
	TypePlayer2Activated = "PLAYER2_ACTIVATED"
	TypeBonusPhase       = "BONUS_PHASE"
)

// Bonus phase actions.
const (
	BonusStart = "START"
	BonusEnd   = "END"
)

var (
	ErrUnknownMessage = errors.New("protocol: unknown message type")
	ErrBadMap         = errors.New("protocol: map dimensions mismatch")
)

// Message is one structured wire message.
type Message interface {
	MessageType() string
	stamp(t string)
}

type header struct {
	Type string `json:"type"`
}

func (h *header) stamp(t string) { h.Type = t }

// MapMessage carries the full cell matrix.
type MapMessage struct {
	header
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Map    [][]int32 `json:"map"`
}

func (*MapMessage) MessageType() string { return TypeMap }

// NewMapMessage builds a MAP message from a matrix.
func NewMapMessage(m world.Matrix) *MapMessage {
	rows := make([][]int32, len(m))
	for i := range m {
		rows[i] = append([]int32(nil), m[i][:]...)
	}
	return &MapMessage{Width: config.GridCols, Height: config.GridRows, Map: rows}
}

// Matrix converts the payload back into a fixed matrix.
func (m *MapMessage) Matrix() (world.Matrix, error) {
	var out world.Matrix
	if m.Width != config.GridCols || m.Height != config.GridRows || len(m.Map) != config.GridRows {
		return out, fmt.Errorf("map %dx%d: %w", m.Width, m.Height, ErrBadMap)
	}
	for i, row := range m.Map {
		if len(row) != config.GridCols {
			return out, fmt.Errorf("map row %d has %d cells: %w", i, len(row), ErrBadMap)
		}
		copy(out[i][:], row)
	}
	return out, nil
}

// PlayerState is one player inside PLAYER_UPDATE.
type PlayerState struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	IsOnGround   bool    `json:"isOnGround"`
	IsJumping    bool    `json:"isJumping"`
	IsAttacking  bool    `json:"isAttacking"`
	Lives        int     `json:"lives"`
	Score        int     `json:"score"`
	Invulnerable bool    `json:"isInvulnerable"`
	IsAlive      bool    `json:"isAlive"`
}

// NewPlayerState captures a player for the wire.
func NewPlayerState(p *object.Player) *PlayerState {
	return &PlayerState{
		X:            p.X,
		Y:            p.Y,
		IsOnGround:   p.OnGround,
		IsJumping:    !p.OnGround && p.VelY < 0,
		IsAttacking:  p.Attacking,
		Lives:        p.Lives,
		Score:        p.Score,
		Invulnerable: p.Invulnerable,
		IsAlive:      p.Alive(),
	}
}

// EnemyEntry is one enemy slot inside PLAYER_UPDATE. X and Y are grid cells.
type EnemyEntry struct {
	ID        string `json:"id"`
	Slot      *int   `json:"slot"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	IsActive  bool   `json:"isActive"`
	EnemyType string `json:"enemyType,omitempty"`
}

// FruitEntry is one fruit slot inside PLAYER_UPDATE. X and Y are grid cells.
type FruitEntry struct {
	ID        string `json:"id"`
	Slot      *int   `json:"slot"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	IsActive  bool   `json:"isActive"`
	FruitType string `json:"fruitType,omitempty"`
	Points    int    `json:"points,omitempty"`
}

// PlayerUpdate is the per-tick structured snapshot.
type PlayerUpdate struct {
	header
	Player1            *PlayerState `json:"player1,omitempty"`
	Player2            *PlayerState `json:"player2"`
	IsPlayer2Active    bool         `json:"isPlayer2Active"`
	PlayerAbove        *int         `json:"playerAbove"`
	IsBonusPhase       bool         `json:"isBonusPhase"`
	BonusPlayerID      *int         `json:"bonusPlayerId"`
	BonusTimeRemaining int          `json:"bonusTimeRemaining"`
	Enemies            []EnemyEntry `json:"enemies"`
	Fruits             []FruitEntry `json:"fruits"`
}

func (*PlayerUpdate) MessageType() string { return TypePlayerUpdate }

// SetEnemies fills the enemy array from pool states.
func (u *PlayerUpdate) SetEnemies(states []object.EnemyState) {
	u.Enemies = make([]EnemyEntry, len(states))
	for i, s := range states {
		u.Enemies[i] = EnemyEntry{
			ID:        strconv.Itoa(s.Slot),
			Slot:      &s.Slot,
			X:         s.GridX,
			Y:         s.GridY,
			IsActive:  s.Active,
			EnemyType: enemyTypeName(s.Kind),
		}
	}
}

// SetFruits fills the fruit array from pool states.
func (u *PlayerUpdate) SetFruits(states []object.FruitState) {
	u.Fruits = make([]FruitEntry, len(states))
	for i, s := range states {
		u.Fruits[i] = FruitEntry{
			ID:        strconv.Itoa(s.Slot),
			Slot:      &s.Slot,
			X:         s.GridX,
			Y:         s.GridY,
			IsActive:  s.Active,
			FruitType: fruitTypeName(s.Kind),
			Points:    s.Kind.Points(),
		}
	}
}

// EnemyStates converts the enemy array, clamping unknown types to none.
func (u *PlayerUpdate) EnemyStates() []object.EnemyState {
	out := make([]object.EnemyState, 0, len(u.Enemies))
	for i, e := range u.Enemies {
		out = append(out, object.EnemyState{
			Slot:   entrySlot(e.Slot, e.ID, i),
			Kind:   parseEnemyType(e.EnemyType),
			GridX:  e.X,
			GridY:  e.Y,
			Active: e.IsActive,
		})
	}
	return out
}

// FruitStates converts the fruit array, clamping unknown types to none.
func (u *PlayerUpdate) FruitStates() []object.FruitState {
	out := make([]object.FruitState, 0, len(u.Fruits))
	for i, f := range u.Fruits {
		out = append(out, object.FruitState{
			Slot:   entrySlot(f.Slot, f.ID, i),
			Kind:   parseFruitType(f.FruitType),
			GridX:  f.X,
			GridY:  f.Y,
			Active: f.IsActive,
		})
	}
	return out
}

// entrySlot picks the slot index: the explicit field, else a numeric id,
// else the array position.
func entrySlot(slot *int, id string, pos int) int {
	if slot != nil {
		return *slot
	}
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return pos
}

// TileMessage reports a tile change. X is the column and Y the row.
type TileMessage struct {
	header
	X int `json:"x"`
	Y int `json:"y"`
}

// NewTileDestroyed builds a TILE_DESTROYED message.
func NewTileDestroyed(cell world.Cell) *TileMessage {
	return &TileMessage{header: header{Type: TypeTileDestroyed}, X: cell.Col, Y: cell.Row}
}

// NewTileRegenerated builds a TILE_REGENERATED message.
func NewTileRegenerated(cell world.Cell) *TileMessage {
	return &TileMessage{header: header{Type: TypeTileRegenerated}, X: cell.Col, Y: cell.Row}
}

// MessageType returns the stamped type, TILE_DESTROYED by default.
func (m *TileMessage) MessageType() string {
	if m.Type == TypeTileRegenerated {
		return TypeTileRegenerated
	}
	return TypeTileDestroyed
}

// Cell returns the tile coordinate.
func (m *TileMessage) Cell() world.Cell {
	return world.Cell{Row: m.Y, Col: m.X}
}

// AttackResult reports the outcome of one attack.
type AttackResult struct {
	header
	Hit      bool `json:"hit"`
	PlayerID int  `json:"playerId,omitempty"`
	Defeated int  `json:"defeated,omitempty"`
	Points   int  `json:"points,omitempty"`
}

func (*AttackResult) MessageType() string { return TypeAttackResult }

// GameOver ends the session.
type GameOver struct {
	header
	Message string `json:"message"`
}

func (*GameOver) MessageType() string { return TypeGameOver }

// Player2Activated answers the activation command.
type Player2Activated struct {
	header
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

func (*Player2Activated) MessageType() string { return TypePlayer2Activated }

// BonusPhase announces a bonus phase transition.
type BonusPhase struct {
	header
	Action   string `json:"action"`
	PlayerID int    `json:"playerId,omitempty"`
}

func (*BonusPhase) MessageType() string { return TypeBonusPhase }

// Marshal encodes m as one newline-terminated JSON line.
func Marshal(m Message) ([]byte, error) {
	m.stamp(m.MessageType())
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.MessageType(), err)
	}
	return append(b, '\n'), nil
}

// Unmarshal decodes one JSON line into its typed message.
func Unmarshal(line []byte) (Message, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("unmarshal: empty line")
	}
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("unmarshal header: %w", err)
	}
	var m Message
	switch h.Type {
	case TypeMap:
		m = &MapMessage{}
	case TypePlayerUpdate:
		m = &PlayerUpdate{}
	case TypeTileDestroyed, TypeTileRegenerated:
		m = &TileMessage{}
	case TypeAttackResult:
		m = &AttackResult{}
	case TypeGameOver:
		m = &GameOver{}
	case TypePlayer2Activated:
		m = &Player2Activated{}
	case TypeBonusPhase:
		m = &BonusPhase{}
	default:
		return nil, fmt.Errorf("%q: %w", h.Type, ErrUnknownMessage)
	}
	if err := json.Unmarshal(line, m); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", h.Type, err)
	}
	return m, nil
}

var enemyTypes = map[string]object.EnemyKind{
	"GROUND":  object.EnemyGround,
	"FLYING":  object.EnemyFlying,
	"FALLING": object.EnemyFalling,
}

var fruitTypes = map[string]object.FruitKind{
	"ORANGE":   object.FruitOrange,
	"BANANA":   object.FruitBanana,
	"EGGPLANT": object.FruitEggplant,
	"LETTUCE":  object.FruitLettuce,
}

func enemyTypeName(k object.EnemyKind) string {
	if k == object.EnemyNone {
		return ""
	}
	return strings.ToUpper(k.String())
}

func fruitTypeName(k object.FruitKind) string {
	if k == object.FruitNone {
		return ""
	}
	return strings.ToUpper(k.String())
}

func parseEnemyType(s string) object.EnemyKind {
	return enemyTypes[strings.ToUpper(strings.TrimSpace(s))]
}

func parseFruitType(s string) object.FruitKind {
	return fruitTypes[strings.ToUpper(strings.TrimSpace(s))]
}
