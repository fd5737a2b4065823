// Package protocol defines the two snapshot wire forms (a fixed little-endian
// binary frame and line-delimited JSON messages) plus the upstream command
// tokens.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
	"github.com/tomz197/platformer/internal/world"
)

// ErrShortFrame is returned when fewer than FrameSize bytes are available.
// The receiver keeps its previous state.
var ErrShortFrame = errors.New("protocol: short frame")

const entryInts = 4 // x, y, kind, active

// FrameSize is the exact encoded length of a Frame.
const FrameSize = 4 * (config.GridRows*config.GridCols +
	1 + config.MaxEnemies*entryInts +
	1 + config.MaxFruits*entryInts +
	1)

// Entry is one enemy or fruit slot as carried by the binary frame. X and Y
// are grid cells.
type Entry struct {
	X, Y   int32
	Kind   int32
	Active int32
}

// Frame is a full snapshot in the binary wire form.
type Frame struct {
	Matrix     world.Matrix
	EnemyCount int32
	Enemies    [config.MaxEnemies]Entry
	FruitCount int32
	Fruits     [config.MaxFruits]Entry
	Score      int32
}

type frameWriter struct {
	buf []byte
}

func (w *frameWriter) writeInt32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

func (w *frameWriter) writeEntry(e Entry) {
	w.writeInt32(e.X)
	w.writeInt32(e.Y)
	w.writeInt32(e.Kind)
	w.writeInt32(e.Active)
}

type frameReader struct {
	data   []byte
	offset int
}

func (r *frameReader) readInt32() (int32, error) {
	if r.offset+4 > len(r.data) {
		return 0, fmt.Errorf("read int32 at %d: %w", r.offset, ErrShortFrame)
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.offset:]))
	r.offset += 4
	return v, nil
}

func (r *frameReader) readEntry() (Entry, error) {
	var e Entry
	for _, dst := range []*int32{&e.X, &e.Y, &e.Kind, &e.Active} {
		v, err := r.readInt32()
		if err != nil {
			return Entry{}, err
		}
		*dst = v
	}
	return e, nil
}

// EncodeFrame serializes f into exactly FrameSize bytes.
func EncodeFrame(f *Frame) []byte {
	w := frameWriter{buf: make([]byte, 0, FrameSize)}
	for row := range f.Matrix {
		for _, v := range f.Matrix[row] {
			w.writeInt32(v)
		}
	}
	w.writeInt32(f.EnemyCount)
	for _, e := range f.Enemies {
		w.writeEntry(e)
	}
	w.writeInt32(f.FruitCount)
	for _, e := range f.Fruits {
		w.writeEntry(e)
	}
	w.writeInt32(f.Score)
	return w.buf
}

// DecodeFrame parses the first FrameSize bytes of b. A short buffer yields
// ErrShortFrame and no partial result.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < FrameSize {
		return Frame{}, fmt.Errorf("decode frame: got %d of %d bytes: %w", len(b), FrameSize, ErrShortFrame)
	}
	r := frameReader{data: b[:FrameSize]}
	var f Frame
	var err error
	for row := range f.Matrix {
		for col := range f.Matrix[row] {
			if f.Matrix[row][col], err = r.readInt32(); err != nil {
				return Frame{}, err
			}
		}
	}
	if f.EnemyCount, err = r.readInt32(); err != nil {
		return Frame{}, err
	}
	for i := range f.Enemies {
		if f.Enemies[i], err = r.readEntry(); err != nil {
			return Frame{}, err
		}
	}
	if f.FruitCount, err = r.readInt32(); err != nil {
		return Frame{}, err
	}
	for i := range f.Fruits {
		if f.Fruits[i], err = r.readEntry(); err != nil {
			return Frame{}, err
		}
	}
	if f.Score, err = r.readInt32(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// ReadFrame reads one whole frame from r. A stream that ends mid-frame
// returns an error wrapping ErrShortFrame.
func ReadFrame(r io.Reader) (Frame, error) {
	buf := make([]byte, FrameSize)
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return Frame{}, fmt.Errorf("read frame: got %d of %d bytes: %w", n, FrameSize, ErrShortFrame)
	}
	if err != nil {
		return Frame{}, err
	}
	return DecodeFrame(buf)
}

// NewFrame builds a frame from pool states.
func NewFrame(m world.Matrix, enemies []object.EnemyState, fruits []object.FruitState, score int) *Frame {
	f := &Frame{Matrix: m, Score: int32(score)}
	for _, s := range enemies {
		if s.Slot < 0 || s.Slot >= len(f.Enemies) {
			continue
		}
		f.Enemies[s.Slot] = Entry{X: int32(s.GridX), Y: int32(s.GridY), Kind: int32(s.Kind), Active: boolInt(s.Active)}
		if s.Active {
			f.EnemyCount++
		}
	}
	for _, s := range fruits {
		if s.Slot < 0 || s.Slot >= len(f.Fruits) {
			continue
		}
		f.Fruits[s.Slot] = Entry{X: int32(s.GridX), Y: int32(s.GridY), Kind: int32(s.Kind), Active: boolInt(s.Active)}
		if s.Active {
			f.FruitCount++
		}
	}
	return f
}

// EnemyStates returns the enemy slots with kinds clamped to known values.
func (f *Frame) EnemyStates() []object.EnemyState {
	out := make([]object.EnemyState, len(f.Enemies))
	for i, e := range f.Enemies {
		out[i] = object.EnemyState{
			Slot:   i,
			Kind:   object.EnemyKindFromWire(e.Kind),
			GridX:  int(e.X),
			GridY:  int(e.Y),
			Active: e.Active == 1,
		}
	}
	return out
}

// FruitStates returns the fruit slots with kinds clamped to known values.
func (f *Frame) FruitStates() []object.FruitState {
	out := make([]object.FruitState, len(f.Fruits))
	for i, e := range f.Fruits {
		out[i] = object.FruitState{
			Slot:   i,
			Kind:   object.FruitKindFromWire(e.Kind),
			GridX:  int(e.X),
			GridY:  int(e.Y),
			Active: e.Active == 1,
		}
	}
	return out
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
