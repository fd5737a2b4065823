// Package input turns a raw terminal byte stream into per-player intents
// and one-shot game actions.
package input

import (
	"bufio"
	"time"

	"github.com/tomz197/platformer/internal/loop/config"
	"github.com/tomz197/platformer/internal/object"
)

// keyHoldDuration is how long a movement key counts as held after its last
// byte. Terminals only report repeats, so holds are latched.
const keyHoldDuration = 60 * time.Millisecond

// Input is one tick's worth of input.
type Input struct {
	Players         [config.MaxPlayers]object.Intent
	ActivatePlayer2 bool
	Spectate        bool
	Restart         bool
	Quit            bool
}

// moveKeys tracks the last time each movement key was seen, per player.
type moveKeys struct {
	left, right, jump, attack time.Time
}

// Stream delivers input bytes via a channel and latches movement keys.
type Stream struct {
	ch   chan byte
	keys [config.MaxPlayers]moveKeys
}

// StartStream spawns a goroutine that reads from r into the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 128)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// ReadInput drains all available bytes from the stream without blocking.
func ReadInput(s *Stream) Input {
	var buf []byte
drain:
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}
	return s.apply(buf, time.Now())
}

// Reset forgets latched keys, e.g. after a restart.
func (s *Stream) Reset() {
	s.keys = [config.MaxPlayers]moveKeys{}
}

func (s *Stream) apply(buf []byte, now time.Time) Input {
	var in Input
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		// CSI arrow keys drive player 2.
		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			if s.applyArrow(buf[i+2], now) {
				i += 2
				continue
			}
		}
		s.applyByte(&in, b, now)
	}
	for i := range s.keys {
		k := &s.keys[i]
		in.Players[i] = object.Intent{
			Left:   now.Sub(k.left) < keyHoldDuration,
			Right:  now.Sub(k.right) < keyHoldDuration,
			Jump:   now.Sub(k.jump) < keyHoldDuration,
			Attack: now.Sub(k.attack) < keyHoldDuration,
		}
	}
	return in
}

func (s *Stream) applyArrow(code byte, now time.Time) bool {
	p2 := &s.keys[1]
	switch code {
	case 'A':
		p2.jump = now
	case 'C':
		p2.right = now
	case 'D':
		p2.left = now
	default:
		return false
	}
	return true
}

func (s *Stream) applyByte(in *Input, b byte, now time.Time) {
	p1, p2 := &s.keys[0], &s.keys[1]
	switch b {
	case 'a', 'A':
		p1.left = now
	case 'd', 'D':
		p1.right = now
	case 'w', 'W', ' ':
		p1.jump = now
	case 'x', 'X':
		p1.attack = now
	case 'j', 'J':
		p2.left = now
	case 'l', 'L':
		p2.right = now
	case 'k', 'K':
		p2.jump = now
	case 'p', 'P':
		p2.attack = now
	case 'i', 'I':
		in.ActivatePlayer2 = true
	case 'o', 'O':
		in.Spectate = true
	case 'r', 'R':
		in.Restart = true
	case 'q', 'Q', 3: // 3 is Ctrl-C in raw mode
		in.Quit = true
	}
}
