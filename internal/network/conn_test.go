package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/tomz197/platformer/internal/protocol"
	"github.com/tomz197/platformer/internal/world"
)

type recorder struct {
	frames   chan protocol.Frame
	messages chan protocol.Message
}

func newRecorder() *recorder {
	return &recorder{
		frames:   make(chan protocol.Frame, 8),
		messages: make(chan protocol.Message, 8),
	}
}

func (r *recorder) HandleFrame(f protocol.Frame)     { r.frames <- f }
func (r *recorder) HandleMessage(m protocol.Message) { r.messages <- m }

func runConn(t *testing.T, c *Conn, h Handler) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background(), h) }()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestSendWritesTokensInOrder(t *testing.T) {
	client, host := net.Pipe()
	defer host.Close()
	c := New(client, WireJSON, nil)
	defer c.Close()

	got := make(chan protocol.Command, 8)
	go ReadCommands(host, WireJSON, func(cmd protocol.Command) { got <- cmd }, nil)

	want := []protocol.Command{
		{Kind: protocol.CmdLeft, Player: 1},
		{Kind: protocol.CmdAttack, Player: 2},
		{Kind: protocol.CmdRegenerateTile, Cell: world.Cell{Row: 4, Col: 6}},
	}
	for _, cmd := range want {
		if !c.Send(cmd) {
			t.Fatalf("Send(%v) dropped", cmd)
		}
	}
	for i, w := range want {
		select {
		case cmd := <-got:
			if cmd != w {
				t.Errorf("command %d = %+v, want %+v", i, cmd, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("command %d never arrived", i)
		}
	}
}

func TestSendBinaryCommandFrames(t *testing.T) {
	client, host := net.Pipe()
	defer host.Close()
	c := New(client, WireBinary, nil)
	defer c.Close()

	got := make(chan protocol.Command, 2)
	go ReadCommands(host, WireBinary, func(cmd protocol.Command) { got <- cmd }, nil)

	c.Send(protocol.Command{Kind: protocol.CmdBonusOff})
	select {
	case cmd := <-got:
		if cmd.Kind != protocol.CmdBonusOff {
			t.Errorf("got %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame never arrived")
	}
}

func TestRunDeliversMessagesAndDisconnects(t *testing.T) {
	client, host := net.Pipe()
	c := New(client, WireJSON, nil)
	var states []State
	c.OnStateChange = func(s State) { states = append(states, s) }
	rec := newRecorder()
	errCh := runConn(t, c, rec)

	line, _ := protocol.Marshal(&protocol.GameOver{Message: "done"})
	go func() {
		host.Write([]byte("{not json}\n"))
		host.Write(line)
		host.Close()
	}()

	select {
	case m := <-rec.messages:
		if m.MessageType() != protocol.TypeGameOver {
			t.Errorf("got %s", m.MessageType())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	if err := waitErr(t, errCh); err == nil {
		t.Error("Run returned nil after the host hung up")
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v", c.State())
	}
	if c.Send(protocol.Command{Kind: protocol.CmdRestart}) {
		t.Error("Send succeeded after disconnect")
	}
	if len(states) != 1 || states[0] != StateDisconnected {
		t.Errorf("transitions = %v", states)
	}
}

func TestRunBinaryFramesWholeOnly(t *testing.T) {
	client, host := net.Pipe()
	c := New(client, WireBinary, nil)
	rec := newRecorder()
	errCh := runConn(t, c, rec)

	f := protocol.NewFrame(world.DefaultMap(), nil, nil, 42)
	b := protocol.EncodeFrame(f)
	go func() {
		host.Write(b[:1000])
		host.Write(b[1000:])
		host.Write(b[:500])
		host.Close()
	}()

	select {
	case got := <-rec.frames:
		if got.Score != 42 || got.Matrix != world.DefaultMap() {
			t.Errorf("frame = score %d", got.Score)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered")
	}

	err := waitErr(t, errCh)
	if !errors.Is(err, protocol.ErrShortFrame) {
		t.Errorf("err = %v, want short frame", err)
	}
	select {
	case <-rec.frames:
		t.Error("truncated frame was delivered")
	default:
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	client, host := net.Pipe()
	defer host.Close()
	c := New(client, WireJSON, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx, newRecorder()) }()
	cancel()

	if err := waitErr(t, errCh); err != nil {
		t.Errorf("Run after cancel = %v, want nil", err)
	}
	if c.Connected() {
		t.Error("still connected after cancel")
	}
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, addr, WireJSON, nil); err == nil {
		t.Error("Dial to a closed port succeeded")
	}
}

func TestParseWire(t *testing.T) {
	tests := []struct {
		in      string
		want    Wire
		wantErr bool
	}{
		{"", WireJSON, false},
		{"JSON", WireJSON, false},
		{"binary", WireBinary, false},
		{"xml", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWire(tt.in)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("ParseWire(%q) = %v, %v", tt.in, got, err)
		}
	}
}
