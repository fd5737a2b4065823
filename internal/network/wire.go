package network

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tomz197/platformer/internal/protocol"
)

// Wire selects one of the two snapshot encodings.
type Wire int

const (
	WireJSON Wire = iota
	WireBinary
)

var ErrUnknownWire = errors.New("network: unknown wire format")

// ParseWire maps "json" or "binary" to a Wire.
func ParseWire(s string) (Wire, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return WireJSON, nil
	case "binary", "bin":
		return WireBinary, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownWire)
}

func (w Wire) String() string {
	if w == WireBinary {
		return "binary"
	}
	return "json"
}

// maxLine bounds one JSON line; a full PLAYER_UPDATE is a few KB.
const maxLine = 1 << 20

// EncodeCommand frames a command token for the wire.
func EncodeCommand(w Wire, clientID int32, cmd protocol.Command) []byte {
	if w == WireBinary {
		return protocol.EncodeCommandFrame(clientID, cmd.String())
	}
	return []byte(cmd.String() + "\n")
}

// ReadCommands reads upstream command tokens from r until it fails, calling
// fn for each parsed command. Unknown tokens are passed to bad, if set.
func ReadCommands(r io.Reader, w Wire, fn func(protocol.Command), bad func(text string, err error)) error {
	handle := func(text string) {
		cmd, err := protocol.ParseCommand(text)
		if err != nil {
			if bad != nil {
				bad(text, err)
			}
			return
		}
		fn(cmd)
	}

	if w == WireBinary {
		for {
			_, text, err := protocol.ReadCommandFrame(r)
			if errors.Is(err, protocol.ErrBadCommandFrame) {
				if bad != nil {
					bad(text, err)
				}
				continue
			}
			if err != nil {
				return err
			}
			handle(text)
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			handle(line)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}
