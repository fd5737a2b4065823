package spectator

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/platformer/internal/draw"
	"github.com/tomz197/platformer/internal/protocol"
)

// LogSink is the local spectator opened from the game itself. It logs a
// status summary at most once per interval.
type LogSink struct {
	logger   *log.Logger
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewLogSink creates a log spectator.
func NewLogSink(logger *log.Logger, interval time.Duration) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{
		logger:   logger.WithPrefix("spectator"),
		interval: interval,
		now:      time.Now,
	}
}

func (s *LogSink) Deliver(snap Snapshot) error {
	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return nil
	}
	s.last = now
	u := &snap.Update
	enemies, fruits := activeEntities(u)
	s.logger.Info(draw.Status(u), "enemies", enemies, "fruits", fruits, "bonus", u.IsBonusPhase)
	return nil
}

func activeEntities(u *protocol.PlayerUpdate) (enemies, fruits int) {
	for _, e := range u.Enemies {
		if e.IsActive {
			enemies++
		}
	}
	for _, f := range u.Fruits {
		if f.IsActive {
			fruits++
		}
	}
	return enemies, fruits
}
