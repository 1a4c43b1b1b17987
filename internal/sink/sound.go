package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/time/rate"
)

// DefaultSoundCommand returns the platform audio player invocation, or nil
// if there is none.
func DefaultSoundCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"afplay", "/System/Library/Sounds/Glass.aiff"}
	case "linux", "freebsd", "openbsd":
		return []string{"paplay", "/usr/share/sounds/freedesktop/stereo/message.oga"}
	default:
		return nil
	}
}

// Sound plays a notification sound by starting an external player.
type Sound struct {
	command []string
	limiter *rate.Limiter
	logger  *slog.Logger

	start func(name string, args ...string) error
}

// NewSound creates a sound sink. Sounds closer together than minInterval are
// skipped. An empty command uses DefaultSoundCommand.
func NewSound(command []string, minInterval time.Duration, logger *slog.Logger) *Sound {
	if logger == nil {
		logger = slog.Default()
	}
	if len(command) == 0 {
		command = DefaultSoundCommand()
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &Sound{
		command: command,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		start:   startDetached,
	}
}

// PlaySound starts the player and returns without waiting for playback.
func (s *Sound) PlaySound(ctx context.Context) error {
	if len(s.command) == 0 {
		return ErrUnavailable
	}
	if !s.limiter.Allow() {
		s.logger.Debug("sound throttled")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.start(s.command[0], s.command[1:]...); err != nil {
		return fmt.Errorf("play sound: %w", err)
	}
	return nil
}

// startDetached starts a process and reaps it in the background.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
