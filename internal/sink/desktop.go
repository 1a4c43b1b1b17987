package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/rickgao/livenotify/internal/model"
	"github.com/rickgao/livenotify/internal/notify"
)

const appName = "livenotify"

// DefaultDesktopCommand returns the platform notifier binary, or "" if there is none.
func DefaultDesktopCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "osascript"
	case "linux", "freebsd", "openbsd":
		return "notify-send"
	default:
		return ""
	}
}

// Desktop raises desktop notifications through an external notifier.
// Permission is granted when the notifier binary can be found.
type Desktop struct {
	command string
	logger  *slog.Logger

	lookPath func(file string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error

	mu   sync.Mutex
	perm notify.Permission
	path string
}

// NewDesktop creates a desktop sink. An empty command uses DefaultDesktopCommand.
func NewDesktop(command string, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}
	if command == "" {
		command = DefaultDesktopCommand()
	}
	return &Desktop{
		command:  command,
		logger:   logger,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

// DesktopPermission returns the cached permission without probing.
func (d *Desktop) DesktopPermission() notify.Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.perm
}

// RequestDesktopPermission looks up the notifier binary and caches the result.
func (d *Desktop) RequestDesktopPermission(ctx context.Context) (notify.Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.perm != notify.PermissionDefault {
		return d.perm, nil
	}
	if d.command == "" {
		d.perm = notify.PermissionDenied
		return d.perm, nil
	}

	path, err := d.lookPath(d.command)
	if err != nil {
		d.logger.Info("desktop notifier not found", "command", d.command, "error", err)
		d.perm = notify.PermissionDenied
		return d.perm, nil
	}
	d.path = path
	d.perm = notify.PermissionGranted
	return d.perm, nil
}

// ShowDesktop raises n.
func (d *Desktop) ShowDesktop(ctx context.Context, n model.Notification) error {
	d.mu.Lock()
	perm, path := d.perm, d.path
	d.mu.Unlock()

	if perm != notify.PermissionGranted {
		return ErrPermissionDenied
	}

	if err := d.run(ctx, path, desktopArgs(path, n)...); err != nil {
		return fmt.Errorf("show desktop notification: %w", err)
	}
	return nil
}

// desktopArgs builds the notifier arguments for the resolved binary.
func desktopArgs(path string, n model.Notification) []string {
	if filepath.Base(path) == "osascript" {
		return []string{"-e", fmt.Sprintf("display notification %q with title %q", n.Body, n.Title)}
	}
	return []string{"--app-name", appName, "--urgency", urgency(n.Severity), n.Title, n.Body}
}

func urgency(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return "critical"
	case model.SeverityWarning:
		return "normal"
	default:
		return "low"
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, out)
	}
	return nil
}
