package sink

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/rickgao/livenotify/internal/config"
	"github.com/rickgao/livenotify/internal/model"
	"github.com/rickgao/livenotify/internal/notify"
)

var _ notify.Sink = (*System)(nil)

// System is the platform sink. A nil part reports ErrUnavailable.
type System struct {
	InApp   *InApp
	Sound   *Sound
	Desktop *Desktop
}

// NewSystem builds the platform sink from config. In-app notifications are
// published on pub.
func NewSystem(cfg config.NotificationsConfig, pub message.Publisher, logger *slog.Logger) *System {
	s := &System{
		Sound:   NewSound(cfg.SoundCommand, cfg.SoundMinInterval, logger),
		Desktop: NewDesktop(cfg.DesktopCommand, logger),
	}
	if pub != nil {
		s.InApp = NewInApp(pub, cfg.InAppTopic)
	}
	return s
}

// Enqueue publishes an in-app notification.
func (s *System) Enqueue(ctx context.Context, n model.Notification) error {
	if s.InApp == nil {
		return ErrUnavailable
	}
	return s.InApp.Enqueue(ctx, n)
}

// PlaySound plays the notification sound.
func (s *System) PlaySound(ctx context.Context) error {
	if s.Sound == nil {
		return ErrUnavailable
	}
	return s.Sound.PlaySound(ctx)
}

// DesktopPermission returns the cached desktop permission.
func (s *System) DesktopPermission() notify.Permission {
	if s.Desktop == nil {
		return notify.PermissionDenied
	}
	return s.Desktop.DesktopPermission()
}

// RequestDesktopPermission checks for desktop notification support.
func (s *System) RequestDesktopPermission(ctx context.Context) (notify.Permission, error) {
	if s.Desktop == nil {
		return notify.PermissionDenied, nil
	}
	return s.Desktop.RequestDesktopPermission(ctx)
}

// ShowDesktop raises a desktop notification.
func (s *System) ShowDesktop(ctx context.Context, n model.Notification) error {
	if s.Desktop == nil {
		return ErrUnavailable
	}
	return s.Desktop.ShowDesktop(ctx, n)
}
