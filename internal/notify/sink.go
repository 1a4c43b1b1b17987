package notify

import (
	"context"
	"time"

	"github.com/rickgao/livenotify/internal/model"
)

// Permission is the user's answer to the desktop notification prompt.
type Permission int

const (
	PermissionDefault Permission = iota // Not asked yet
	PermissionGranted
	PermissionDenied
)

// String returns the permission name.
func (p Permission) String() string {
	switch p {
	case PermissionDefault:
		return "default"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Sink performs the user-visible side effects of a notification.
type Sink interface {
	// Enqueue adds an in-app notification.
	Enqueue(ctx context.Context, n model.Notification) error

	// PlaySound plays a short notification sound.
	PlaySound(ctx context.Context) error

	// DesktopPermission returns the current desktop permission without prompting.
	DesktopPermission() Permission

	// RequestDesktopPermission prompts for desktop permission.
	RequestDesktopPermission(ctx context.Context) (Permission, error)

	// ShowDesktop raises a desktop notification.
	ShowDesktop(ctx context.Context, n model.Notification) error
}

// Options gates the side effects.
type Options struct {
	EnableNotifications        bool
	EnableSound                bool
	EnableDesktopNotifications bool
	SideEffectTimeout          time.Duration // Per side effect
}

// DefaultOptions enables every side effect.
func DefaultOptions() Options {
	return Options{
		EnableNotifications:        true,
		EnableSound:                true,
		EnableDesktopNotifications: true,
		SideEffectTimeout:          2 * time.Second,
	}
}
