package sink

import (
	"context"

	"github.com/rickgao/livenotify/internal/model"
	"github.com/rickgao/livenotify/internal/notify"
)

var _ notify.Sink = Nop{}

// Nop discards every side effect. Desktop permission is always denied.
type Nop struct{}

func (Nop) Enqueue(context.Context, model.Notification) error { return nil }
func (Nop) PlaySound(context.Context) error                    { return nil }
func (Nop) DesktopPermission() notify.Permission               { return notify.PermissionDenied }
func (Nop) RequestDesktopPermission(context.Context) (notify.Permission, error) {
	return notify.PermissionDenied, nil
}
func (Nop) ShowDesktop(context.Context, model.Notification) error { return nil }
