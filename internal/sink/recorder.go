package sink

import (
	"context"
	"sync"

	"github.com/rickgao/livenotify/internal/model"
	"github.com/rickgao/livenotify/internal/notify"
)

var _ notify.Sink = (*Recorder)(nil)

// Recorder is an in-memory sink that records every side effect.
type Recorder struct {
	mu         sync.Mutex
	inApp      []model.Notification
	desktop    []model.Notification
	sounds     int
	requests   int
	permission notify.Permission
	answer     notify.Permission
}

// NewRecorder creates a Recorder that answers permission prompts with answer.
func NewRecorder(answer notify.Permission) *Recorder {
	return &Recorder{answer: answer}
}

func (r *Recorder) Enqueue(ctx context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inApp = append(r.inApp, n)
	return nil
}

func (r *Recorder) PlaySound(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds++
	return nil
}

func (r *Recorder) DesktopPermission() notify.Permission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.permission
}

func (r *Recorder) RequestDesktopPermission(ctx context.Context) (notify.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
	r.permission = r.answer
	return r.permission, nil
}

func (r *Recorder) ShowDesktop(ctx context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.permission != notify.PermissionGranted {
		return ErrPermissionDenied
	}
	r.desktop = append(r.desktop, n)
	return nil
}

// InApp returns a copy of the in-app notifications recorded so far.
func (r *Recorder) InApp() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.inApp...)
}

// Desktop returns a copy of the desktop notifications recorded so far.
func (r *Recorder) Desktop() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.desktop...)
}

// Sounds returns how many sounds were played.
func (r *Recorder) Sounds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sounds
}

// PermissionRequests returns how many times permission was requested.
func (r *Recorder) PermissionRequests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}
