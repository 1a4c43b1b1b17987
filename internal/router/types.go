package router

import "github.com/rickgao/livenotify/internal/model"

// Handler receives one decoded envelope.
type Handler func(env model.Envelope)

// Stats contains runtime statistics.
type Stats struct {
	MessagesReceived   int64 // Frames handed to the registry
	MessagesDispatched int64 // Envelopes delivered to at least one handler
	MalformedMessages  int64 // Frames that failed to decode
	UnroutedMessages   int64 // Envelopes whose topic had no handlers
	HandlerPanics      int64
	StaleFrames        int64 // Frames dropped because their session had ended
	Subscriptions      int
	Topics             map[string]int // Handlers per topic
}
