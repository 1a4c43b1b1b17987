// Package router multiplexes the single inbound message stream of a
// Connection Manager to many topic-scoped handlers.
//
// A Registry keeps an ordered list of handlers per topic. Run is the event
// loop: it decodes each frame into a model.Envelope and invokes every handler
// registered for the envelope's topic, in registration order, before taking
// the next frame.
//
// Data flow:
//
//	Connection Manager
//	      |
//	      v (RawMessage channel)
//	  Registry.Run
//	      |
//	      +---> DecodeEnvelope (malformed frames are logged and dropped)
//	      |
//	      +---> handlers[topic] (each recovered independently)
//
// Topics with no handlers are discarded. Nothing is buffered or replayed, so
// a handler registered after a message was dispatched never sees it.
package router
