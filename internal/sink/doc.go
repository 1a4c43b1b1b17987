// Package sink implements notify.Sink for the desktop client.
//
//   - InApp publishes notifications as JSON on a watermill topic; the UI feed
//     and the history writer subscribe to it.
//   - Sound plays a short clip through the platform audio player, throttled
//     so a burst of updates produces one sound.
//   - Desktop raises notifications through notify-send or osascript.
//   - System combines the three.
//
// Recorder and Nop are in-memory sinks for tests and headless runs.
package sink
