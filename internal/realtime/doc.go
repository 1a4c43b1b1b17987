// Package realtime is the application-facing real-time client.
//
// A Client is one explicit instance that owns a Connection Manager, a
// Subscription Registry and a Notifier. Construct it once at startup, pass it
// to the components that need it, and drive it with Run:
//
//	c := realtime.New(realtime.FromConfig(cfg), dialer, sink, logger)
//	go c.Run(ctx)
//	if err := c.Connect(ctx); err != nil { ... }
//	defer c.Close()
//
//	unsubscribe := c.SubscribeAlertUpdates(func(env model.Envelope) { ... })
package realtime
