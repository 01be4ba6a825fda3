// Package client talks to a softioc server: name search, read, write and
// monitor subscriptions.
//
//	c, err := client.Dial(ctx, "127.0.0.1:5064", client.Config{})
//	if err != nil { ... }
//	defer c.Close()
//
//	r, err := c.Read(ctx, "TEMP")
//	sub, err := c.Subscribe(ctx, "TEMP", pv.EventValue)
//	for ev := range sub.Events() { ... }
//
// Requests may be issued concurrently. A single goroutine reads frames
// and routes responses by message ID and events by subscription ID.
package client
