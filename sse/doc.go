// Package sse streams runtime notifications to hosts as Server-Sent Events.
//
// A Hub owns the subscribed clients and routes each published Event to the
// clients whose id matches a glob pattern. Publish never blocks: a full
// queue drops the event, so audio-path callers can publish safely.
//
//	hub := sse.NewHub(log)
//	go hub.Run()
//	engine.GET("/events", sse.Handler(hub))
//	hub.Publish("host:*", ev)
package sse
