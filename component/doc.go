// Package component manages the lifecycle of the long-running services of
// dspd: the core runtime, the notification hub, the HTTP server and the
// meter provider.
//
// Services are started in registration order and stopped in reverse. When
// one fails to start, the ones already started are stopped again.
package component
