// Package ipc is the host command boundary. Decoded commands run as
// DEADLINE_NOW EDF tasks on the primary core, become pipeline, component,
// buffer or core operations on the runtime, and answer with a Reply that
// carries a negative errno-style status on failure. Asynchronous runtime
// events reach the host through the Notifier, which publishes them on the
// SSE hub.
package ipc
