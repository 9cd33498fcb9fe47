package idc

import "fmt"

// Type identifies a message.
type Type uint8

const (
	// PowerUp asks a secondary core to report in after it was enabled.
	PowerUp Type = iota + 1
	// PowerDown asks a secondary core to stop. It is refused while the core
	// still owns scheduled tasks.
	PowerDown
	// Notify carries an informational event.
	Notify
	// IPC forwards a host command to the core that owns its target.
	IPC
	// Params negotiates pipeline stream parameters.
	Params
	// Prepare prepares a pipeline.
	Prepare
	// Trigger runs a pipeline trigger command.
	Trigger
	// Reset resets a pipeline.
	Reset
	// PipelineState queries a pipeline's status.
	PipelineState
	// CoreCrashed reports a secondary core's fatal error to the primary.
	CoreCrashed
)

var typeNames = map[Type]string{
	PowerUp:       "power_up",
	PowerDown:     "power_down",
	Notify:        "notify",
	IPC:           "ipc",
	Params:        "params",
	Prepare:       "prepare",
	Trigger:       "trigger",
	Reset:         "reset",
	PipelineState: "pipeline_state",
	CoreCrashed:   "core_crashed",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Message is one mailbox entry. From and To are filled in by the bus.
type Message struct {
	Type       Type
	From       int
	To         int
	PipelineID uint32
	Payload    any

	// Result may be set by the handler; it is visible to the caller once
	// Call returns.
	Result any

	reply chan error
}

func (m *Message) String() string {
	return fmt.Sprintf("%s[%d->%d pipe=%d]", m.Type, m.From, m.To, m.PipelineID)
}

// Handler processes one message on the receiving core. Its error is the
// status returned to the caller.
type Handler func(m *Message) error
