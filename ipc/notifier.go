package ipc

import (
	"time"

	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/core"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/sse"
)

// Notification event types.
const (
	EventXrun          = "xrun"
	EventTriggerFailed = "trigger_failed"
	EventCoreCrashed   = "core_crashed"
)

// Notification is the data of an asynchronous host notification.
type Notification struct {
	Type       string    `json:"type"`
	PipelineID uint32    `json:"pipeline_id,omitempty"`
	Core       *int      `json:"core,omitempty"`
	Command    string    `json:"command,omitempty"`
	Status     int       `json:"status"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Notifier forwards runtime events to every subscribed host.
type Notifier struct {
	pub     sse.Broadcaster
	pattern string
	log     *logger.Logger
}

var _ core.Notifier = (*Notifier)(nil)

// NewNotifier publishes on pub to all host subscriptions.
func NewNotifier(pub sse.Broadcaster, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Get(logger.SubsystemIPC)
	}
	return &Notifier{pub: pub, pattern: sse.ClientPrefix + "*", log: log}
}

func (n *Notifier) PipelineXrun(id uint32, err error) {
	n.publish(Notification{Type: EventXrun, PipelineID: id}, err)
}

func (n *Notifier) TriggerFailed(id uint32, cmd comp.Command, err error) {
	n.publish(Notification{Type: EventTriggerFailed, PipelineID: id, Command: cmd.String()}, err)
}

func (n *Notifier) CoreCrashed(c int, err error) {
	n.publish(Notification{Type: EventCoreCrashed, Core: &c}, err)
}

func (n *Notifier) publish(note Notification, err error) {
	note.Time = time.Now().UTC()
	if err != nil {
		note.Status = errors.Status(err)
		note.Error = err.Error()
	}
	ev, merr := sse.NewEvent(note.Type, note)
	if merr != nil {
		n.log.Error("encode notification", logger.MergeWithError(logger.Fields("event", note.Type), merr))
		return
	}
	if !n.pub.Publish(n.pattern, ev) {
		n.log.Warn("notification dropped", logger.Fields("event", note.Type, logger.FieldPipelineID, note.PipelineID))
	}
}
