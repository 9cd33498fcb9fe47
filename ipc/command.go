package ipc

import (
	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/pipeline"
	"github.com/kbukum/dspcore/stream"
)

// Op names a host operation.
type Op string

const (
	OpPipelineNew      Op = "pipeline.new"
	OpPipelineFree     Op = "pipeline.free"
	OpPipelineConnect  Op = "pipeline.connect"
	OpPipelineComplete Op = "pipeline.complete"
	OpPipelineList     Op = "pipeline.list"
	OpComponentNew     Op = "component.new"
	OpComponentFree    Op = "component.free"
	OpBufferNew        Op = "buffer.new"
	OpBufferFree       Op = "buffer.free"
	OpStreamParams     Op = "stream.params"
	OpStreamPrepare    Op = "stream.prepare"
	OpStreamTrigger    Op = "stream.trigger"
	OpStreamReset      Op = "stream.reset"
	OpStreamState      Op = "stream.state"
	OpStreamPosition   Op = "stream.position"
	OpXrunRecover      Op = "xrun.recover"
	OpCoreEnable       Op = "core.enable"
	OpCoreDisable      Op = "core.disable"
	OpVersion          Op = "version"
)

// Command is one decoded host operation. Which fields are read depends on
// Op.
type Command struct {
	Op Op `json:"op" validate:"required"`

	PipelineID  uint32 `json:"pipeline_id,omitempty"`
	ComponentID uint32 `json:"component_id,omitempty"`
	BufferID    uint32 `json:"buffer_id,omitempty"`
	Core        int    `json:"core,omitempty" validate:"gte=0"`

	// Source and Sink are component ids: the producer and consumer of a
	// connected buffer, or the endpoints of a completed pipeline.
	Source uint32 `json:"source,omitempty"`
	Sink   uint32 `json:"sink,omitempty"`

	// Trigger is a trigger command name such as "start" or "pre_start".
	Trigger string `json:"trigger,omitempty"`

	Pipeline  *pipeline.Spec `json:"pipeline,omitempty"`
	Component *comp.Config   `json:"component,omitempty"`
	Buffer    *BufferSpec    `json:"buffer,omitempty"`
	Params    *stream.Params `json:"params,omitempty"`

	RequestID string `json:"-"`
}

// BufferSpec describes a buffer to allocate. With Minimum set the size is
// chosen like buffer.NewRange: the largest multiple of Minimum not above
// Size or Limit.
type BufferSpec struct {
	ID      uint32 `json:"id" validate:"required"`
	Size    int    `json:"size" validate:"required,gt=0"`
	Minimum int    `json:"minimum,omitempty" validate:"gte=0"`
	Limit   int    `json:"limit,omitempty" validate:"gte=0"`
}

// Reply answers a Command. Status is 0 or a negative errno-style code.
type Reply struct {
	Status int              `json:"status"`
	Code   errors.ErrorCode `json:"code,omitempty"`
	Error  string           `json:"error,omitempty"`
	Data   any              `json:"data,omitempty"`

	err *errors.AppError
}

// Err returns the error the reply was built from, or nil.
func (r Reply) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// NewReply builds the reply for a command result.
func NewReply(data any, err error) Reply {
	if err == nil {
		return Reply{Data: data}
	}
	appErr := errors.ToAppError(err)
	return Reply{
		Status: appErr.Status(),
		Code:   appErr.Code,
		Error:  appErr.Error(),
		err:    appErr,
	}
}

// PipelineInfo is the reply data for pipeline queries.
type PipelineInfo struct {
	ID           uint32 `json:"id"`
	Core         int    `json:"core"`
	State        string `json:"state"`
	Xrun         bool   `json:"xrun"`
	PeriodUS     uint64 `json:"period_us"`
	PeriodFrames int    `json:"period_frames"`
	Components   int    `json:"components"`
}

func infoOf(p *pipeline.Pipeline, st comp.State) PipelineInfo {
	return PipelineInfo{
		ID:           p.ID,
		Core:         p.Core,
		State:        st.String(),
		Xrun:         p.Xrun(),
		PeriodUS:     p.Period,
		PeriodFrames: p.PeriodFrames,
		Components:   len(p.Components()),
	}
}
