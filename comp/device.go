package comp

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/dspcore/buffer"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/stream"
)

// Device is one instantiated component.
type Device struct {
	ID         uint32
	PipelineID uint32
	Core       int
	UUID       uuid.UUID
	Driver     Driver
	// Configured is the stream format requested at creation, if any.
	Configured stream.Params
	// PeriodFrames is set by the owning pipeline before Params.
	PeriodFrames int

	// Sources feed data into the device, Sinks carry its output.
	Sources []*buffer.Buffer
	Sinks   []*buffer.Buffer

	ops    Ops
	state  atomic.Uint32
	params stream.Params
	log    *logger.Logger
}

func newDevice(cfg Config, drv Driver, ops Ops) *Device {
	d := &Device{
		ID:         cfg.ID,
		PipelineID: cfg.PipelineID,
		Core:       cfg.Core,
		UUID:       drv.UUID(),
		Driver:     drv,
		Configured: cfg.Params,
		ops:        ops,
		log: logger.Get(logger.SubsystemComp).WithPipeline(cfg.PipelineID).WithFields(logger.Fields(
			logger.FieldCompID, cfg.ID,
			"driver", drv.Name(),
		)),
	}
	d.state.Store(uint32(StateReady))
	return d
}

// Ops returns the variant implementation.
func (d *Device) Ops() Ops { return d.ops }

// State returns the current component state.
func (d *Device) State() State { return State(d.state.Load()) }

// Params returns the negotiated output format.
func (d *Device) Params() stream.Params { return d.params }

// InputParams is the format the device expects on its sources: the
// configured format if any, otherwise the first source's format.
func (d *Device) InputParams() stream.Params {
	if !d.Configured.IsZero() {
		return d.Configured
	}
	if len(d.Sources) > 0 {
		return d.Sources[0].Params()
	}
	return stream.Params{}
}

// PeriodBytes is the size of one output period.
func (d *Device) PeriodBytes() int {
	return d.params.PeriodBytes(d.PeriodFrames)
}

// Logger returns the device logger.
func (d *Device) Logger() *logger.Logger { return d.log }

// SetParams negotiates the output format from the upstream format in and
// applies it to every sink buffer. It is only allowed in Ready.
func (d *Device) SetParams(in stream.Params) (stream.Params, error) {
	if st := d.State(); st != StateReady {
		return stream.Params{}, errors.InvalidState(d.name(), st.String(), "params")
	}
	if !d.Configured.IsZero() {
		in = d.Configured
	}
	out, err := d.ops.Params(d, in)
	if err != nil {
		return stream.Params{}, err
	}
	if err := out.Validate(); err != nil {
		return stream.Params{}, errors.Configuration(fmt.Sprintf("%s produced invalid params: %v", d.name(), err)).WithCause(err)
	}
	d.params = out
	for _, b := range d.Sinks {
		b.SetParams(out)
	}
	return out, nil
}

// Prepare moves Ready to Prepare after the variant prepared successfully.
func (d *Device) Prepare() error {
	cur := d.State()
	next, err := NextState(cur, CmdPrepare)
	if err != nil {
		return err
	}
	if err := d.ops.Prepare(d); err != nil {
		return err
	}
	d.state.Store(uint32(next))
	return nil
}

// Trigger applies a trigger command. The state machine is checked first;
// the variant only sees legal transitions. On a variant error the state is
// left unchanged.
func (d *Device) Trigger(cmd Command) error {
	if cmd == CmdPrepare {
		return d.Prepare()
	}
	if cmd == CmdReset {
		d.Reset()
		return nil
	}
	cur := d.State()
	next, err := NextState(cur, cmd)
	if err != nil {
		return err
	}
	if err := d.ops.Trigger(d, cmd); err != nil {
		return err
	}
	d.state.Store(uint32(next))
	d.log.Debug("triggered", logger.Fields(logger.FieldCmd, cmd.String(), logger.FieldState, next.String()))
	return nil
}

// Rollback undoes a trigger that already succeeded: the variant receives the
// inverse command and the state is restored to prev regardless of what the
// state machine would allow.
func (d *Device) Rollback(cmd Command, prev State) {
	if inv, ok := cmd.Inverse(); ok {
		if err := d.ops.Trigger(d, inv); err != nil {
			d.log.Warn("rollback trigger failed", logger.MergeWithError(logger.Fields(logger.FieldCmd, inv.String()), err))
		}
	}
	d.state.Store(uint32(prev))
}

// Copy runs the variant copy. It is only valid while Active.
func (d *Device) Copy() (CopyResult, error) {
	if st := d.State(); st != StateActive {
		return CopyPartial, errors.InvalidState(d.name(), st.String(), "copy")
	}
	return d.ops.Copy(d)
}

// Reset returns the device to Ready. It cannot fail.
func (d *Device) Reset() {
	d.ops.Reset(d)
	d.state.Store(uint32(StateReady))
}

// Free releases the variant's private data and forgets the buffers. The
// buffers themselves belong to the pipeline.
func (d *Device) Free() {
	d.ops.Free(d)
	d.Sources = nil
	d.Sinks = nil
	d.state.Store(uint32(StateInit))
}

// Attribute answers an optional query.
func (d *Device) Attribute(attr Attribute) (any, error) {
	return d.ops.Attribute(d, attr)
}

// AddSource attaches a buffer that feeds this device.
func (d *Device) AddSource(b *buffer.Buffer) {
	b.Consumer = d.ID
	d.Sources = append(d.Sources, b)
}

// AddSink attaches a buffer this device produces into.
func (d *Device) AddSink(b *buffer.Buffer) {
	b.Producer = d.ID
	d.Sinks = append(d.Sinks, b)
}

// Detach removes b from both buffer lists.
func (d *Device) Detach(b *buffer.Buffer) {
	d.Sources = slices.DeleteFunc(d.Sources, func(x *buffer.Buffer) bool { return x == b })
	d.Sinks = slices.DeleteFunc(d.Sinks, func(x *buffer.Buffer) bool { return x == b })
}

func (d *Device) name() string {
	return fmt.Sprintf("component %d", d.ID)
}

func (d *Device) String() string {
	return fmt.Sprintf("%s[%s pipe=%d core=%d %s]", d.name(), d.Driver.Name(), d.PipelineID, d.Core, d.State())
}
