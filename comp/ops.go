package comp

import (
	"github.com/google/uuid"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/stream"
)

// CopyResult is the outcome of one Copy call.
type CopyResult int

const (
	// CopyComplete means a whole period was moved.
	CopyComplete CopyResult = iota
	// CopyPartial means less than a period was available; retry next period.
	CopyPartial
)

func (r CopyResult) String() string {
	if r == CopyComplete {
		return "complete"
	}
	return "partial"
}

// Attribute names an optional component query.
type Attribute string

const (
	// AttrPosition reports the frames a DAI has moved.
	AttrPosition Attribute = "position"
	// AttrBaseConfig reports the configured stream format.
	AttrBaseConfig Attribute = "base_config"
)

// Ops is the capability set of a component variant. Every method receives the
// device it operates on; ops never change the device state themselves.
type Ops interface {
	// Params receives the upstream format and returns the output format.
	Params(d *Device, in stream.Params) (stream.Params, error)
	// Prepare allocates per-stream resources. It returns nil or a
	// Configuration error.
	Prepare(d *Device) error
	// Trigger reacts to a state change that the device has already validated.
	Trigger(d *Device, cmd Command) error
	// Copy moves at most one period.
	Copy(d *Device) (CopyResult, error)
	// Reset drops stream state. It cannot fail.
	Reset(d *Device)
	// Free releases private data.
	Free(d *Device)
	// Attribute answers optional queries; unknown attributes return NotFound.
	Attribute(d *Device, attr Attribute) (any, error)
}

// Driver creates devices of one variant.
type Driver interface {
	UUID() uuid.UUID
	Name() string
	New(cfg Config) (Ops, error)
}

// BaseOps supplies the default behavior of every Ops method except Copy.
// Variants embed it and override what they need.
type BaseOps struct{}

// Params passes the input format through.
func (BaseOps) Params(_ *Device, in stream.Params) (stream.Params, error) {
	return in, nil
}

func (BaseOps) Prepare(*Device) error          { return nil }
func (BaseOps) Trigger(*Device, Command) error { return nil }
func (BaseOps) Reset(*Device)                  {}
func (BaseOps) Free(*Device)                   {}

// Attribute answers AttrBaseConfig and returns NotFound for anything else.
func (BaseOps) Attribute(d *Device, attr Attribute) (any, error) {
	if attr == AttrBaseConfig {
		return d.Configured, nil
	}
	return nil, errors.NotFound("attribute", string(attr))
}

type driver struct {
	id   uuid.UUID
	name string
	fn   func(cfg Config) (Ops, error)
}

// NewDriver wraps a constructor as a Driver.
func NewDriver(id uuid.UUID, name string, fn func(cfg Config) (Ops, error)) Driver {
	return &driver{id: id, name: name, fn: fn}
}

func (d *driver) UUID() uuid.UUID             { return d.id }
func (d *driver) Name() string                { return d.name }
func (d *driver) New(cfg Config) (Ops, error) { return d.fn(cfg) }
