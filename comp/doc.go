// Package comp holds the component model: the Device wrapper with its state
// machine, the Ops capability set every variant implements, the Driver
// registry keyed by UUID, the module adapter for processing modules, and the
// built-in drivers (tone, sink, volume, mixer, copier, dai).
//
// Generic code only talks to *Device. Variant behavior lives behind Ops.
package comp
