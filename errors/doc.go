// Package errors provides the unified error type for the DSP runtime.
//
// Every layer (component, pipeline, scheduler, IDC, IPC) returns *AppError
// values carrying a machine-readable code, a retryable flag and two status
// mappings: an HTTP status for the host control surface and a negative
// errno-style status for IPC replies.
package errors
