// Package pipeline owns a graph of components joined by buffers and drives
// it through params, prepare, trigger and copy.
//
// Trigger commands of the START class (PRE_START, START, PRE_RELEASE,
// RELEASE) walk the components source to sink; STOP, PAUSE and RESET walk
// sink to source. A failed trigger rolls back every component it changed.
// Once started, the pipeline's LL task runs Copy once per period on the
// owning core and raises an xrun after XrunThreshold consecutive periods
// without full progress.
package pipeline
