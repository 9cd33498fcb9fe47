// Package idc carries messages between cores.
//
// Every (source, target) core pair owns a bounded mailbox and every target
// core owns a doorbell. Send never blocks: a full mailbox is refused with a
// retryable Busy error. Call retries Busy sends with the mailbox retry
// policy from resilience and then waits for the receiver's status.
//
//	bus := idc.New(2, 8)
//	bus.Enable(1)
//	err := bus.Call(ctx, 0, 1, &idc.Message{Type: idc.Trigger, PipelineID: 3, Payload: comp.CmdStart})
//
// The receiving core selects on Receive(core) and calls Drain with its
// handler.
package idc
