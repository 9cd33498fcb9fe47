// Package resilience retries transient failures with bounded exponential
// backoff.
//
// The IDC bus uses it to retry sends refused with a Busy mailbox:
//
//	cfg := resilience.MailboxRetryConfig()
//	err := resilience.RetryFunc(ctx, cfg, func() error {
//	    return bus.Send(from, to, msg)
//	})
package resilience
