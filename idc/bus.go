package idc

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/resilience"
)

// DefaultMailboxDepth is the capacity of one core pair's mailbox.
const DefaultMailboxDepth = 8

// Option configures a Bus.
type Option func(*Bus)

// WithMetrics records messages and Busy refusals.
func WithMetrics(m *observability.DSPMetrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// WithLogger overrides the bus logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Bus) { b.log = l }
}

// WithRetry overrides the retry policy used by Call.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(b *Bus) { b.retry = cfg }
}

// Bus connects a fixed set of cores.
type Bus struct {
	cores   int
	depth   int
	retry   resilience.RetryConfig
	metrics *observability.DSPMetrics
	log     *logger.Logger

	// boxes[to][from]
	boxes    [][]chan *Message
	doorbell []chan struct{}

	mu      sync.RWMutex
	enabled []bool
}

// New creates a bus for cores 0..cores-1. Only core 0 starts enabled.
func New(cores, depth int, opts ...Option) *Bus {
	if depth <= 0 {
		depth = DefaultMailboxDepth
	}
	b := &Bus{
		cores:    cores,
		depth:    depth,
		retry:    resilience.MailboxRetryConfig(),
		boxes:    make([][]chan *Message, cores),
		doorbell: make([]chan struct{}, cores),
		enabled:  make([]bool, cores),
	}
	for to := range cores {
		b.boxes[to] = make([]chan *Message, cores)
		for from := range cores {
			b.boxes[to][from] = make(chan *Message, depth)
		}
		b.doorbell[to] = make(chan struct{}, 1)
	}
	if cores > 0 {
		b.enabled[0] = true
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get(logger.SubsystemIDC)
	}
	return b
}

// Cores returns the number of cores on the bus.
func (b *Bus) Cores() int { return b.cores }

// Depth returns the mailbox capacity.
func (b *Bus) Depth() int { return b.depth }

// Enable lets core receive messages.
func (b *Bus) Enable(core int) error {
	if err := b.check(core); err != nil {
		return err
	}
	b.mu.Lock()
	b.enabled[core] = true
	b.mu.Unlock()
	return nil
}

// Disable stops delivery to core. Messages still queued for it are answered
// with Unavailable.
func (b *Bus) Disable(core int) error {
	if err := b.check(core); err != nil {
		return err
	}
	b.mu.Lock()
	b.enabled[core] = false
	b.mu.Unlock()

	for _, box := range b.boxes[core] {
	flush:
		for {
			select {
			case m := <-box:
				m.answer(errors.Unavailable(fmt.Sprintf("core %d", core)))
			default:
				break flush
			}
		}
	}
	return nil
}

// Enabled reports whether core accepts messages.
func (b *Bus) Enabled(core int) bool {
	if b.check(core) != nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled[core]
}

// Send places m in the (from, to) mailbox and rings to's doorbell. It
// returns Busy when the mailbox is full and Unavailable when to is not
// enabled.
func (b *Bus) Send(from, to int, m *Message) error {
	if err := b.check(from); err != nil {
		return err
	}
	if err := b.check(to); err != nil {
		return err
	}
	if m == nil {
		return errors.InvalidArgument("message", "nil message")
	}
	if !b.Enabled(to) {
		return errors.Unavailable(fmt.Sprintf("core %d", to))
	}
	m.From, m.To = from, to

	select {
	case b.boxes[to][from] <- m:
	default:
		b.metrics.RecordIDCBusy(context.Background(), from, to)
		return errors.Busy(fmt.Sprintf("idc mailbox %d->%d", from, to)).
			WithDetails(map[string]any{"from": from, "to": to, "depth": b.depth})
	}
	b.ring(to)
	b.metrics.RecordIDCMessage(context.Background(), from, to, m.Type.String())
	b.log.Debug("sent", logger.Fields("msg", m.String()))
	return nil
}

// Call sends m and waits for the receiver's status. Busy sends are retried
// with the bus retry policy.
func (b *Bus) Call(ctx context.Context, from, to int, m *Message) error {
	if m == nil {
		return errors.InvalidArgument("message", "nil message")
	}
	m.reply = make(chan error, 1)
	err := resilience.RetryFunc(ctx, b.retry, func() error {
		return b.Send(from, to, m)
	})
	if err != nil {
		return err
	}

	select {
	case err := <-m.reply:
		return err
	case <-ctx.Done():
		return errors.Timeout(fmt.Sprintf("idc %s", m)).WithCause(ctx.Err())
	}
}

// Receive returns core's doorbell. It is signalled after one or more
// messages arrived.
func (b *Bus) Receive(core int) <-chan struct{} {
	if b.check(core) != nil {
		return nil
	}
	return b.doorbell[core]
}

// Drain delivers every pending message for core, lowest source core first,
// and answers callers with the handler's status. It returns the number of
// messages handled.
func (b *Bus) Drain(core int, h Handler) int {
	if b.check(core) != nil {
		return 0
	}
	n := 0
	for from, box := range b.boxes[core] {
	pair:
		for {
			select {
			case m := <-box:
				err := h(m)
				if err != nil {
					b.log.Warn("message failed", logger.MergeWithError(logger.Fields("msg", m.String(), "from", from), err))
				}
				m.answer(err)
				n++
			default:
				break pair
			}
		}
	}
	return n
}

// Pending returns how many messages wait for core.
func (b *Bus) Pending(core int) int {
	if b.check(core) != nil {
		return 0
	}
	n := 0
	for _, box := range b.boxes[core] {
		n += len(box)
	}
	return n
}

func (b *Bus) ring(core int) {
	select {
	case b.doorbell[core] <- struct{}{}:
	default:
	}
}

func (b *Bus) check(core int) error {
	if core < 0 || core >= b.cores {
		return errors.NotFound("core", core)
	}
	return nil
}

func (m *Message) answer(err error) {
	if m.reply != nil {
		m.reply <- err
	}
}
