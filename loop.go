package knet

import (
	"sync"
	"time"

	"github.com/zaza89/knet-go/internal/goid"
	"github.com/zaza89/knet-go/internal/klog"
	"github.com/zaza89/knet-go/internal/selector"
)

// BalanceOptions controls whether a Loop participates in inbound and/or
// outbound load distribution.
type BalanceOptions struct {
	In  bool
	Out bool
}

// Loop is a single-threaded reactor: exactly one goroutine ever calls
// selector.Wait, mutates channel registries, or fires callbacks for the
// references it owns. Every other goroutine reaches it only through Post,
// which queues a closure into the inbox and wakes the selector.
type Loop struct {
	name string

	sel     selector.Selector
	profile *Profile
	balance BalanceOptions

	inboxMu sync.Mutex
	inbox   []func()

	refsByFd map[int]*Reference

	ownerMu  sync.RWMutex
	ownerSet bool
	ownerID  uint64

	tickInterval time.Duration
	timerFreq    int
	timerSlot    int
	tickCount    uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}

	balancer *Balancer
}

// LoopOptions configures timer granularity, fed from config.FrameworkConfig
// (worker_timer_freq_ms, worker_timer_slot). NewLoop coerces a non-positive
// TimerFreqMs to 1000 and a non-positive TimerSlots to 360; the config's own
// default for an unset slot count is 512.
type LoopOptions struct {
	Name         string
	TimerFreqMs  int
	TimerSlots   int
	BalanceOpts  BalanceOptions
	Balancer     *Balancer
}

// NewLoop constructs a Loop and its selector. The selector is real epoll on
// Linux (internal/selector/epoll_linux.go) and an honest polling fallback
// elsewhere (internal/selector/poll_other.go); either way Loop never knows
// which.
func NewLoop(opts LoopOptions) (*Loop, error) {
	sel, err := selector.New()
	if err != nil {
		return nil, err
	}
	freq := opts.TimerFreqMs
	if freq <= 0 {
		freq = 1000
	}
	slots := opts.TimerSlots
	if slots <= 0 {
		slots = 360
	}
	l := &Loop{
		name:         opts.Name,
		sel:          sel,
		profile:      NewProfile(),
		balance:      opts.BalanceOpts,
		refsByFd:     make(map[int]*Reference),
		tickInterval: time.Duration(freq) * time.Millisecond,
		timerFreq:    freq,
		timerSlot:    slots,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		balancer:     opts.Balancer,
	}
	return l, nil
}

// Profile returns the loop's bandwidth/channel-count counters.
func (l *Loop) Profile() *Profile { return l.profile }

// Name returns the loop's diagnostic name, used only in log lines.
func (l *Loop) Name() string { return l.name }

// Start launches the reactor goroutine. It blocks until the goroutine has
// recorded its own identity, so isLoopThread is race-free for any caller
// that observes Start returning.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		ready := make(chan struct{})
		go l.run(ready)
		<-ready
	})
}

// Stop asks the reactor to exit after its current tick and blocks until it
// has. Safe to call from any goroutine, any number of times.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		_ = l.sel.Wake()
	})
	<-l.doneCh
}

func (l *Loop) run(ready chan struct{}) {
	defer close(l.doneCh)

	l.ownerMu.Lock()
	l.ownerID = goid.Get()
	l.ownerSet = true
	l.ownerMu.Unlock()
	close(ready)

	klog.Infof("loop[%s] started on goroutine %d", l.name, l.ownerID)

	for {
		select {
		case <-l.stopCh:
			klog.Infof("loop[%s] stopping", l.name)
			return
		default:
		}

		events, err := l.sel.Wait(l.tickInterval)
		if err != nil {
			klog.Warnf("loop[%s] selector wait error: %v", l.name, err)
			continue
		}

		l.drainInbox()

		now := time.Now()
		for _, ev := range events {
			ref, ok := l.refsByFd[ev.Fd]
			if !ok {
				continue
			}
			ref.dispatch(eventMaskFromSelector(ev.Mask), now)
		}

		l.tickCount++
		if l.timerFreq > 0 && int(l.tickCount)%l.timerSlot == 0 {
			l.checkTimeouts(now)
		}
	}
}

func eventMaskFromSelector(m selector.Mask) EventMask {
	var out EventMask
	if m.Has(selector.Readable) {
		out |= EventRecv
	}
	if m.Has(selector.Writable) {
		out |= EventSend
	}
	return out
}

func (l *Loop) checkTimeouts(now time.Time) {
	for _, ref := range l.refsByFd {
		ref.checkTimeout(now)
		ref.checkConnectTimeout(now)
	}
}

// isLoopThread reports whether the calling goroutine is the reactor
// goroutine itself.
func (l *Loop) isLoopThread() bool {
	l.ownerMu.RLock()
	defer l.ownerMu.RUnlock()
	if !l.ownerSet {
		return false
	}
	return goid.Get() == l.ownerID
}

// Post runs fn inline if the caller is already on the loop goroutine,
// otherwise queues it into the inbox and wakes the selector so it runs on
// the next tick. This is the single cross-thread notification mechanism
// every public Reference operation funnels through.
func (l *Loop) Post(fn func()) {
	if l.isLoopThread() {
		fn()
		return
	}
	l.inboxMu.Lock()
	l.inbox = append(l.inbox, fn)
	l.inboxMu.Unlock()
	_ = l.sel.Wake()
}

func (l *Loop) drainInbox() {
	l.inboxMu.Lock()
	if len(l.inbox) == 0 {
		l.inboxMu.Unlock()
		return
	}
	pending := l.inbox
	l.inbox = nil
	l.inboxMu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// addReference registers ref's fd for the given interest mask. Internal,
// loop-goroutine-only — must be called from inside Post/the reactor.
func (l *Loop) addReference(ref *Reference, mask EventMask) error {
	fd := ref.shared.channel.Fd()
	l.refsByFd[fd] = ref
	l.profile.incChannelCount()
	return l.sel.Add(fd, toSelectorMask(mask))
}

func (l *Loop) modifyReference(ref *Reference, mask EventMask) error {
	return l.sel.Modify(ref.shared.channel.Fd(), toSelectorMask(mask))
}

func (l *Loop) removeReference(ref *Reference) {
	fd := ref.shared.channel.Fd()
	if _, ok := l.refsByFd[fd]; ok {
		delete(l.refsByFd, fd)
		l.profile.decChannelCount()
		_ = l.sel.Remove(fd)
	}
}

func toSelectorMask(m EventMask) selector.Mask {
	var out selector.Mask
	if m.has(EventRecv) {
		out |= selector.Readable
	}
	if m.has(EventSend) {
		out |= selector.Writable
	}
	return out
}

// chooseLoop implements the outbound load-balancing hook: if this
// loop has loop_balancer_out enabled and a different loop is selected, the
// caller should hand the new channel off to it instead of keeping it here.
func (l *Loop) chooseLoop() *Loop {
	if l.balancer == nil || !l.balance.Out {
		return nil
	}
	target := l.balancer.Choose()
	if target == l {
		return nil
	}
	return target
}

// chooseLoopIn is chooseLoop's inbound counterpart: if this loop (the one
// whose listener just accepted a client) has inbound balancing enabled and
// a different loop is selected, the accepted client should migrate to it
// instead of staying on the listener's loop.
func (l *Loop) chooseLoopIn() *Loop {
	if l.balancer == nil || !l.balance.In {
		return nil
	}
	target := l.balancer.Choose()
	if target == l {
		return nil
	}
	return target
}
