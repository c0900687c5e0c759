package knet

import (
	"fmt"
	"sync"

	"github.com/zaza89/knet-go/config"
	"github.com/zaza89/knet-go/internal/klog"
)

// Framework owns a pool of worker loops, the balancer distributing work
// across them, and the acceptors/connectors a config.FrameworkConfig
// describes. It is the process-lifecycle counterpart to a bare Loop: create/
// start/stop/wait-for-stop over the whole pool instead of just one.
type Framework struct {
	cfg *config.FrameworkConfig

	loops    []*Loop
	balancer *Balancer

	acceptors  []*Reference
	connectors []*Reference

	acceptorCb  Callback
	connectorCb Callback

	wg sync.WaitGroup
}

// FrameworkCallbacks lets the caller supply distinct callbacks for
// acceptor-spawned (server-side) channels and connector (client-side)
// channels, since the two almost always need different logic.
type FrameworkCallbacks struct {
	Acceptor  Callback
	Connector Callback
}

// NewFramework builds the loop pool described by cfg but does not start
// accepting or connecting yet — call Start for that.
func NewFramework(cfg *config.FrameworkConfig, cbs FrameworkCallbacks) (*Framework, error) {
	if cfg.WorkerThreadCount <= 0 {
		return nil, fmt.Errorf("knet: worker_thread_count must be positive")
	}

	f := &Framework{
		cfg:         cfg,
		acceptorCb:  cbs.Acceptor,
		connectorCb: cbs.Connector,
	}

	for i := 0; i < cfg.WorkerThreadCount; i++ {
		loop, err := NewLoop(LoopOptions{
			Name:        fmt.Sprintf("worker-%d", i),
			TimerFreqMs: cfg.WorkerTimerFreqMs,
			TimerSlots:  cfg.WorkerTimerSlot,
			BalanceOpts: BalanceOptions{In: cfg.Balance.In, Out: cfg.Balance.Out},
		})
		if err != nil {
			return nil, fmt.Errorf("knet: creating loop %d: %w", i, err)
		}
		f.loops = append(f.loops, loop)
	}

	f.balancer = NewBalancer(f.loops)
	for _, l := range f.loops {
		l.balancer = f.balancer
	}

	return f, nil
}

// Start launches every worker loop, then brings up every configured
// acceptor and connector.
func (f *Framework) Start() error {
	for _, l := range f.loops {
		l.Start()
	}

	for _, ac := range f.cfg.Acceptors {
		loop := f.balancer.Choose()
		ref, err := loop.Accept(ac.IP, ac.Port, ac.Backlog, ac.MaxSendListCount, ac.MaxRecvBufferLength, f.acceptorCb)
		if err != nil {
			return fmt.Errorf("knet: starting acceptor %q: %w", ac.Name, err)
		}
		if ac.IdleTimeout > 0 {
			ref.SetIdleTimeout(ac.IdleTimeout)
		}
		f.acceptors = append(f.acceptors, ref)
		klog.Infof("acceptor %q listening on %s:%d", ac.Name, ac.IP, ac.Port)
	}

	for _, cc := range f.cfg.Connectors {
		loop := f.balancer.Choose()
		ref, err := loop.Connect(cc.IP, cc.Port, cc.ConnectTimeout, cc.MaxSendListCount, cc.MaxRecvBufferLength, f.connectorCb)
		if err != nil {
			return fmt.Errorf("knet: starting connector %q: %w", cc.Name, err)
		}
		if cc.IdleTimeout > 0 {
			ref.SetIdleTimeout(cc.IdleTimeout)
		}
		ref.SetAutoReconnect(cc.AutoReconnect)
		f.connectors = append(f.connectors, ref)
		klog.Infof("connector %q dialing %s:%d", cc.Name, cc.IP, cc.Port)
	}

	return nil
}

// Loops returns the worker loop pool, for callers that want to dial or
// listen outside of the declarative acceptors/connectors list.
func (f *Framework) Loops() []*Loop { return f.loops }

// Balancer returns the framework's round-robin loop balancer.
func (f *Framework) Balancer() *Balancer { return f.balancer }

// Stop closes every acceptor and connector reference and stops every
// worker loop. It blocks until all loops have exited.
func (f *Framework) Stop() {
	for _, ref := range f.acceptors {
		ref.Close()
	}
	for _, ref := range f.connectors {
		ref.Close()
	}
	for _, l := range f.loops {
		l.Stop()
	}
}

// WaitForStop blocks until every worker loop has exited. Call it from a
// separate goroutine than the one calling Stop if you want to observe
// shutdown completion without racing Stop's own blocking wait.
func (f *Framework) WaitForStop() {
	for _, l := range f.loops {
		<-l.doneCh
	}
}
