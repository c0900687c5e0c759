package knet

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zaza89/knet-go/internal/address"
	"github.com/zaza89/knet-go/internal/klog"
	"github.com/zaza89/knet-go/internal/netio"
	"github.com/zaza89/knet-go/internal/ringbuf"
)

// sharedInfo is the mutable state behind every handle to a channel. Share
// produces additional *Reference values that all point at the same
// sharedInfo; Leave drops one of those handles. Only the owning loop's
// goroutine ever mutates channel/state/interest directly — every other
// goroutine reaches them through Loop.Post.
type sharedInfo struct {
	channel *Channel
	loop    *Loop

	state    int32 // State, atomic
	interest EventMask

	cb Callback

	refCount int32 // atomic

	lastRecvTime time.Time
	idleTimeout  time.Duration

	connectAddr         address.Address
	connectTimeout      time.Duration
	lastConnectDeadline time.Time

	autoReconnect int32 // atomic bool

	reachedActive bool

	userData interface{}
	userPtr  interface{}

	stream *Stream

	flag int32 // selector-private, atomic
}

// domainNode is the intrusive doubly-linked-list node a domain (channel
// group) registry would splice a Reference into to track membership
// without a side allocation. The registry itself is out of scope here;
// this is the per-handle hook it would operate on.
type domainNode struct {
	prev, next *Reference
}

// Reference is a handle to a channel's lifecycle and I/O. Connect, Accept,
// Write and Close may be called from any goroutine; the parts of them that
// touch the reactor's internal state are funneled to the owning Loop's
// goroutine via Loop.Post. The Set* configuration methods write the shared
// fields directly and are not synchronized with the reactor (see
// SetCallback).
//
// Per-handle state — isShareClone, domainID, domainNode — is NOT part of
// sharedInfo: each clone produced by Share can carry its own domain
// membership independently of the others.
type Reference struct {
	shared *sharedInfo

	isShareClone bool
	domainID     uint64
	domainNode   domainNode
}

func newReference(loop *Loop, channel *Channel) *Reference {
	shared := &sharedInfo{
		channel:      channel,
		loop:         loop,
		state:        int32(StateInit),
		lastRecvTime: time.Now(),
	}
	ref := &Reference{shared: shared}
	shared.stream = newStream(ref)
	return ref
}

// Connect creates an outbound Reference and starts a non-blocking connect
// to ip:port. A zero timeout disables the connect-timeout check.
func (l *Loop) Connect(ip string, port int, timeout time.Duration, maxSendListLen, maxRecvBufferSize int, cb Callback) (*Reference, error) {
	ref := newReference(l, NewChannel(maxSendListLen, maxRecvBufferSize))
	ref.shared.cb = cb
	if err := ref.Connect(ip, port, timeout); err != nil {
		return nil, err
	}
	return ref, nil
}

// Accept creates a listening Reference bound to ip:port.
func (l *Loop) Accept(ip string, port, backlog, maxSendListLen, maxRecvBufferSize int, cb Callback) (*Reference, error) {
	ref := newReference(l, NewChannel(maxSendListLen, maxRecvBufferSize))
	ref.shared.cb = cb
	if err := ref.Accept(ip, port, backlog); err != nil {
		return nil, err
	}
	return ref, nil
}

// AdoptSocket wraps an already-connected netio.Socket (e.g. one produced
// by netio.AdoptFd from an externally accepted fd) as an active Reference
// owned by this loop, without going through Connect/Accept, so a caller
// with its own accept mechanism can plug a socket straight into the
// reactor. The listener's own accept path (updateAccept) does not call it;
// it registers clients through notifyAccept.
func (l *Loop) AdoptSocket(sock netio.Socket, maxSendListLen, maxRecvBufferSize int, cb Callback) (*Reference, error) {
	ch := newChannelFromSocket(sock, maxSendListLen, maxRecvBufferSize)
	ref := newReference(l, ch)
	ref.shared.cb = cb

	done := make(chan error, 1)
	l.Post(func() {
		ref.setState(StateActive)
		ref.shared.reachedActive = true
		ref.shared.interest = EventRecv
		done <- l.addReference(ref, EventRecv)
	})
	if err := <-done; err != nil {
		return nil, err
	}
	l.profile.incEstablishedCount()
	return ref, nil
}

// State returns the Reference's current lifecycle state.
func (r *Reference) State() State { return State(atomic.LoadInt32(&r.shared.state)) }

func (r *Reference) setState(s State) { atomic.StoreInt32(&r.shared.state, int32(s)) }

func (r *Reference) checkState(s State) bool { return r.State() == s }

// UUID returns the underlying channel's monotonically assigned identifier.
func (r *Reference) UUID() uuid.UUID { return r.shared.channel.UUID() }

// Loop returns the Reference's current owning loop. This can change over
// the Reference's lifetime if outbound balancing hands it to another loop
// during Connect.
func (r *Reference) Loop() *Loop { return r.shared.loop }

// Stream returns the buffered-I/O view for use inside EventOnRecv
// callbacks.
func (r *Reference) Stream() *Stream { return r.shared.stream }

// RefCount reports the number of live handles sharing this channel's
// state, including this one.
func (r *Reference) RefCount() int32 { return atomic.LoadInt32(&r.shared.refCount) + 1 }

// Share returns a new handle to the same underlying channel, incrementing
// the share count. The returned Reference and r are
// interchangeable; closing through either one closes the channel for
// both.
func (r *Reference) Share() *Reference {
	atomic.AddInt32(&r.shared.refCount, 1)
	return &Reference{shared: r.shared, isShareClone: true}
}

// Leave releases this handle without closing the channel. Call it when
// done with a handle obtained from Share (or the original) while other
// handles remain live.
func (r *Reference) Leave() {
	atomic.AddInt32(&r.shared.refCount, -1)
}

// Equal reports whether a and b are handles to the same channel.
func (r *Reference) Equal(other *Reference) bool {
	return other != nil && r.shared == other.shared
}

// IsShareClone reports whether this handle was produced by Share, as
// opposed to being the original Reference returned by Connect/Accept.
func (r *Reference) IsShareClone() bool { return r.isShareClone }

// IncRef bumps the share count without allocating a new handle, for
// library internals (e.g. a domain registry) that track an extra owner
// out of band rather than carrying a cloned Reference around.
func (r *Reference) IncRef() int32 {
	return atomic.AddInt32(&r.shared.refCount, 1) + 1
}

// DecRef is IncRef's counterpart.
func (r *Reference) DecRef() int32 {
	return atomic.AddInt32(&r.shared.refCount, -1) + 1
}

// GetRef returns the current share count, equivalent to RefCount.
func (r *Reference) GetRef() int32 { return r.RefCount() }

// RefZero reports whether no other handle shares this channel's state.
func (r *Reference) RefZero() bool { return r.GetRef() <= 1 }

// Destroy releases this handle and closes the channel, but only once no
// other share-clone remains outstanding. Returns ErrRefNonZero if
// RefCount() > 1 — every clone obtained from Share must Leave() first.
func (r *Reference) Destroy() error {
	if r.RefCount() > 1 {
		return ErrRefNonZero
	}
	r.Close()
	return nil
}

// GetSocketFd returns the underlying file descriptor, or -1 if the socket
// layer fell back to the standard library on this platform.
func (r *Reference) GetSocketFd() int { return r.shared.channel.Fd() }

// GetRingBuffer returns the channel's receive ring buffer, for callers
// that want to inspect buffered bytes directly rather than through
// Stream.
func (r *Reference) GetRingBuffer() *ringbuf.Buffer { return r.shared.channel.recv }

// SetFlag stores a selector-private value on the shared info — library
// internals use it to mark a reference (e.g. "already queued for removal")
// without a side table. Shared across every clone, unlike the per-handle
// domain id below.
func (r *Reference) SetFlag(v int32) { atomic.StoreInt32(&r.shared.flag, v) }

// GetFlag returns the value set by SetFlag.
func (r *Reference) GetFlag() int32 { return atomic.LoadInt32(&r.shared.flag) }

// SetDomainID tags this handle with the id of the domain (channel group) a
// registry organizes it under. Per-handle rather than shared: distinct
// Share clones of the same channel can belong to different domains.
func (r *Reference) SetDomainID(id uint64) { r.domainID = id }

// GetDomainID returns the id set by SetDomainID, or zero.
func (r *Reference) GetDomainID() uint64 { return r.domainID }

// SetCallback installs the event callback. Call before the channel is
// handed to Connect/Accept to avoid racing the reactor goroutine.
func (r *Reference) SetCallback(cb Callback) { r.shared.cb = cb }

// SetAutoReconnect toggles the auto-reconnect policy.
func (r *Reference) SetAutoReconnect(enable bool) {
	var v int32
	if enable {
		v = 1
	}
	atomic.StoreInt32(&r.shared.autoReconnect, v)
}

func (r *Reference) autoReconnectEnabled() bool {
	return atomic.LoadInt32(&r.shared.autoReconnect) != 0
}

// SetIdleTimeout arms the idle-recv timeout; zero disables it.
func (r *Reference) SetIdleTimeout(d time.Duration) { r.shared.idleTimeout = d }

// SetUserPtr stores an opaque value the callback can retrieve with
// UserPtr. knet-go has no void* — this is its Go-native equivalent.
func (r *Reference) SetUserPtr(ptr interface{}) { r.shared.userPtr = ptr }

// UserPtr returns the value set by SetUserPtr, or nil.
func (r *Reference) UserPtr() interface{} { return r.shared.userPtr }

// SetUserData stores a second opaque value, mirroring the distinct
// internal/external pointer slots.
func (r *Reference) SetUserData(data interface{}) { r.shared.userData = data }

// UserData returns the value set by SetUserData, or nil.
func (r *Reference) UserData() interface{} { return r.shared.userData }

// PeerAddr returns the remote address of an active or connecting channel.
func (r *Reference) PeerAddr() (address.Address, error) { return r.shared.channel.RemoteAddr() }

// LocalAddr returns the local address the channel is bound to.
func (r *Reference) LocalAddr() (address.Address, error) { return r.shared.channel.LocalAddr() }

// Connect starts (or restarts) a non-blocking connect to ip:port.
func (r *Reference) Connect(ip string, port int, timeout time.Duration) error {
	if r.checkState(StateConnect) {
		return ErrConnectInProgress
	}
	addr := address.New(ip, port)
	r.shared.connectAddr = addr
	if timeout > 0 {
		r.shared.connectTimeout = timeout
		r.shared.lastConnectDeadline = time.Now().Add(timeout)
	}
	if err := r.shared.channel.Connect(addr); err != nil {
		return err
	}
	klog.Infof("start connect to %s", addr.String())

	loop := r.shared.loop
	if target := loop.chooseLoop(); target != nil {
		r.shared.loop = target
		target.Post(func() { r.connectInLoop() })
		return nil
	}
	loop.Post(func() { r.connectInLoop() })
	return nil
}

func (r *Reference) connectInLoop() {
	r.shared.interest = EventSend
	if err := r.shared.loop.addReference(r, EventSend); err != nil {
		klog.Warnf("failed to register connecting channel: %v", err)
	}
	r.setState(StateConnect)
}

// Accept binds and listens on ip:port, registering for incoming
// connections.
func (r *Reference) Accept(ip string, port, backlog int) error {
	if r.checkState(StateAccept) {
		return ErrAcceptInProgress
	}
	addr := address.New(ip, port)
	if err := r.shared.channel.Accept(addr, backlog); err != nil {
		return err
	}
	r.shared.loop.Post(func() { r.acceptAsync() })
	return nil
}

func (r *Reference) acceptAsync() {
	r.shared.interest = EventRecv
	if err := r.shared.loop.addReference(r, EventRecv); err != nil {
		klog.Warnf("failed to register listening channel: %v", err)
		return
	}
	r.setState(StateAccept)
}

// Write queues data for transmission. Returns ErrNotConnected unless the
// channel is active. Writing a zero-length buffer is a defect, not a
// no-op — it panics, same as Channel.Send.
func (r *Reference) Write(data []byte) error {
	if !r.checkState(StateActive) {
		return ErrNotConnected
	}
	loop := r.shared.loop
	if loop.isLoopThread() {
		return r.writeInLoop(data)
	}
	loop.Post(func() { _ = r.writeInLoop(data) })
	return nil
}

func (r *Reference) writeInLoop(data []byte) error {
	r.shared.loop.profile.AddSendBytes(len(data))
	err := r.shared.channel.Send(data)
	switch err {
	case errSendPartial:
		r.armEvent(EventSend)
		return nil
	case errSendFail:
		r.closeCheckReconnect()
		return ErrFail
	}
	if err == nil && r.shared.cb != nil {
		r.shared.cb(r, EventOnSend)
	}
	return nil
}

func (r *Reference) armEvent(bit EventMask) {
	want := r.shared.interest | bit
	if want == r.shared.interest {
		return
	}
	r.shared.interest = want
	if err := r.shared.loop.modifyReference(r, want); err != nil {
		klog.Warnf("failed to re-arm interest: %v", err)
	}
}

func (r *Reference) disarmEvent(bit EventMask) {
	want := r.shared.interest &^ bit
	if want == r.shared.interest {
		return
	}
	r.shared.interest = want
	if err := r.shared.loop.modifyReference(r, want); err != nil {
		klog.Warnf("failed to disarm interest: %v", err)
	}
}

// Close begins an orderly shutdown. Safe to call from any goroutine and
// any number of times.
func (r *Reference) Close() {
	if r.checkState(StateClose) {
		return
	}
	loop := r.shared.loop
	if loop.isLoopThread() {
		r.updateCloseInLoop()
		return
	}
	klog.Infof("close channel cross thread, notify loop[%s]", loop.Name())
	loop.Post(func() { r.updateCloseInLoop() })
}

func (r *Reference) updateCloseInLoop() {
	if r.checkState(StateClose) {
		return
	}
	r.setState(StateClose)
	r.shared.interest = 0
	if r.shared.cb != nil {
		r.shared.cb(r, EventOnClose)
	}
	_ = r.shared.channel.Close()
	r.shared.loop.removeReference(r)
	r.shared.loop.profile.incCloseCount()
	if r.shared.reachedActive {
		r.shared.loop.profile.decEstablishedCount()
	}
}

// closeCheckReconnect implements the auto-reconnect policy:
// a channel with auto-reconnect enabled is reincarnated into a fresh
// channel carrying the same callback, user data and policy, rather than
// having its already-closing state forged back to "connecting" so the
// same object could be reused in place.
func (r *Reference) closeCheckReconnect() {
	if r.autoReconnectEnabled() {
		r.reincarnate()
		return
	}
	r.updateCloseInLoop()
}

func (r *Reference) reincarnate() {
	shared := r.shared
	addr := shared.connectAddr
	next := newReference(shared.loop, NewChannel(shared.channel.maxSendListLen, shared.channel.maxRecvBufferSize))
	next.shared.cb = shared.cb
	next.shared.userData = shared.userData
	next.shared.userPtr = shared.userPtr
	next.SetAutoReconnect(shared.autoReconnectEnabled())
	next.shared.idleTimeout = shared.idleTimeout

	klog.Infof("reconnecting to %s", addr.String())
	if err := next.Connect(addr.IP, addr.Port, shared.connectTimeout); err != nil {
		klog.Warnf("reconnect to %s failed: %v", addr.String(), err)
	}
	r.updateCloseInLoop()
}

// dispatch is called by the owning Loop with the readiness mask reported
// for this channel's fd.
func (r *Reference) dispatch(mask EventMask, now time.Time) {
	if r.checkState(StateClose) {
		return
	}
	if mask.has(EventRecv) {
		if r.checkState(StateAccept) {
			r.updateAccept()
		} else {
			r.shared.lastRecvTime = now
			r.updateRecv()
		}
	}
	if mask.has(EventSend) {
		if r.checkState(StateConnect) {
			r.updateConnect()
		} else {
			r.updateSend()
		}
	}
}

func (r *Reference) updateAccept() {
	listenerLoop := r.shared.loop
	for {
		client, err := r.shared.channel.AcceptClient()
		if err != nil {
			if err != netio.ErrWouldBlock {
				klog.Warnf("accept failed: %v", err)
			}
			return
		}
		clientRef := newReference(listenerLoop, client)
		clientRef.shared.cb = r.shared.cb
		clientRef.setState(StateActive)
		clientRef.shared.reachedActive = true
		clientRef.shared.interest = EventRecv

		if target := listenerLoop.chooseLoopIn(); target != nil {
			clientRef.shared.loop = target
			target.Post(func() { notifyAccept(clientRef) })
			continue
		}
		notifyAccept(clientRef)
	}
}

// notifyAccept registers a freshly accepted client on its (possibly
// migrated) owning loop and fires its accept callback there. Called either
// inline on the listener's loop or, after an inbound-balancer migration,
// via Post on the destination loop's goroutine.
func notifyAccept(clientRef *Reference) {
	loop := clientRef.shared.loop
	if err := loop.addReference(clientRef, EventRecv); err != nil {
		klog.Warnf("failed to register accepted channel: %v", err)
		return
	}
	loop.profile.incEstablishedCount()
	if clientRef.shared.cb != nil {
		clientRef.shared.cb(clientRef, EventOnAccept)
	}
}

func (r *Reference) updateConnect() {
	r.setState(StateActive)
	r.shared.reachedActive = true
	r.shared.interest = EventRecv
	if err := r.shared.loop.modifyReference(r, EventRecv); err != nil {
		klog.Warnf("failed to switch interest after connect: %v", err)
	}
	r.shared.loop.profile.incEstablishedCount()
	if r.shared.cb != nil {
		klog.Verbf("connected, invoking callback")
		r.shared.cb(r, EventOnConnect)
	}
}

func (r *Reference) updateRecv() {
	before := r.shared.channel.recv.Len()
	err := r.shared.channel.UpdateRecv()
	if err == errRecvFail || err == errRecvBufferFull {
		r.closeCheckReconnect()
		return
	}
	after := r.shared.channel.recv.Len()
	r.shared.loop.profile.AddRecvBytes(after - before)
	if r.shared.cb != nil {
		r.shared.cb(r, EventOnRecv)
	}
}

func (r *Reference) updateSend() {
	err := r.shared.channel.UpdateSend()
	switch err {
	case errSendFail:
		r.closeCheckReconnect()
		return
	case errSendPartial:
		r.armEvent(EventSend)
	default:
		r.disarmEvent(EventSend)
	}
	if r.shared.cb != nil {
		r.shared.cb(r, EventOnSend)
	}
}

// checkTimeout fires EventOnTimeout once idleTimeout has elapsed since the
// last receive on an active channel.
func (r *Reference) checkTimeout(now time.Time) {
	if r.shared.idleTimeout <= 0 || !r.checkState(StateActive) {
		return
	}
	if now.Sub(r.shared.lastRecvTime) > r.shared.idleTimeout {
		r.shared.lastRecvTime = now
		if r.shared.cb != nil {
			r.shared.cb(r, EventOnTimeout)
		}
	}
}

// checkConnectTimeout fires the reconnect/close path for a connect that
// never completed within the configured window.
func (r *Reference) checkConnectTimeout(now time.Time) {
	if !r.checkState(StateConnect) || r.shared.connectTimeout <= 0 {
		return
	}
	if r.shared.lastConnectDeadline.IsZero() || now.Before(r.shared.lastConnectDeadline) {
		return
	}
	r.shared.lastConnectDeadline = now.Add(r.shared.connectTimeout)
	r.closeCheckReconnect()
}
