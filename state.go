package knet

// State is one of the five exclusive lifecycle states a Reference can be
// a given time.
type State int

const (
	StateInit State = iota
	StateConnect
	StateAccept
	StateActive
	StateClose
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnect:
		return "connect"
	case StateAccept:
		return "accept"
	case StateActive:
		return "active"
	case StateClose:
		return "close"
	default:
		return "unknown"
	}
}

// EventMask is the {recv, send} bitset the selector is asked to watch for a
// given channel.
type EventMask uint8

const (
	EventRecv EventMask = 1 << iota
	EventSend
)

func (m EventMask) has(bit EventMask) bool { return m&bit != 0 }

// CallbackEvent identifies why a Reference's callback fired.
type CallbackEvent int

const (
	EventOnConnect CallbackEvent = iota
	EventOnAccept
	EventOnRecv
	EventOnSend
	EventOnClose
	EventOnTimeout
)

func (e CallbackEvent) String() string {
	switch e {
	case EventOnConnect:
		return "connect"
	case EventOnAccept:
		return "accept"
	case EventOnRecv:
		return "recv"
	case EventOnSend:
		return "send"
	case EventOnClose:
		return "close"
	case EventOnTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Callback is invoked synchronously from the owning loop's goroutine. It
// must not block.
type Callback func(ref *Reference, event CallbackEvent)
