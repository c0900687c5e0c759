package knet

import "errors"

// Error taxonomy. Sentinel values so callers can errors.Is against them
// instead of matching on message text.
var (
	ErrNoMemory           = errors.New("knet: no memory")
	ErrRefNonZero         = errors.New("knet: reference count nonzero")
	ErrConnectInProgress  = errors.New("knet: connect already in progress")
	ErrAcceptInProgress   = errors.New("knet: accept already in progress")
	ErrNotConnected       = errors.New("knet: channel not active")
	ErrChannelNotConnect  = errors.New("knet: channel not in connect state")
	ErrLoggerWrite        = errors.New("knet: logger write failed")
	ErrFail               = errors.New("knet: operation failed")

	// errSendPartial, errSendFail, errRecvFail, errRecvBufferFull never
	// cross the public API — they drive the close/reconnect and
	// re-arm-interest paths inside dispatch().
	errSendPartial    = errors.New("knet: partial send")
	errSendFail       = errors.New("knet: send failed")
	errRecvFail       = errors.New("knet: recv failed")
	errRecvBufferFull = errors.New("knet: recv buffer full")
)
