package session

import "github.com/muurk/btscan/internal/discovery"

// message is anything the event loop processes.
type message any

type startMsg struct{}

type stopMsg struct{}

type toggleMsg struct{}

type shutdownMsg struct{}

type enableAnswerMsg struct {
	attempt uint64
	result  EnableResult
	err     error
}

type permissionAnswerMsg struct {
	attempt uint64
	result  PermissionResult
	err     error
}

type deviceFoundMsg struct {
	event discovery.DeviceFoundEvent
}

type timeoutMsg struct {
	generation uint64
}

// syncMsg is closed by the loop once every earlier message was handled.
type syncMsg struct {
	done chan struct{}
}
