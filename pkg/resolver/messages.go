package resolver

import (
	"github.com/google/uuid"

	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
	"github.com/usbhost/usbhost-go/pkg/verify"
)

// Messages handled on the looper. Probe messages carry the attempt they
// belong to; anything not matching the session's current probe is stale.

type resolveMsg struct {
	session uuid.UUID
	dev     usbdev.Device
}

type serviceConnectedMsg struct {
	session uuid.UUID
	attempt uint32
	checker verify.Checker
}

type serviceDisconnectedMsg struct {
	session uuid.UUID
	attempt uint32
}

type serviceTimeoutMsg struct {
	session uuid.UUID
	attempt uint32
}

type checkCompletedMsg struct {
	session   uuid.UUID
	attempt   uint32
	supported bool
	err       error
}

type completeDispatchMsg struct {
	dev     usbdev.Device
	handler registry.Component
}

type cancelMsg struct {
	session uuid.UUID
}
