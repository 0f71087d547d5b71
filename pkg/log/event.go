package log

import "time"

// Event is a single host event. CBOR encoding uses integer keys for
// compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the resolution session, if any (UUID).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Layer where the event was captured.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// DeviceName is the bus/address key of the device concerned.
	DeviceName string `cbor:"5,keyasint,omitempty"`

	// SerialNumber of the device concerned.
	SerialNumber string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Device      *DeviceEvent      `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Probe       *ProbeEvent       `cbor:"12,keyasint,omitempty"`
	Dispatch    *DispatchEvent    `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerTransport is the USB transport (enumeration, connections).
	LayerTransport Layer = 0
	// LayerResolver is the handler resolver.
	LayerResolver Layer = 1
	// LayerHost is the host controller.
	LayerHost Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerResolver:
		return "RESOLVER"
	case LayerHost:
		return "HOST"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryDevice is an attach, detach or descriptor update.
	CategoryDevice Category = 0
	// CategoryState is a state change.
	CategoryState Category = 1
	// CategoryProbe is a verification service probe.
	CategoryProbe Category = 2
	// CategoryDispatch is a handler launch or accessory-mode switch.
	CategoryDispatch Category = 3
	// CategoryError is an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryDevice:
		return "DEVICE"
	case CategoryState:
		return "STATE"
	case CategoryProbe:
		return "PROBE"
	case CategoryDispatch:
		return "DISPATCH"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DeviceEvent captures a change in the set of attached devices.
type DeviceEvent struct {
	Action    DeviceAction `cbor:"1,keyasint"`
	VendorID  uint16       `cbor:"2,keyasint"`
	ProductID uint16       `cbor:"3,keyasint"`

	// Accessory is set when the device enumerated in accessory mode.
	Accessory bool `cbor:"4,keyasint,omitempty"`

	// Ignored is set when the controller did not act on the event.
	Ignored bool `cbor:"5,keyasint,omitempty"`
}

// DeviceAction indicates what happened to a device.
type DeviceAction uint8

const (
	// DeviceAttached indicates a device appeared.
	DeviceAttached DeviceAction = 0
	// DeviceDetached indicates a device disappeared.
	DeviceDetached DeviceAction = 1
	// DeviceUpdated indicates the active device re-attached and its
	// descriptor was refreshed.
	DeviceUpdated DeviceAction = 2
	// DeviceRemoved indicates the active device's teardown completed.
	DeviceRemoved DeviceAction = 3
)

// String returns the action name.
func (a DeviceAction) String() string {
	switch a {
	case DeviceAttached:
		return "ATTACHED"
	case DeviceDetached:
		return "DETACHED"
	case DeviceUpdated:
		return "UPDATED"
	case DeviceRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures controller and session lifecycle changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityHost is the host controller.
	StateEntityHost StateEntity = 0
	// StateEntitySession is a resolution session.
	StateEntitySession StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityHost:
		return "HOST"
	case StateEntitySession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ProbeEvent captures the outcome of one verification service probe.
type ProbeEvent struct {
	// Service is the flattened verification service component.
	Service string `cbor:"1,keyasint"`

	// Handler is the flattened component the probe decides about.
	Handler string `cbor:"2,keyasint,omitempty"`

	// Attempt numbers probes within a session, starting at 1.
	Attempt uint32 `cbor:"3,keyasint"`

	Outcome ProbeOutcome `cbor:"4,keyasint"`

	// Duration from bind to outcome. Stored as nanoseconds.
	Duration *time.Duration `cbor:"5,keyasint,omitempty"`
}

// ProbeOutcome is the result of a probe.
type ProbeOutcome uint8

const (
	// ProbeAccepted means the service reported the device as supported.
	ProbeAccepted ProbeOutcome = 0
	// ProbeRejected means the service reported the device as unsupported.
	ProbeRejected ProbeOutcome = 1
	// ProbeTimeout means the service did not connect in time.
	ProbeTimeout ProbeOutcome = 2
	// ProbeDisconnected means the service went away before answering.
	ProbeDisconnected ProbeOutcome = 3
	// ProbeBindFailed means the service could not be bound.
	ProbeBindFailed ProbeOutcome = 4
	// ProbeCheckFailed means the check returned an error.
	ProbeCheckFailed ProbeOutcome = 5
)

// String returns the outcome name.
func (o ProbeOutcome) String() string {
	switch o {
	case ProbeAccepted:
		return "ACCEPTED"
	case ProbeRejected:
		return "REJECTED"
	case ProbeTimeout:
		return "TIMEOUT"
	case ProbeDisconnected:
		return "DISCONNECTED"
	case ProbeBindFailed:
		return "BIND_FAILED"
	case ProbeCheckFailed:
		return "CHECK_FAILED"
	default:
		return "UNKNOWN"
	}
}

// DispatchEvent captures a dispatch decision.
type DispatchEvent struct {
	// Handler is the flattened handler component.
	Handler string `cbor:"1,keyasint"`

	Mode DispatchMode `cbor:"2,keyasint"`

	// Success reports whether the dispatch was carried out.
	Success bool `cbor:"3,keyasint"`
}

// DispatchMode distinguishes launching a handler from switching the device
// into accessory mode.
type DispatchMode uint8

const (
	// DispatchLaunch starts the handler for the device.
	DispatchLaunch DispatchMode = 0
	// DispatchAccessorySwitch performs the accessory handshake.
	DispatchAccessorySwitch DispatchMode = 1
)

// String returns the mode name.
func (m DispatchMode) String() string {
	switch m {
	case DispatchLaunch:
		return "LAUNCH"
	case DispatchAccessorySwitch:
		return "ACCESSORY_SWITCH"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
