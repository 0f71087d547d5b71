// Package filter decides whether a handler's declared criteria accept a
// USB device.
//
// Handlers declare filters in their manifest. A native filter (tag
// "usb-device") matches on vendor, product, class triple and optional
// string descriptors. An accessory filter (tag "usb-aoap-accessory") names
// the handshake strings and a verification service; it matches every device
// at declaration level.
//
// Numeric criteria are Fields: either Any or an exact value. The class
// triple is evaluated against the device's top-level triple and then
// against each interface, so a composite device with one audio interface
// satisfies an audio-class filter.
package filter
