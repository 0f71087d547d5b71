// Package usbio is the device connection layer: it opens connections to
// attached USB devices, drives the accessory handshake over them and
// reports hotplug events.
//
// GoUSB implements Service and Enumerator on top of libusb. Monitor turns
// periodic enumerations into attach and detach events; it works with any
// Enumerator, so tests can feed it a scripted bus.
package usbio
