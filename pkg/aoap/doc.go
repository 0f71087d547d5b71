// Package aoap implements the host side of the Android Open Accessory
// Protocol handshake.
//
// The host first reads the protocol version with vendor request 51, then
// sends six identifying strings (manufacturer, model, description, version,
// URI, serial) with request 52 and finally issues request 53. The device
// drops off the bus and returns with the Google vendor ID and an
// accessory-mode product ID.
//
// The transfer helpers operate on a Controller, so they can be driven by
// libusb (see pkg/usbio) or by a recording fake in tests. Switch runs the
// string and start steps over any Switcher, such as an open usbio.Conn.
package aoap
