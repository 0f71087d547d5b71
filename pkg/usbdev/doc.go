// Package usbdev defines the device descriptor snapshot shared by every
// layer of the USB handler dispatcher.
//
// A Device is captured once when the peripheral attaches and is passed by
// value afterwards. String descriptors that the device did not report are
// left empty.
package usbdev
