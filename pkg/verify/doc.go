// Package verify connects the resolver to per-handler verification
// services.
//
// A handler that wants to be offered for accessory-mode devices declares an
// accessory filter naming a verification service. Before the handler is
// listed, the resolver binds to that service and asks it whether the attached
// device is supported. Binding is asynchronous: Bind returns a Binding handle
// immediately and the outcome arrives through Callbacks.
//
// Two binders are provided:
//
//   - LocalBinder serves in-process checkers registered by component name.
//   - RemoteBinder talks to a Server over TCP. Messages are CBOR encoded and
//     length-prefixed. Servers can advertise themselves over mDNS
//     (service type _usbverify._tcp) and the remote binder can discover them.
package verify
