// Package resolver finds the applications able to handle an attached USB
// device and dispatches the device to the chosen one.
//
// A resolution session opens the device, collects every handler whose
// native filter matches, and, if the device can be switched into accessory
// mode, probes the verification service of each handler that declares an
// accessory filter. Probes run one at a time; each is bounded by
// Config.ConnectTimeout for the service to connect and again for it to
// answer. The outcome is reported through Callback.
//
// All session state lives on the shared looper. Service callbacks and check
// results arrive on other goroutines and are posted back as typed messages
// carrying the session ID and probe attempt, so stale messages are dropped.
package resolver
