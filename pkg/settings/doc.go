// Package settings persists the handler chosen for each USB device.
//
// Records are keyed by (serial number, vendor ID, product ID). A device that
// is already running in accessory mode reports the accessory protocol's
// vendor and product IDs, so it is looked up by serial number among the
// records saved for accessory-mode dispatch.
//
// FileStore keeps every record in a single JSON file that survives
// restarts. Records are only removed by an explicit Delete.
package settings
