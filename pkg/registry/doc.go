// Package registry tracks the installed handler applications and the USB
// filters they declare.
//
// A Catalog holds activities in memory. ManifestRegistry fills a Catalog
// from a directory of YAML manifests, one per application package, and can
// watch the directory to pick up installs and removals:
//
//	package: com.acme.carlink
//	uid: 10045
//	activities:
//	  - name: .ProjectionActivity
//	    label: Acme CarLink
//	    actions: [usb.device.attached]
//	    exec: [/opt/acme/carlink, --device, "{device}"]
//	    filters:
//	      - usb-device:
//	          vendor-id: 0x18d1
//	      - usb-aoap-accessory:
//	          manufacturer: Acme
//	          model: CarLink
//	          version: "1"
//	          service: com.acme.carlink/.VerifierService
//	    filter-file: carlink_filters.xml
package registry
