package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usbhost/usbhost-go/pkg/filter"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

const carlinkManifest = `
package: com.acme.carlink
uid: 10045
activities:
  - name: .ProjectionActivity
    label: Acme CarLink
    actions: [usb.device.attached]
    exec: [/opt/acme/carlink, --device, "{device}"]
    filters:
      - usb-device:
          vendor-id: 0x18d1
          product-id: bogus
      - usb-aoap-accessory:
          manufacturer: Acme
          model: CarLink
          service: com.acme.carlink/.VerifierService
    filter-file: carlink.xml
  - name: .Settings
`

const carlinkFilters = `<resources>
  <usb-device vendor-id="0x05ac" />
</resources>`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestManifestRegistryLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "carlink.yaml", carlinkManifest)
	writeFile(t, dir, "carlink.xml", carlinkFilters)
	writeFile(t, dir, "broken.yaml", "package: [")
	writeFile(t, dir, "nopackage.yml", "activities: []")
	writeFile(t, dir, "README.txt", "not a manifest")

	r, err := NewManifestRegistry(DefaultManifestConfig(dir))
	require.NoError(t, err)

	acts := r.Activities()
	require.Len(t, acts, 2)

	a, err := r.ResolveLaunchTarget(Component{"com.acme.carlink", "com.acme.carlink.ProjectionActivity"})
	require.NoError(t, err)
	assert.Equal(t, "Acme CarLink", a.Label)
	assert.Equal(t, 10045, a.UID)
	assert.Equal(t, []string{"/opt/acme/carlink", "--device", "{device}"}, a.Exec)
	require.Len(t, a.Filters, 3)
	assert.Equal(t, filter.Exactly(0x18d1), a.Filters[0].Device.VendorID)
	assert.True(t, a.Filters[0].Device.ProductID.IsAny(), "bad number leaves the field a wildcard")
	assert.Equal(t, filter.KindAccessory, a.Filters[1].Kind)
	assert.Equal(t, filter.Exactly(0x05ac), a.Filters[2].Device.VendorID)

	got := r.QueryNativeCandidates(usbdev.Device{VendorID: 0x05ac})
	require.Len(t, got, 1)
	assert.Equal(t, "com.acme.carlink/.ProjectionActivity", got[0].Activity.Component.Flatten())
}

func TestManifestRegistryMissingFilterFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "carlink.yaml", carlinkManifest)

	r, err := NewManifestRegistry(DefaultManifestConfig(dir))
	require.NoError(t, err)

	a, err := r.ResolveLaunchTarget(Component{"com.acme.carlink", "com.acme.carlink.ProjectionActivity"})
	require.NoError(t, err)
	assert.Len(t, a.Filters, 2)
}

func TestManifestRegistryDefaultUID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plain.yaml", "package: com.plain\nactivities:\n  - name: .Main\n")

	r, err := NewManifestRegistry(DefaultManifestConfig(dir))
	require.NoError(t, err)
	a, err := r.ResolveLaunchTarget(Component{"com.plain", "com.plain.Main"})
	require.NoError(t, err)
	assert.Equal(t, NoUID, a.UID)
}

func TestManifestRegistryMissingDir(t *testing.T) {
	_, err := NewManifestRegistry(DefaultManifestConfig(filepath.Join(t.TempDir(), "absent")))
	assert.Error(t, err)
}

func TestManifestRegistryWatch(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultManifestConfig(dir)
	cfg.ReloadDelay = 10 * time.Millisecond

	r, err := NewManifestRegistry(cfg)
	require.NoError(t, err)
	require.Empty(t, r.Activities())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	// Give the watcher time to register before writing.
	require.Eventually(t, func() bool {
		writeFile(t, dir, "plain.yaml", "package: com.plain\nactivities:\n  - name: .Main\n")
		return len(r.Activities()) == 1
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "plain.yaml")))
	require.Eventually(t, func() bool {
		return len(r.Activities()) == 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
