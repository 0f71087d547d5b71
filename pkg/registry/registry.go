package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/usbhost/usbhost-go/pkg/filter"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// ActionDeviceAttached is the action a handler declares to be launched for
// newly attached USB devices.
const ActionDeviceAttached = "usb.device.attached"

// NoUID marks an activity that runs without a dedicated user.
const NoUID = -1

// ErrNotFound is returned when a component is not registered.
var ErrNotFound = errors.New("registry: component not found")

// Activity is a launchable handler and the filters it declares.
type Activity struct {
	Component Component
	Label     string

	// UID is the user the handler runs as; device access is granted to it.
	UID int

	Actions []string

	// Exec is the command line used to start the handler.
	Exec []string

	Filters []filter.Filter
}

// Handles reports whether the activity declares action.
func (a Activity) Handles(action string) bool {
	return lo.Contains(a.Actions, action)
}

// AccessoryFilter returns the activity's first accessory filter.
func (a Activity) AccessoryFilter() (filter.AccessoryFilter, bool) {
	return filter.FirstAccessory(a.Filters)
}

// Candidate is an activity together with the filter that selected it.
type Candidate struct {
	Activity Activity
	Filter   filter.Filter
}

// Registry maps declared filters to launchable components.
type Registry interface {
	// QueryNativeCandidates returns, per activity handling
	// ActionDeviceAttached, the first native filter that matches dev.
	QueryNativeCandidates(dev usbdev.Device) []Candidate

	// QueryAccessoryCandidates returns, per activity handling action, its
	// first accessory filter.
	QueryAccessoryCandidates(action string) []Candidate

	// ResolveLaunchTarget looks up a registered component.
	ResolveLaunchTarget(c Component) (Activity, error)
}

// Catalog is an in-memory Registry. It is safe for concurrent use and its
// contents can be replaced atomically.
type Catalog struct {
	mu         sync.RWMutex
	activities []Activity
}

// NewCatalog creates a catalog holding activities.
func NewCatalog(activities ...Activity) *Catalog {
	c := &Catalog{}
	c.Replace(activities)
	return c
}

// Replace swaps the full set of activities. Activities are kept ordered by
// component name so query results are stable.
func (c *Catalog) Replace(activities []Activity) {
	sorted := append([]Activity(nil), activities...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Component.Flatten() < sorted[j].Component.Flatten()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.activities = sorted
}

// Activities returns a copy of the registered activities.
func (c *Catalog) Activities() []Activity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Activity(nil), c.activities...)
}

// QueryNativeCandidates implements Registry.
func (c *Catalog) QueryNativeCandidates(dev usbdev.Device) []Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return lo.FilterMap(c.activities, func(a Activity, _ int) (Candidate, bool) {
		if !a.Handles(ActionDeviceAttached) {
			return Candidate{}, false
		}
		f, ok := filter.FirstMatch(a.Filters, filter.KindDevice, dev)
		return Candidate{Activity: a, Filter: f}, ok
	})
}

// QueryAccessoryCandidates implements Registry.
func (c *Catalog) QueryAccessoryCandidates(action string) []Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return lo.FilterMap(c.activities, func(a Activity, _ int) (Candidate, bool) {
		if !a.Handles(action) {
			return Candidate{}, false
		}
		acc, ok := a.AccessoryFilter()
		return Candidate{Activity: a, Filter: filter.NewAccessory(acc)}, ok
	})
}

// ResolveLaunchTarget implements Registry.
func (c *Catalog) ResolveLaunchTarget(comp Component) (Activity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := lo.Find(c.activities, func(a Activity) bool { return a.Component == comp })
	if !ok {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

// Compile-time interface satisfaction check.
var _ Registry = (*Catalog)(nil)
