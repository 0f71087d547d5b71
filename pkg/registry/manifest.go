package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/usbhost/usbhost-go/pkg/filter"
)

// Manifest describes the handlers an application package provides.
type Manifest struct {
	Package    string             `yaml:"package"`
	UID        *int               `yaml:"uid,omitempty"`
	Activities []ActivityManifest `yaml:"activities"`
}

// ActivityManifest is one handler entry of a Manifest.
type ActivityManifest struct {
	// Name is the class, absolute or relative (".Main") to the package.
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label,omitempty"`
	Actions []string `yaml:"actions,omitempty"`
	Exec    []string `yaml:"exec,omitempty"`

	// Filters declared inline.
	Filters []filter.Declaration `yaml:"filters,omitempty"`

	// FilterFile is an XML filter resource, relative to the manifest.
	FilterFile string `yaml:"filter-file,omitempty"`
}

// ErrInvalidManifest is returned for a manifest missing required fields.
var ErrInvalidManifest = errors.New("registry: invalid manifest")

// ManifestConfig configures a ManifestRegistry.
type ManifestConfig struct {
	// Dir holds one YAML manifest per application package.
	Dir string

	// ReloadDelay coalesces bursts of file changes before reloading.
	ReloadDelay time.Duration

	// Logger for load problems. Nil disables logging.
	Logger *slog.Logger
}

// DefaultManifestConfig returns the default configuration for dir.
func DefaultManifestConfig(dir string) ManifestConfig {
	return ManifestConfig{
		Dir:         dir,
		ReloadDelay: 200 * time.Millisecond,
	}
}

// ManifestRegistry is a Registry loaded from a directory of manifests.
type ManifestRegistry struct {
	*Catalog

	config ManifestConfig
	logger *slog.Logger
}

// NewManifestRegistry creates a registry and performs the initial load.
func NewManifestRegistry(config ManifestConfig) (*ManifestRegistry, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &ManifestRegistry{
		Catalog: NewCatalog(),
		config:  config,
		logger:  logger,
	}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load rereads every manifest in the directory. A manifest that fails to
// parse is logged and left out; the rest still load.
func (r *ManifestRegistry) Load() error {
	entries, err := os.ReadDir(r.config.Dir)
	if err != nil {
		return fmt.Errorf("read manifest dir: %w", err)
	}

	var activities []Activity
	for _, e := range entries {
		if e.IsDir() || !isManifestFile(e.Name()) {
			continue
		}
		path := filepath.Join(r.config.Dir, e.Name())
		acts, err := r.loadFile(path)
		if err != nil {
			r.logger.Warn("skipping manifest", "path", path, "error", err)
			continue
		}
		activities = append(activities, acts...)
	}

	r.Replace(activities)
	r.logger.Info("handler manifests loaded", "dir", r.config.Dir, "activities", len(activities))
	return nil
}

func (r *ManifestRegistry) loadFile(path string) ([]Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Package == "" {
		return nil, fmt.Errorf("%w: missing package", ErrInvalidManifest)
	}

	uid := NoUID
	if m.UID != nil {
		uid = *m.UID
	}

	return lo.FilterMap(m.Activities, func(am ActivityManifest, _ int) (Activity, bool) {
		comp, err := ParseComponent(m.Package + "/" + am.Name)
		if err != nil {
			r.logger.Warn("skipping activity", "path", path, "name", am.Name, "error", err)
			return Activity{}, false
		}
		return Activity{
			Component: comp,
			Label:     am.Label,
			UID:       uid,
			Actions:   am.Actions,
			Exec:      am.Exec,
			Filters:   r.activityFilters(filepath.Dir(path), comp, am),
		}, true
	}), nil
}

// activityFilters combines inline declarations with the filter file. An
// unreadable filter file leaves the activity with its inline filters only.
func (r *ManifestRegistry) activityFilters(dir string, comp Component, am ActivityManifest) []filter.Filter {
	logger := r.logger.With("component", comp.Flatten())
	filters := filter.ParseAll(am.Filters, logger)

	if am.FilterFile == "" {
		return filters
	}
	path := am.FilterFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("filter file unreadable", "path", path, "error", err)
		return filters
	}
	fromFile, err := filter.ParseXML(bytes.NewReader(data), logger)
	if err != nil {
		logger.Warn("filter file malformed", "path", path, "error", err)
		return filters
	}
	return append(filters, fromFile...)
}

// Watch reloads the registry whenever a manifest or filter file in the
// directory changes. It blocks until ctx is done.
func (r *ManifestRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.config.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", r.config.Dir, err)
	}

	var (
		reload  <-chan time.Time
		pending *time.Timer
	)
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isManifestFile(ev.Name) && !strings.EqualFold(filepath.Ext(ev.Name), ".xml") {
				continue
			}
			r.logger.Debug("manifest change", "path", ev.Name, "op", ev.Op.String())
			if pending != nil {
				pending.Stop()
			}
			pending = time.NewTimer(r.config.ReloadDelay)
			reload = pending.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("manifest watcher error", "error", err)

		case <-reload:
			reload, pending = nil, nil
			if err := r.Load(); err != nil {
				r.logger.Warn("manifest reload failed", "error", err)
			}
		}
	}
}

func isManifestFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Compile-time interface satisfaction check.
var _ Registry = (*ManifestRegistry)(nil)
