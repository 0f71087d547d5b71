package commands

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/usbhost/usbhost-go/pkg/log"
)

// createTestLogFile writes events to a new log file and returns its path.
func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ulog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	return []log.Event{
		{
			Timestamp:    ts,
			Layer:        log.LayerTransport,
			Category:     log.CategoryDevice,
			DeviceName:   "001/004",
			SerialNumber: "X",
			Device:       &log.DeviceEvent{Action: log.DeviceAttached, VendorID: 0x18d1, ProductID: 0x4ee1},
		},
		{
			Timestamp:  ts.Add(time.Millisecond),
			SessionID:  "abc12345-6789-0123-4567-890abcdef012",
			Layer:      log.LayerResolver,
			Category:   log.CategoryProbe,
			DeviceName: "001/004",
			Probe: &log.ProbeEvent{
				Service: "com.acme.carlink/.Verify",
				Handler: "com.acme.carlink/.Projection",
				Attempt: 1,
				Outcome: log.ProbeAccepted,
			},
		},
		{
			Timestamp:  ts.Add(2 * time.Millisecond),
			Layer:      log.LayerHost,
			Category:   log.CategoryDispatch,
			DeviceName: "001/004",
			Dispatch:   &log.DispatchEvent{Handler: "com.acme.carlink/.Projection", Mode: log.DispatchAccessorySwitch, Success: true},
		},
	}
}

func TestExportToJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if first["DeviceName"] != "001/004" {
		t.Errorf("DeviceName = %v, want 001/004", first["DeviceName"])
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	probe := rows[2]
	if probe[2] != "RESOLVER" || probe[3] != "PROBE" || probe[6] != "probe" {
		t.Errorf("unexpected probe row: %v", probe)
	}
	if probe[7] != "com.acme.carlink/.Projection ACCEPTED" {
		t.Errorf("probe detail = %q", probe[7])
	}

	dispatch := rows[3]
	if dispatch[7] != "com.acme.carlink/.Projection ACCESSORY_SWITCH" {
		t.Errorf("dispatch detail = %q", dispatch[7])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out.xml"))
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestExportMissingFile(t *testing.T) {
	if err := RunExport(filepath.Join(t.TempDir(), "missing.ulog"), "jsonl", ""); err == nil {
		t.Error("expected error for missing log file")
	}
}
