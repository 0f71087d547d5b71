package verify

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

func TestFramerRequestResponse(t *testing.T) {
	buf := new(bytes.Buffer)
	f := newFramer(buf)

	req := Request{
		ID:      "a1",
		Service: "com.acme.carlink/.Verify",
		Device: usbdev.Device{
			Name:         "001/004",
			VendorID:     0x18d1,
			ProductID:    0x4ee1,
			SerialNumber: "X",
			Interfaces:   []usbdev.Interface{{Number: 0, Class: 0xff}},
		},
	}
	resp := Response{ID: "a1", Supported: true}

	if err := f.writeMessage(req); err != nil {
		t.Fatalf("writeMessage(req) error = %v", err)
	}
	if err := f.writeMessage(resp); err != nil {
		t.Fatalf("writeMessage(resp) error = %v", err)
	}

	var gotReq Request
	if err := f.readMessage(&gotReq); err != nil {
		t.Fatalf("readMessage(req) error = %v", err)
	}
	if diff := cmp.Diff(req, gotReq); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}

	var gotResp Response
	if err := f.readMessage(&gotResp); err != nil {
		t.Fatalf("readMessage(resp) error = %v", err)
	}
	if gotResp != resp {
		t.Errorf("response = %+v, want %+v", gotResp, resp)
	}

	if err := f.readMessage(&gotResp); err != io.EOF {
		t.Errorf("readMessage() at end = %v, want io.EOF", err)
	}
}

func TestFramerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{name: "empty frame", input: []byte{0, 0, 0, 0}, want: ErrFrameEmpty},
		{name: "oversized frame", input: []byte{0x00, 0x01, 0x00, 0x01}, want: ErrFrameTooLarge},
		{name: "truncated prefix", input: []byte{0, 0}, want: ErrFrameTruncated},
		{name: "truncated payload", input: []byte{0, 0, 0, 8, 0xa0}, want: ErrFrameTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFramer(bytes.NewBuffer(tt.input))
			var resp Response
			if err := f.readMessage(&resp); !errors.Is(err, tt.want) {
				t.Errorf("readMessage() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFramerUsesIntegerKeys(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := newFramer(buf).writeMessage(Response{ID: "x", Supported: true}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if n := binary.BigEndian.Uint32(data); int(n) != len(data)-LengthPrefixSize {
		t.Fatalf("length prefix = %d, payload = %d", n, len(data)-LengthPrefixSize)
	}
	// map(2) { 1: "x", 2: true }
	want := []byte{0xa2, 0x01, 0x61, 'x', 0x02, 0xf5}
	if !bytes.Equal(data[LengthPrefixSize:], want) {
		t.Errorf("payload = % x, want % x", data[LengthPrefixSize:], want)
	}
}

func TestServicesFromTXT(t *testing.T) {
	got := servicesFromTXT([]string{"svc=a/.B", "other=1", "svc=", "svc=c/.D"})
	want := []string{"a/.B", "c/.D"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("servicesFromTXT() mismatch (-want +got):\n%s", diff)
	}
}
