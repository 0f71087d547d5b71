package verify

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the frame length prefix in bytes.
	LengthPrefixSize = 4

	// MaxFrameSize bounds a single encoded message.
	MaxFrameSize = 65536
)

// Framing errors.
var (
	ErrFrameTooLarge  = errors.New("verify: frame too large")
	ErrFrameEmpty     = errors.New("verify: frame is empty")
	ErrFrameTruncated = errors.New("verify: frame truncated")
)

// Request asks a server whether dev is supported by service.
type Request struct {
	ID      string        `cbor:"1,keyasint"`
	Service string        `cbor:"2,keyasint"`
	Device  usbdev.Device `cbor:"3,keyasint"`
}

// Response answers the Request with the same ID. A non-empty Error means the
// check itself failed.
type Response struct {
	ID        string `cbor:"1,keyasint"`
	Supported bool   `cbor:"2,keyasint"`
	Error     string `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient so that newer peers can add fields.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// framer reads and writes length-prefixed CBOR messages on a stream.
// Writes are serialized; reads must come from a single goroutine.
type framer struct {
	rw      io.ReadWriter
	wmu     sync.Mutex
	lenBuf  [LengthPrefixSize]byte
	maxSize uint32
}

func newFramer(rw io.ReadWriter) *framer {
	return &framer{rw: rw, maxSize: MaxFrameSize}
}

// writeMessage encodes v and writes it as a single frame.
func (f *framer) writeMessage(v any) error {
	data, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(data) == 0 {
		return ErrFrameEmpty
	}
	if uint32(len(data)) > f.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(data), f.maxSize)
	}

	buf := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[LengthPrefixSize:], data)

	f.wmu.Lock()
	defer f.wmu.Unlock()
	if _, err := f.rw.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readMessage reads one frame and decodes it into v. A clean end of stream
// before a frame starts is reported as io.EOF.
func (f *framer) readMessage(v any) error {
	if _, err := io.ReadFull(f.rw, f.lenBuf[:]); err != nil {
		if err == io.EOF {
			return err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrFrameTruncated
		}
		return fmt.Errorf("read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(f.lenBuf[:])
	if length == 0 {
		return ErrFrameEmpty
	}
	if length > f.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, f.maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(f.rw, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return ErrFrameTruncated
		}
		return fmt.Errorf("read payload: %w", err)
	}
	if err := decMode.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
