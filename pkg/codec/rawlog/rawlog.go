// Package rawlog is the native lossless recording backend.
//
// A rawlog file starts with an 8 byte magic followed by a CBOR sequence: one
// Header item, then one Frame item per recorded frame with the packed
// pixels. Nothing is compressed, so writing keeps up with any camera the
// disk can keep up with.
package rawlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/camsync/camsync/pkg/codec"
	"github.com/camsync/camsync/pkg/frame"
)

// Name is the registrar name of the backend.
const Name = "native"

const magic = "CAMRAW01"

func init() {
	codec.Register(Name, func() codec.Writer { return &Writer{} })
}

// Header is the first item of a rawlog file.
type Header struct {
	Width     int     `cbor:"width"`
	Height    int     `cbor:"height"`
	Format    string  `cbor:"format"`
	FrameRate float64 `cbor:"fps"`
	Created   int64   `cbor:"created"`
}

// Frame is one recorded frame.
type Frame struct {
	Seq      uint64 `cbor:"seq"`
	Captured int64  `cbor:"t"` // unix nanoseconds
	Pixels   []byte `cbor:"px"`
}

// Writer implements codec.Writer.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	enc    *cbor.Encoder
	format frame.Format
	pix    []byte
}

func (r *Writer) Open(path string, s codec.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f != nil {
		return fmt.Errorf("rawlog: already open")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(magic); err != nil {
		_ = f.Close()
		return err
	}

	enc := cbor.NewEncoder(w)
	err = enc.Encode(Header{
		Width:     s.Width,
		Height:    s.Height,
		Format:    string(s.Format),
		FrameRate: s.FrameRate,
		Created:   time.Now().UnixNano(),
	})
	if err != nil {
		_ = f.Close()
		return err
	}

	r.f, r.w, r.enc, r.format = f, w, enc, s.Format
	return nil
}

func (r *Writer) Write(rec frame.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return fmt.Errorf("rawlog: writer is closed")
	}
	r.pix = frame.Raw(r.pix, rec.Image, r.format)
	return r.enc.Encode(Frame{
		Seq:      rec.Seq,
		Captured: rec.Captured.UnixNano(),
		Pixels:   r.pix,
	})
}

func (r *Writer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w == nil {
		return nil
	}
	err := r.w.Flush()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	r.f, r.w, r.enc = nil, nil, nil
	return err
}

// Reader reads a rawlog file back.
type Reader struct {
	f      *os.File
	dec    *cbor.Decoder
	header Header
}

// Open opens a rawlog file and reads its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)

	m := make([]byte, len(magic))
	if _, err := io.ReadFull(br, m); err != nil {
		f.Close()
		return nil, fmt.Errorf("rawlog: read magic: %w", err)
	}
	if string(m) != magic {
		f.Close()
		return nil, fmt.Errorf("rawlog: unexpected magic %q", string(m))
	}

	r := &Reader{f: f, dec: cbor.NewDecoder(br)}
	if err := r.dec.Decode(&r.header); err != nil {
		f.Close()
		return nil, fmt.Errorf("rawlog: read header: %w", err)
	}
	return r, nil
}

func (r *Reader) Header() Header { return r.header }

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (frame.Record, error) {
	var fr Frame
	if err := r.dec.Decode(&fr); err != nil {
		return frame.Record{}, err
	}
	img, err := frame.FromRaw(fr.Pixels, r.header.Width, r.header.Height, frame.Format(r.header.Format))
	if err != nil {
		return frame.Record{}, err
	}
	return frame.Record{
		Seq:      fr.Seq,
		Captured: time.Unix(0, fr.Captured),
		Image:    img,
	}, nil
}

func (r *Reader) Close() error {
	return r.f.Close()
}
