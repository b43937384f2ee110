// Package sink holds the destinations a CSV document can be written to. Each
// sink receives the complete document in a single Write call.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoDestination is returned when the user did not choose a destination.
var ErrNoDestination = errors.New("no destination")

// Sink writes a complete document. Opening and closing the underlying
// destination is the sink's job; callers only hand over bytes.
type Sink interface {
	Write(ctx context.Context, data []byte) error
	Name() string
}

// FileSink creates or truncates a file. A failed write leaves whatever was
// already written in place.
type FileSink struct {
	Path string
	Perm os.FileMode
}

// NewFileSink constructs a FileSink with 0644 permissions.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path, Perm: 0o644}
}

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.Perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.Path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.Path, err)
	}
	return nil
}

// Name implements Sink.
func (s *FileSink) Name() string { return s.Path }

// WriterSink writes to an io.Writer the caller owns, such as stdout or an
// HTTP response.
type WriterSink struct {
	W     io.Writer
	Label string
}

// NewWriterSink constructs a WriterSink.
func NewWriterSink(w io.Writer, label string) *WriterSink {
	return &WriterSink{W: w, Label: label}
}

// Write implements Sink.
func (s *WriterSink) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.W.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", s.Label, err)
	}
	return nil
}

// Name implements Sink.
func (s *WriterSink) Name() string { return s.Label }

// ObjectWriter stores an export under an object key.
type ObjectWriter interface {
	UploadExport(ctx context.Context, objectKey string, data []byte) error
}

// ObjectSink uploads the document to object storage.
type ObjectSink struct {
	store ObjectWriter
	key   string
}

// NewObjectSink constructs an ObjectSink.
func NewObjectSink(store ObjectWriter, key string) *ObjectSink {
	return &ObjectSink{store: store, key: key}
}

// Write implements Sink.
func (s *ObjectSink) Write(ctx context.Context, data []byte) error {
	return s.store.UploadExport(ctx, s.key, data)
}

// Name implements Sink.
func (s *ObjectSink) Name() string { return "s3://" + s.key }

// Key returns the object key the sink writes to.
func (s *ObjectSink) Key() string { return s.key }

// ParseDestination maps a CLI destination onto a Sink: "-" is stdout,
// "s3://key" is an object (objects may be nil when no store is configured),
// anything else is a file path.
func ParseDestination(dest string, stdout io.Writer, objects ObjectWriter) (Sink, error) {
	dest = strings.TrimSpace(dest)
	switch {
	case dest == "":
		return nil, ErrNoDestination
	case dest == "-":
		return NewWriterSink(stdout, "stdout"), nil
	case strings.HasPrefix(dest, "s3://"):
		key := strings.TrimPrefix(dest, "s3://")
		if key == "" {
			return nil, fmt.Errorf("%w: empty object key", ErrNoDestination)
		}
		if objects == nil {
			return nil, errors.New("object storage is not configured")
		}
		return NewObjectSink(objects, key), nil
	default:
		return NewFileSink(dest), nil
	}
}
