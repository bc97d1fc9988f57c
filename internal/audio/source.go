package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrDecode is matched by every *DecodeError.
var ErrDecode = errors.New("audio could not be decoded")

// DecodeError reports that a source could not be read or decoded. It is kept
// distinct from an empty pitch track so callers can tell "no pitch" from
// "no audio".
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func decodeErr(src Source, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return &DecodeError{Source: src.String(), Err: de.Err}
	}
	return &DecodeError{Source: src.String(), Err: err}
}

// Source is an audio input: a stored file (reference tracks) or raw encoded
// bytes (user recordings). Exactly one of Path or Data is set.
type Source struct {
	Path string
	Data []byte
	Name string
}

// FromFile returns a Source backed by a file on disk.
func FromFile(path string) Source {
	return Source{Path: path, Name: filepath.Base(path)}
}

// FromBytes returns a Source backed by an in-memory encoded clip.
func FromBytes(name string, data []byte) Source {
	return Source{Data: data, Name: name}
}

// String identifies the source in logs and errors.
func (s Source) String() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.Name != "":
		return s.Name
	default:
		return fmt.Sprintf("<%d bytes>", len(s.Data))
	}
}

func (s Source) validate() error {
	if s.Path == "" && s.Data == nil {
		return errors.New("empty audio source")
	}
	if s.Path != "" && s.Data != nil {
		return errors.New("audio source has both a path and inline data")
	}
	return nil
}

type nopCloser struct{ io.ReadSeeker }

func (nopCloser) Close() error { return nil }

// open returns a seekable reader over the encoded audio.
func (s Source) open() (io.ReadSeekCloser, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if s.Path != "" {
		return os.Open(s.Path)
	}
	return nopCloser{bytes.NewReader(s.Data)}, nil
}

// header reads up to n leading bytes for format sniffing.
func (s Source) header(n int) ([]byte, error) {
	rc, err := s.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}

// Buffer is decoded mono PCM at the source's native sample rate.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}
