// Package transport defines the transporter surface the resolver's readers
// sit on: existence checks, downloads, and uploads against one remote
// repository, with progress reporting and listener-driven cancellation.
//
// The collection engine itself never speaks wire protocols; it consumes
// transporters indirectly through descriptor readers and version resolvers.
// Two transporters ship with the resolver: [NewFileTransporter] for
// file:// repositories and [NewHTTPTransporter] for http(s).
package transport

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/observability"
	"github.com/okvist/quarry/pkg/repository"
)

// Classification buckets transporter errors for callers that only care
// whether a resource exists.
type Classification int

const (
	// ClassifyOther marks failures that say nothing about existence.
	ClassifyOther Classification = iota

	// ClassifyNotFound marks "resource does not exist" failures.
	ClassifyNotFound
)

// Transporter performs transfers against a single remote repository.
//
// Implementations must be safe for concurrent use; Close releases pooled
// connections and invalidates the transporter.
type Transporter interface {
	// Peek checks that the resource exists without transferring it.
	Peek(ctx context.Context, task *PeekTask) error

	// Get downloads the resource into the task's target, optionally
	// resuming from the task's offset.
	Get(ctx context.Context, task *GetTask) error

	// Put uploads the task's source to the resource location.
	Put(ctx context.Context, task *PutTask) error

	// Classify buckets an error previously returned by this transporter.
	Classify(err error) Classification

	// Close releases the transporter's resources.
	Close() error
}

// PeekTask names a resource to check, as a path relative to the
// repository root.
type PeekTask struct {
	Location string
}

// GetTask describes a download. Exactly one of Target or TargetFile should
// be set; with neither set the transfer lands in an internal buffer exposed
// by [GetTask.Bytes].
type GetTask struct {
	Location string

	// Target receives the data when non-nil.
	Target io.Writer

	// TargetFile receives the data when non-empty.
	TargetFile string

	// Offset resumes the transfer from the given byte position.
	Offset int64

	// Listener observes the transfer; may be nil.
	Listener Listener

	buf bytes.Buffer
}

// Bytes returns the downloaded data when the task targeted memory.
func (t *GetTask) Bytes() []byte { return t.buf.Bytes() }

// PutTask describes an upload. Exactly one of Source or SourceFile should be
// set.
type PutTask struct {
	Location string

	Source     io.Reader
	SourceFile string

	// Size is the total upload size when known, -1 otherwise.
	Size int64

	// Listener observes the transfer; may be nil.
	Listener Listener
}

// Listener observes a transfer. Returning a non-nil error from either
// callback cancels the transfer, which then fails with TRANSFER_CANCELLED.
type Listener interface {
	// Started is invoked once before any data moves. size is the total
	// transfer size when known, -1 otherwise.
	Started(size int64) error

	// Progressed is invoked per chunk with the cumulative byte count.
	Progressed(chunk []byte, transferred int64) error
}

// ListenerFunc adapts a progress function to the Listener interface; the
// started callback accepts everything.
type ListenerFunc func(chunk []byte, transferred int64) error

func (f ListenerFunc) Started(int64) error { return nil }

func (f ListenerFunc) Progressed(chunk []byte, transferred int64) error {
	return f(chunk, transferred)
}

// New creates a transporter for the repository based on its URL scheme.
func New(repo repository.Remote) (Transporter, error) {
	switch {
	case strings.HasPrefix(repo.URL, "file://"):
		return NewFileTransporter(repo)
	case strings.HasPrefix(repo.URL, "http://"), strings.HasPrefix(repo.URL, "https://"):
		return NewHTTPTransporter(repo)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "no transporter for %q", repo.URL)
}

// copyWithListener moves data from src to dst, reporting each chunk to the
// listener and honoring cancellation from either the listener or the
// context. transferred counts bytes written before a failure, so resumable
// callers can retry from there.
func copyWithListener(ctx context.Context, dst io.Writer, src io.Reader, size int64, location string, l Listener) (transferred int64, err error) {
	start := time.Now()
	observability.Transfer().OnTransferStart(ctx, location, size)
	defer func() {
		observability.Transfer().OnTransferComplete(ctx, location, transferred, time.Since(start), err)
	}()

	if l != nil {
		if err = l.Started(size); err != nil {
			return 0, errors.Wrap(errors.ErrCodeTransferCancelled, err, "transfer of %s cancelled", location)
		}
	}

	buf := make([]byte, 32*1024)
	for {
		if err = ctx.Err(); err != nil {
			return transferred, errors.Wrap(errors.ErrCodeTransferCancelled, err, "transfer of %s cancelled", location)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err = dst.Write(buf[:n]); err != nil {
				return transferred, err
			}
			transferred += int64(n)
			if l != nil {
				if err = l.Progressed(buf[:n], transferred); err != nil {
					return transferred, errors.Wrap(errors.ErrCodeTransferCancelled, err, "transfer of %s cancelled", location)
				}
			}
		}
		if readErr == io.EOF {
			return transferred, nil
		}
		if readErr != nil {
			err = readErr
			return transferred, err
		}
	}
}
