package transport

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/repository"
)

// fileTransporter serves a file:// repository from the local filesystem.
type fileTransporter struct {
	base string
}

// NewFileTransporter creates a transporter rooted at the repository's
// file:// path.
func NewFileTransporter(repo repository.Remote) (Transporter, error) {
	path, ok := strings.CutPrefix(repo.URL, "file://")
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupported, "not a file repository: %q", repo.URL)
	}
	if path == "" {
		path = "/"
	}
	return &fileTransporter{base: path}, nil
}

func (t *fileTransporter) resolve(location string) (string, error) {
	clean := filepath.Clean("/" + location)
	if strings.Contains(location, "..") {
		return "", errors.New(errors.ErrCodeInvalidRequest, "location escapes repository: %q", location)
	}
	return filepath.Join(t.base, clean), nil
}

func (t *fileTransporter) Peek(ctx context.Context, task *PeekTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := t.resolve(task.Location)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return t.wrapStat(err, task.Location)
	}
	if info.IsDir() {
		return errors.New(errors.ErrCodeNotFound, "resource not found: %s", task.Location)
	}
	return nil
}

func (t *fileTransporter) Get(ctx context.Context, task *GetTask) error {
	path, err := t.resolve(task.Location)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return t.wrapStat(err, task.Location)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New(errors.ErrCodeNotFound, "resource not found: %s", task.Location)
	}

	if task.Offset > 0 {
		if _, err := f.Seek(task.Offset, io.SeekStart); err != nil {
			return err
		}
	}

	dst, closeDst, err := getTarget(task)
	if err != nil {
		return err
	}
	defer closeDst()

	_, err = copyWithListener(ctx, dst, f, info.Size()-task.Offset, task.Location, task.Listener)
	return err
}

func (t *fileTransporter) Put(ctx context.Context, task *PutTask) error {
	path, err := t.resolve(task.Location)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	src, size, closeSrc, err := putSource(task)
	if err != nil {
		return err
	}
	defer closeSrc()

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := copyWithListener(ctx, f, src, size, task.Location, task.Listener); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (t *fileTransporter) Classify(err error) Classification {
	if errors.Is(err, errors.ErrCodeNotFound) {
		return ClassifyNotFound
	}
	return ClassifyOther
}

func (t *fileTransporter) Close() error { return nil }

func (t *fileTransporter) wrapStat(err error, location string) error {
	if os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeNotFound, err, "resource not found: %s", location)
	}
	return err
}

// getTarget opens the task's destination: file target, explicit writer, or
// the in-memory buffer.
func getTarget(task *GetTask) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch {
	case task.TargetFile != "":
		if err := os.MkdirAll(filepath.Dir(task.TargetFile), 0o755); err != nil {
			return nil, noop, err
		}
		flags := os.O_WRONLY | os.O_CREATE
		if task.Offset > 0 {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(task.TargetFile, flags, 0o644)
		if err != nil {
			return nil, noop, err
		}
		return f, f.Close, nil
	case task.Target != nil:
		return task.Target, noop, nil
	}
	return &task.buf, noop, nil
}

// putSource opens the task's source: explicit reader or file.
func putSource(task *PutTask) (io.Reader, int64, func() error, error) {
	noop := func() error { return nil }
	if task.SourceFile != "" {
		f, err := os.Open(task.SourceFile)
		if err != nil {
			return nil, 0, noop, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, noop, err
		}
		return f, info.Size(), f.Close, nil
	}
	size := task.Size
	if size == 0 {
		size = -1
	}
	return task.Source, size, noop, nil
}
