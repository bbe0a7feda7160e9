package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/repository"
)

// httpTransporter serves an http(s) repository. Connections are pooled by
// the underlying http.Client transport.
type httpTransporter struct {
	base   *url.URL
	client *http.Client
	auth   *repository.Auth
}

// NewHTTPTransporter creates a transporter for an http(s) repository,
// applying the repository's auth and proxy settings.
func NewHTTPTransporter(repo repository.Remote) (Transporter, error) {
	base, err := url.Parse(strings.TrimSuffix(repo.URL, "/") + "/")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, err, "bad repository URL %q", repo.URL)
	}

	tr := http.DefaultTransport
	if repo.Proxy != nil {
		proxyURL := &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", repo.Proxy.Host, repo.Proxy.Port)}
		clone := http.DefaultTransport.(*http.Transport).Clone()
		clone.Proxy = http.ProxyURL(proxyURL)
		tr = clone
	}

	return &httpTransporter{
		base:   base,
		client: &http.Client{Transport: tr, Timeout: 5 * time.Minute},
		auth:   repo.Auth,
	}, nil
}

func (t *httpTransporter) url(location string) string {
	ref := &url.URL{Path: strings.TrimPrefix(location, "/")}
	return t.base.ResolveReference(ref).String()
}

func (t *httpTransporter) newRequest(ctx context.Context, method, location string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.url(location), body)
	if err != nil {
		return nil, err
	}
	if t.auth != nil {
		req.SetBasicAuth(t.auth.Username, t.auth.Password)
	}
	return req, nil
}

func (t *httpTransporter) Peek(ctx context.Context, task *PeekTask) error {
	req, err := t.newRequest(ctx, http.MethodHead, task.Location, nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "peek %s", task.Location)
	}
	resp.Body.Close()
	return t.checkStatus(resp.StatusCode, task.Location)
}

func (t *httpTransporter) Get(ctx context.Context, task *GetTask) error {
	req, err := t.newRequest(ctx, http.MethodGet, task.Location, nil)
	if err != nil {
		return err
	}
	if task.Offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", task.Offset))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "get %s", task.Location)
	}
	defer resp.Body.Close()

	offset := task.Offset
	switch {
	case resp.StatusCode == http.StatusPartialContent:
		// server honored the range; keep resuming
	case resp.StatusCode == http.StatusOK && task.Offset > 0:
		// server ignored the range and restarted from zero
		offset = 0
	default:
		if err := t.checkStatus(resp.StatusCode, task.Location); err != nil {
			return err
		}
	}

	saved := task.Offset
	task.Offset = offset
	dst, closeDst, err := getTarget(task)
	task.Offset = saved
	if err != nil {
		return err
	}
	defer closeDst()

	_, err = copyWithListener(ctx, dst, resp.Body, resp.ContentLength, task.Location, task.Listener)
	return err
}

func (t *httpTransporter) Put(ctx context.Context, task *PutTask) error {
	src, size, closeSrc, err := putSource(task)
	if err != nil {
		return err
	}
	defer closeSrc()

	pr, pw := io.Pipe()
	go func() {
		_, cErr := copyWithListener(ctx, pw, src, size, task.Location, task.Listener)
		pw.CloseWithError(cErr)
	}()

	req, err := t.newRequest(ctx, http.MethodPut, task.Location, pr)
	if err != nil {
		return err
	}
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, errors.ErrCodeTransferCancelled) {
			return err
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "put %s", task.Location)
	}
	resp.Body.Close()
	return t.checkStatus(resp.StatusCode, task.Location)
}

func (t *httpTransporter) Classify(err error) Classification {
	if errors.Is(err, errors.ErrCodeNotFound) {
		return ClassifyNotFound
	}
	return ClassifyOther
}

func (t *httpTransporter) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *httpTransporter) checkStatus(code int, location string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound, code == http.StatusGone:
		return errors.New(errors.ErrCodeNotFound, "resource not found: %s", location)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return errors.New(errors.ErrCodeNetwork, "access denied (%d): %s", code, location)
	}
	return errors.New(errors.ErrCodeNetwork, "unexpected status %d: %s", code, location)
}
