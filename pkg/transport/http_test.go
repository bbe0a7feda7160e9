package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/repository"
)

func newHTTPRepo(t *testing.T, handler http.Handler) Transporter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tr, err := NewHTTPTransporter(repository.NewRemote("test", server.URL))
	if err != nil {
		t.Fatalf("NewHTTPTransporter error: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestHTTPGet(t *testing.T) {
	tr := newHTTPRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gid/aid/1/aid-1.pom" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "<project/>")
	}))

	task := &GetTask{Location: "gid/aid/1/aid-1.pom"}
	if err := tr.Get(context.Background(), task); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got := string(task.Bytes()); got != "<project/>" {
		t.Errorf("Bytes = %q", got)
	}
}

func TestHTTPNotFoundClassification(t *testing.T) {
	tr := newHTTPRepo(t, http.NotFoundHandler())

	err := tr.Get(context.Background(), &GetTask{Location: "absent.pom"})
	if err == nil {
		t.Fatal("Get succeeded on 404")
	}
	if tr.Classify(err) != ClassifyNotFound {
		t.Errorf("Classify(%v) = other, want not-found", err)
	}

	if err := tr.Peek(context.Background(), &PeekTask{Location: "absent.pom"}); tr.Classify(err) != ClassifyNotFound {
		t.Errorf("Peek classification = other, want not-found")
	}
}

func TestHTTPServerErrorIsNetwork(t *testing.T) {
	tr := newHTTPRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := tr.Get(context.Background(), &GetTask{Location: "x"})
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("Get on 500 = %v, want %s", err, errors.ErrCodeNetwork)
	}
	if tr.Classify(err) != ClassifyOther {
		t.Error("500 classified as not-found")
	}
}

func TestHTTPGetResume(t *testing.T) {
	const payload = "0123456789"
	var sawRange string
	tr := newHTTPRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRange = r.Header.Get("Range")
		if sawRange == "bytes=5-" {
			w.WriteHeader(http.StatusPartialContent)
			io.WriteString(w, payload[5:])
			return
		}
		io.WriteString(w, payload)
	}))

	var sb strings.Builder
	task := &GetTask{Location: "data.bin", Target: &sb, Offset: 5}
	if err := tr.Get(context.Background(), task); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if sawRange != "bytes=5-" {
		t.Errorf("Range header = %q, want bytes=5-", sawRange)
	}
	if sb.String() != payload[5:] {
		t.Errorf("resumed data = %q, want %q", sb.String(), payload[5:])
	}
}

func TestHTTPPeekUsesHead(t *testing.T) {
	var method string
	tr := newHTTPRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
	}))

	if err := tr.Peek(context.Background(), &PeekTask{Location: "x"}); err != nil {
		t.Fatalf("Peek error: %v", err)
	}
	if method != http.MethodHead {
		t.Errorf("Peek used %s, want HEAD", method)
	}
}

func TestHTTPPut(t *testing.T) {
	var received []byte
	tr := newHTTPRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))

	task := &PutTask{Location: "gid/aid/1/aid-1.pom", Source: strings.NewReader("<project/>"), Size: 10}
	if err := tr.Put(context.Background(), task); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if string(received) != "<project/>" {
		t.Errorf("server received %q", received)
	}
}

func TestHTTPBasicAuth(t *testing.T) {
	var user, pass string
	var ok bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
	}))
	t.Cleanup(server.Close)

	repo := repository.NewRemote("authed", server.URL)
	repo.Auth = &repository.Auth{Username: "deploy", Password: "secret"}
	tr, err := NewHTTPTransporter(repo)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	if err := tr.Get(context.Background(), &GetTask{Location: "x"}); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok || user != "deploy" || pass != "secret" {
		t.Errorf("credentials = %q/%q (%v), want deploy/secret", user, pass, ok)
	}
}
