package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/ragchat-backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func serveBytes(t *testing.T, body []byte, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractTextPlainText(t *testing.T) {
	srv := serveBytes(t, []byte("hello from a text file"), http.StatusOK)
	ex := NewExtractor(testLogger(t))

	got, err := ex.ExtractText(context.Background(), srv.URL, "text/plain")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "hello from a text file" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextCSV(t *testing.T) {
	csvBody := "name,age\nalice,30\nbob,25\n"
	srv := serveBytes(t, []byte(csvBody), http.StatusOK)
	ex := NewExtractor(testLogger(t))

	got, err := ex.ExtractText(context.Background(), srv.URL, "text/csv")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	want := "name, age\nalice, 30\nbob, 25"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractTextDocx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	doc, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	_, _ = doc.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	srv := serveBytes(t, buf.Bytes(), http.StatusOK)
	ex := NewExtractor(testLogger(t))

	got, err := ex.ExtractText(context.Background(), srv.URL,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(got, "First paragraph.") {
		t.Fatalf("missing first paragraph in %q", got)
	}
	if !strings.Contains(got, "Second paragraph.") {
		t.Fatalf("runs not joined within a paragraph: %q", got)
	}
	if !strings.Contains(got, "First paragraph.\n") {
		t.Fatalf("paragraph boundary not preserved as newline: %q", got)
	}
}

func TestExtractTextImageRequiresClientOCR(t *testing.T) {
	ex := NewExtractor(testLogger(t))
	// Images must short-circuit before any fetch happens.
	_, err := ex.ExtractText(context.Background(), "http://127.0.0.1:1/unreachable", "image/png")
	if !errors.Is(err, ErrClientOCRRequired) {
		t.Fatalf("want ErrClientOCRRequired, got %v", err)
	}
}

func TestExtractTextUnsupportedType(t *testing.T) {
	srv := serveBytes(t, []byte("binary"), http.StatusOK)
	ex := NewExtractor(testLogger(t))

	_, err := ex.ExtractText(context.Background(), srv.URL, "application/zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("want ErrUnsupportedType, got %v", err)
	}
}

func TestExtractTextFetchFailure(t *testing.T) {
	srv := serveBytes(t, []byte("gone"), http.StatusNotFound)
	ex := NewExtractor(testLogger(t))

	_, err := ex.ExtractText(context.Background(), srv.URL, "text/plain")
	if err == nil {
		t.Fatalf("expected error for http 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

func TestExtractTextEmptyBody(t *testing.T) {
	srv := serveBytes(t, nil, http.StatusOK)
	ex := NewExtractor(testLogger(t))

	_, err := ex.ExtractText(context.Background(), srv.URL, "text/plain")
	if err == nil {
		t.Fatalf("expected error for empty download body")
	}
	if !strings.Contains(err.Error(), "empty body") {
		t.Fatalf("error should name the empty body: %v", err)
	}
}

func TestExtractTextCorruptPDF(t *testing.T) {
	srv := serveBytes(t, []byte("not a pdf at all"), http.StatusOK)
	ex := NewExtractor(testLogger(t))

	_, err := ex.ExtractText(context.Background(), srv.URL, "application/pdf")
	if err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}
