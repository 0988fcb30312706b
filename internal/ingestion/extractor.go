package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/yungbote/ragchat-backend/internal/logger"
)

var (
	// ErrUnsupportedType is returned for MIME types the pipeline cannot read.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrClientOCRRequired marks image uploads: their text arrives from
	// client-side OCR, never from server extraction.
	ErrClientOCRRequired = errors.New("image text extraction happens on the client")
)

const maxDownloadBytes = 64 << 20

// Extractor downloads an uploaded document and pulls plain text out of it.
type Extractor interface {
	ExtractText(ctx context.Context, fileURL string, fileType string) (string, error)
}

type extractor struct {
	log        *logger.Logger
	httpClient *http.Client
}

func NewExtractor(log *logger.Logger) Extractor {
	return &extractor{
		log:        log.With("service", "Extractor"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (e *extractor) ExtractText(ctx context.Context, fileURL string, fileType string) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(fileType))

	if strings.HasPrefix(mime, "image/") {
		return "", ErrClientOCRRequired
	}

	data, err := e.download(ctx, fileURL)
	if err != nil {
		return "", err
	}

	switch {
	case strings.Contains(mime, "pdf"):
		return extractPDF(data)
	case strings.Contains(mime, "wordprocessingml"), strings.Contains(mime, "msword"):
		return extractDocx(data)
	case strings.Contains(mime, "csv"):
		return extractCSV(data)
	case strings.HasPrefix(mime, "text/"), strings.Contains(mime, "json"), strings.Contains(mime, "markdown"):
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

func (e *extractor) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch file: http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("file exceeds %d byte extraction limit", maxDownloadBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to fetch file: empty body")
	}
	return data, nil
}

// extractPDF reads page by page so one broken page does not lose the rest of
// the document. A pdf where no page parses at all is an error, not an empty
// success.
func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	parsed := 0
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		parsed++
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	if parsed == 0 {
		return "", fmt.Errorf("failed to read pdf text: no parsable pages")
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDocx pulls the w:t runs out of word/document.xml, inserting a
// newline at each paragraph end.
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("failed to open docx document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("docx missing word/document.xml")
	}
	defer docXML.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(docXML)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func extractCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var rows []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse csv: %w", err)
		}
		rows = append(rows, strings.Join(record, ", "))
	}
	return strings.Join(rows, "\n"), nil
}
