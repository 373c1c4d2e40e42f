// Package extract converts uploaded files into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrDecode is returned for text uploads that are not valid UTF-8.
	ErrDecode = errors.New("file content is not valid UTF-8")
	// ErrUnsupportedType is returned for anything other than .txt or .pdf.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Extract returns the text content of an uploaded file. Plain text is
// decoded as UTF-8; PDFs are extracted page by page and concatenated in page
// order, with pages that carry no extractable text contributing an empty
// segment rather than failing the document.
func Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return extractText(data)
	case ".pdf":
		return extractPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}
}

func extractText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrDecode
	}
	return string(data), nil
}

func extractPDF(data []byte) (_ string, err error) {
	// The pdf library panics on some malformed inputs; treat that the same
	// as any other unreadable upload.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", ErrDecode, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Page with no extractable text contributes nothing.
			continue
		}
		if i > 1 && sb.Len() > 0 && text != "" {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}
