package resume

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const docxBody = "word/document.xml"

// Text returns the plain text of an upload. The container is sniffed from the
// content first, the file extension only decides how plain text is treated.
func Text(upload Upload) (string, error) {
	data := upload.Content
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("resume %q is empty", upload.Filename)
	}

	switch {
	case isPDF(data):
		return pdfText(upload.Filename, data)
	case isZip(data):
		return docxText(upload.Filename, data)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(upload.Filename)), ".")
	switch ext {
	case "", "txt", "md", "text":
		return string(data), nil
	case "pdf":
		return "", fmt.Errorf("%w: %q has no PDF header", ErrUnsupportedFormat, upload.Filename)
	case "docx":
		return "", fmt.Errorf("%w: %q is not a zip container", ErrUnsupportedFormat, upload.Filename)
	default:
		// Legacy binary .doc lands here as well.
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func isPDF(b []byte) bool {
	return bytes.HasPrefix(b, []byte("%PDF-"))
}

func isZip(b []byte) bool {
	return bytes.HasPrefix(b, []byte("PK\x03\x04"))
}

func pdfText(name string, data []byte) (text string, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading pdf %q: %v", name, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading pdf %q: %w", name, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text %q: %w", name, err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("extracting pdf text %q: %w", name, err)
	}

	if strings.TrimSpace(string(b)) == "" {
		return "", fmt.Errorf("pdf %q has no extractable text", name)
	}
	return string(b), nil
}

// docxText keeps one line per paragraph so that section scanning still works.
func docxText(name string, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading docx %q: %w", name, err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%w: %q is not a word document", ErrUnsupportedFormat, name)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("reading docx %q: %w", name, err)
	}
	defer rc.Close()

	var out strings.Builder
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing docx %q: %w", name, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				var v string
				if err := dec.DecodeElement(&v, &el); err != nil {
					return "", fmt.Errorf("parsing docx %q: %w", name, err)
				}
				out.WriteString(v)
			case "tab":
				out.WriteString("\t")
			case "br":
				out.WriteString("\n")
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				out.WriteString("\n")
			}
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("docx %q has no text", name)
	}
	return text, nil
}
