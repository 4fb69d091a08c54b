// Package extract turns uploaded document bytes into plain text with page boundaries.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailed  = errors.New("document extraction failed")
)

const (
	MIMEPDF       = "application/pdf"
	MIMEXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMECSV       = "text/csv"
	MIMECSVAlt    = "application/csv"
	MIMEText      = "text/plain"
	MIMEMarkdown  = "text/markdown"
	MIMEDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeOctet     = "application/octet-stream"
	mimeZip       = "application/zip"
	pageSeparator = "\n\n"
)

type Kind string

const (
	KindPDF         Kind = "pdf"
	KindSpreadsheet Kind = "spreadsheet"
	KindCSV         Kind = "csv"
	KindText        Kind = "text"
	KindWord        Kind = "word"
)

var kindByMIME = map[string]Kind{
	MIMEPDF:      KindPDF,
	MIMEXLSX:     KindSpreadsheet,
	MIMECSV:      KindCSV,
	MIMECSVAlt:   KindCSV,
	MIMEText:     KindText,
	MIMEMarkdown: KindText,
	MIMEDOCX:     KindWord,
}

var mimeByExtension = map[string]string{
	".pdf":  MIMEPDF,
	".xlsx": MIMEXLSX,
	".csv":  MIMECSV,
	".txt":  MIMEText,
	".md":   MIMEMarkdown,
	".docx": MIMEDOCX,
}

// Result is the extracted text of one document.
// PageOffsets[i] is the byte offset in Text where page (or sheet) i+1 starts.
// It is empty for formats without pages.
type Result struct {
	Text        string
	PageCount   int
	PageOffsets []int
}

// KindOf reports the document kind for a MIME type. Parameters such as charset are ignored.
func KindOf(mimeType string) (Kind, bool) {
	kind, ok := kindByMIME[normalizeMIME(mimeType)]
	return kind, ok
}

// Supported reports whether mimeType can be extracted.
func Supported(mimeType string) bool {
	_, ok := KindOf(mimeType)
	return ok
}

// SupportedFile reports whether name carries the extension of an extractable format.
func SupportedFile(name string) bool {
	_, ok := mimeByExtension[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ResolveMIME returns declared unless it is empty or generic, in which case the type is sniffed.
func ResolveMIME(declared string, data []byte, filename string) string {
	declared = normalizeMIME(declared)
	if declared != "" && declared != mimeOctet {
		return declared
	}
	return DetectMIME(data, filename)
}

// DetectMIME sniffs the content type, preferring the file extension when sniffing is inconclusive.
func DetectMIME(data []byte, filename string) string {
	byExt := mimeByExtension[strings.ToLower(filepath.Ext(filename))]
	detected := normalizeMIME(mimetype.Detect(data).String())
	switch {
	case byExt != "" && (detected == mimeOctet || detected == mimeZip || detected == MIMEText):
		return byExt
	case Supported(detected):
		return detected
	case byExt != "":
		return byExt
	default:
		return detected
	}
}

// Extract produces the text of data according to mimeType. It never modifies data.
func Extract(data []byte, mimeType string) (*Result, error) {
	kind, ok := KindOf(mimeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	switch kind {
	case KindPDF:
		return extractPDF(data)
	case KindSpreadsheet:
		return extractSpreadsheet(data)
	case KindCSV:
		return extractCSV(data)
	case KindWord:
		return extractDOCX(data)
	default:
		return &Result{Text: decodeText(data)}, nil
	}
}

func normalizeMIME(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func failed(format string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExtractionFailed, format, err)
}

// pageBuilder joins page texts and records where each page starts.
type pageBuilder struct {
	sb      strings.Builder
	offsets []int
}

func (b *pageBuilder) add(text string) {
	if len(b.offsets) > 0 {
		b.sb.WriteString(pageSeparator)
	}
	b.offsets = append(b.offsets, b.sb.Len())
	b.sb.WriteString(text)
}

func (b *pageBuilder) result() *Result {
	return &Result{
		Text:        b.sb.String(),
		PageCount:   len(b.offsets),
		PageOffsets: b.offsets,
	}
}
