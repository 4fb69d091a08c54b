package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the plain text of every page. Pages without text still count.
// The pdf reader panics on some malformed input, so panics are reported as extraction failures.
func extractPDF(data []byte) (res *Result, err error) {
	if len(data) == 0 {
		return nil, failed("pdf", errors.New("empty file"))
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, failed("pdf", fmt.Errorf("parser panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, failed("pdf", err)
	}

	var b pageBuilder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			b.add("")
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, failed("pdf", fmt.Errorf("page %d: %w", i, err))
		}
		b.add(text)
	}
	return b.result(), nil
}
