package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractSpreadsheet serializes every sheet as a pipe table. Each sheet counts as a page.
func extractSpreadsheet(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, failed("spreadsheet", err)
	}
	defer f.Close()

	var b pageBuilder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, failed("spreadsheet", err)
		}
		var sb strings.Builder
		sb.WriteString("## Sheet: ")
		sb.WriteString(sheet)
		sb.WriteString("\n\n")
		writeTable(&sb, rows)
		b.add(strings.TrimRight(sb.String(), "\n"))
	}
	return b.result(), nil
}

// extractCSV serializes rows as a pipe table. CSV has no pages.
func extractCSV(data []byte) (*Result, error) {
	r := csv.NewReader(strings.NewReader(decodeText(data)))
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, failed("csv", err)
		}
		rows = append(rows, record)
	}

	var sb strings.Builder
	writeTable(&sb, rows)
	return &Result{Text: strings.TrimRight(sb.String(), "\n")}, nil
}

// writeTable renders rows as a markdown table; the first non-empty row is the header.
func writeTable(sb *strings.Builder, rows [][]string) {
	rows = dropEmptyRows(rows)
	if len(rows) == 0 {
		return
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	cellEscaper := strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")
	writeRow := func(row []string) {
		sb.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = cellEscaper.Replace(strings.TrimSpace(row[i]))
			}
			sb.WriteString(" ")
			sb.WriteString(cell)
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(rows[0])
	sb.WriteString("|")
	sb.WriteString(strings.Repeat(" --- |", width))
	sb.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
