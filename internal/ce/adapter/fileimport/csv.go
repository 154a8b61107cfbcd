package fileimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// ErrEmptyFile 文件没有表头
var ErrEmptyFile = errors.New("fileimport: empty file")

var headerCleaner = strings.NewReplacer(
	"\ufeff", "",
	"ï»¿", "",
	"\u00a0", " ",
)

// ReadTable 读取会计软件导出的 CSV
// 编码：UTF-8 (可带 BOM)，否则按 Windows-1252 解码；
// 分隔符：前五行中 ';' 不少于 ',' 时用 ';'。
// 所有单元格按字符串保存，全空的行和列被丢弃。
func ReadTable(r io.Reader) (domain.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.Table{}, fmt.Errorf("ReadTable: read: %w", err)
	}
	content, err := decode(raw)
	if err != nil {
		return domain.Table{}, err
	}
	if strings.TrimSpace(content) == "" {
		return domain.Table{}, ErrEmptyFile
	}

	cr := csv.NewReader(strings.NewReader(content))
	cr.Comma = DetectSeparator(content)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("ReadTable: parse: %w", err)
	}
	if len(records) == 0 {
		return domain.Table{}, ErrEmptyFile
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(headerCleaner.Replace(h))
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		// 字段多于表头的行视为坏行
		if len(rec) > len(header) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		if allBlank(row) {
			continue
		}
		rows = append(rows, row)
	}

	return dropEmptyColumns(domain.Table{Columns: header, Rows: rows}), nil
}

// decode 去掉 BOM；非法 UTF-8 时按 Windows-1252 解码
func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	b, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("ReadTable: decode windows-1252: %w", err)
	}
	return string(b), nil
}

// DetectSeparator 看前五行的 ';' 与 ',' 数量
func DetectSeparator(content string) rune {
	lines := strings.SplitN(content, "\n", 6)
	if len(lines) > 5 {
		lines = lines[:5]
	}
	head := strings.Join(lines, "\n")
	if strings.Count(head, ";") >= strings.Count(head, ",") {
		return ';'
	}
	return ','
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func dropEmptyColumns(t domain.Table) domain.Table {
	if len(t.Rows) == 0 {
		return t
	}
	keep := make([]int, 0, len(t.Columns))
	for c := range t.Columns {
		for _, row := range t.Rows {
			if strings.TrimSpace(row[c]) != "" {
				keep = append(keep, c)
				break
			}
		}
	}
	if len(keep) == len(t.Columns) {
		return t
	}

	out := domain.Table{Columns: make([]string, len(keep)), Rows: make([][]string, len(t.Rows))}
	for i, c := range keep {
		out.Columns[i] = t.Columns[c]
	}
	for r, row := range t.Rows {
		nr := make([]string, len(keep))
		for i, c := range keep {
			nr[i] = row[c]
		}
		out.Rows[r] = nr
	}
	return out
}
