package fileimport

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectSeparator(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    rune
	}{
		{"semicolon", "Data;Conto;Importo\n01/01/2024;600;1,5\n", ';'},
		{"comma", "Data,Conto,Importo\n01/01/2024,600,15\n", ','},
		{"tie prefers semicolon", "a;b,c\n", ';'},
		{"only first five lines", "a;b\n1;2\n3;4\n5;6\n7;8\n,,,,,,,,,,,,,\n", ';'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectSeparator(tt.content); got != tt.want {
				t.Errorf("DetectSeparator() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadTable(t *testing.T) {
	content := "\xef\xbb\xbfData ;Conto;Importo;Vuota\u00a0\n" +
		"15/01/2024;600;1.000,50;\n" +
		";;;\n" +
		"16/01/2024;700\n" +
		"17/01/2024;700;5;;extra;cells\n"

	tbl, err := ReadTable(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	wantCols := []string{"Data", "Conto", "Importo"}
	if strings.Join(tbl.Columns, "|") != strings.Join(wantCols, "|") {
		t.Fatalf("columns = %q, want %q", tbl.Columns, wantCols)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank and overlong rows dropped)", len(tbl.Rows))
	}
	if tbl.Rows[0][2] != "1.000,50" {
		t.Errorf("amount cell = %q, want raw string", tbl.Rows[0][2])
	}
	if tbl.Rows[1][2] != "" {
		t.Errorf("short row not padded: %q", tbl.Rows[1])
	}
}

func TestReadTableWindows1252(t *testing.T) {
	// "Attività" 以 Windows-1252 编码 (0xE0)
	content := "Conto;Descrizione\n600;Attivit\xe0\n"
	tbl, err := ReadTable(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := tbl.Rows[0][1]; got != "Attività" {
		t.Errorf("decoded = %q, want %q", got, "Attività")
	}
}

func TestReadTableHeaderOnly(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader("Data;Conto;Importo\n"))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(tbl.Columns) != 3 || !tbl.IsEmpty() {
		t.Errorf("table = %+v", tbl)
	}
}

func TestReadTableEmpty(t *testing.T) {
	_, err := ReadTable(strings.NewReader("  \n"))
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}
