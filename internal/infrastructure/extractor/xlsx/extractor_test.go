package xlsx

import (
	"context"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractRendersSheets(t *testing.T) {
	book := excelize.NewFile()
	defer book.Close()
	if err := book.SetCellValue("Sheet1", "A1", "Plan"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	_ = book.SetCellValue("Sheet1", "B1", "Price")
	_ = book.SetCellValue("Sheet1", "A2", "Pro")
	_ = book.SetCellValue("Sheet1", "B2", 42)
	if _, err := book.NewSheet("Empty"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	got, err := NewExtractor().Extract(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "Sheet: Sheet1\nPlan | Price\nPro | 42"
	if got != want {
		t.Fatalf("unexpected text %q, want %q", got, want)
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	if _, err := NewExtractor().Extract(context.Background(), []byte("nope")); err == nil {
		t.Fatalf("expected error")
	}
}
