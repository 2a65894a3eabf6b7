package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extensions includes .doc: uploads with that extension are parsed as OOXML.
func (e *Extractor) Extensions() []string {
	return []string{".docx", ".doc"}
}

// Extract returns non-empty paragraphs followed by table rows ("a | b"),
// separated by blank lines.
func (e *Extractor) Extract(_ context.Context, raw []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("failed to extract text from DOCX: %w", err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}
		return parseDocumentXML(content)
	}
	return "", fmt.Errorf("failed to extract text from DOCX: word/document.xml not found")
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
		Tables     []table     `xml:"tbl"`
	} `xml:"body"`
}

type paragraph struct {
	Runs       []run `xml:"r"`
	Hyperlinks []struct {
		Runs []run `xml:"r"`
	} `xml:"hyperlink"`
}

type run struct {
	Text []string `xml:"t"`
}

type table struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []paragraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

func (p paragraph) text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		for _, t := range r.Text {
			b.WriteString(t)
		}
	}
	for _, link := range p.Hyperlinks {
		for _, r := range link.Runs {
			for _, t := range r.Text {
				b.WriteString(t)
			}
		}
	}
	return b.String()
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var parts []string
	for _, p := range doc.Body.Paragraphs {
		if text := p.text(); strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			var cells []string
			for _, cell := range row.Cells {
				var lines []string
				for _, p := range cell.Paragraphs {
					lines = append(lines, p.text())
				}
				if text := strings.TrimSpace(strings.Join(lines, "\n")); text != "" {
					cells = append(cells, text)
				}
			}
			if len(cells) > 0 {
				parts = append(parts, strings.Join(cells, " | "))
			}
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
