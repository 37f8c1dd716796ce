// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package extract

import (
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// docxCharsPerPage approximates a printed page so DOCX files (which
// carry no page metadata in this library) still contribute a useful
// page count for chunk attribution.
const docxCharsPerPage = 3000

func extractDOCX(filePath string) (Result, error) {
	doc, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return Result{}, apperr.Fatal(err, "failed to open DOCX %s", filePath)
	}
	defer doc.Close()

	text := strings.TrimSpace(doc.Editable().GetContent())
	if text == "" {
		return Result{}, apperr.Validation("no text extracted from DOCX: %s", filePath)
	}

	pages := (len(text) / docxCharsPerPage) + 1
	return Result{Text: text, Pages: pages}, nil
}
