// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package extract

import (
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// extractPDF reads text from a PDF using go-fitz (MuPDF), carrying the
// real page count through to Result.Pages.
func extractPDF(filePath string) (Result, error) {
	doc, err := fitz.New(filePath)
	if err != nil {
		return Result{}, apperr.Fatal(err, "failed to open PDF %s", filePath)
	}
	defer doc.Close()

	var builder strings.Builder
	numPages := doc.NumPage()

	for i := 0; i < numPages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
		if i < numPages-1 {
			builder.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return Result{}, apperr.Validation("no text extracted from PDF: %s", filePath)
	}
	return Result{Text: text, Pages: numPages}, nil
}
