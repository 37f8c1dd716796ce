// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package extract implements an extract(path, type) -> {text, pages}
// contract. Adapted from the internal/parser package: same
// extension-dispatch idiom and the same per-format decoder libraries,
// retargeted to return a Result carrying a page count alongside the
// text so downstream chunking can attach page numbers to chunks.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// Result is one document's extracted content.
type Result struct {
	Text  string
	Pages int
}

var supportedExtensions = []string{".pdf", ".docx", ".txt", ".md", ".xlsx", ".xls", ".html", ".htm", ".eml"}

// Extract routes a file to the decoder matching its extension and
// returns its text and page count.
func Extract(filePath string) (Result, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	var (
		result Result
		err    error
	)

	switch ext {
	case ".pdf":
		result, err = extractPDF(filePath)
	case ".docx":
		result, err = extractDOCX(filePath)
	case ".txt", ".md":
		result, err = extractText(filePath)
	case ".xlsx", ".xls":
		result, err = extractExcel(filePath)
	case ".html", ".htm":
		result, err = extractHTML(filePath)
	case ".eml":
		result, err = extractEmail(filePath)
	default:
		return Result{}, apperr.Validation("unsupported file type: %s", ext)
	}
	if err != nil {
		return Result{}, err
	}
	if result.Pages < 1 {
		result.Pages = 1
	}
	return result, nil
}

// IsSupported reports whether filePath's extension has a decoder.
func IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, s := range supportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// IsTemporary reports whether filePath looks like an editor lock file
// or OS-generated temp artifact (e.g. "~$doc.docx", "._doc", "doc.tmp")
// rather than real intake content.
func IsTemporary(filePath string) bool {
	base := filepath.Base(filePath)
	switch {
	case strings.HasPrefix(base, "~$"):
		return true
	case strings.HasPrefix(base, "._"):
		return true
	case strings.HasSuffix(base, ".tmp"):
		return true
	default:
		return false
	}
}
