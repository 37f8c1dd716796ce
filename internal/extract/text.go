// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package extract

import (
	"os"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

func extractText(filePath string) (Result, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return Result{}, apperr.Fatal(err, "failed to read text file %s", filePath)
	}

	text := string(content)
	if text == "" {
		return Result{}, apperr.Validation("no content in text file: %s", filePath)
	}
	return Result{Text: text, Pages: 1}, nil
}
