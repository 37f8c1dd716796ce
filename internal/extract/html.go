// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package extract

import (
	"os"

	"github.com/PuerkitoBio/goquery"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

func extractHTML(filePath string) (Result, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, apperr.Fatal(err, "failed to open HTML file %s", filePath)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return Result{}, apperr.Fatal(err, "failed to parse HTML %s", filePath)
	}

	doc.Find("script, style, noscript").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Text()
	if text == "" {
		return Result{}, apperr.Validation("no text extracted from HTML: %s", filePath)
	}
	return Result{Text: text, Pages: 1}, nil
}
