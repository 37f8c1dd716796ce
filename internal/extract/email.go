// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package extract

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mnako/letters"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

func extractEmail(filePath string) (Result, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, apperr.Fatal(err, "failed to open EML file %s", filePath)
	}
	defer file.Close()

	email, err := letters.ParseEmail(file)
	if err != nil {
		return Result{}, apperr.Fatal(err, "failed to parse EML file %s", filePath)
	}

	var builder strings.Builder
	if email.Headers.Subject != "" {
		builder.WriteString(fmt.Sprintf("Subject: %s\n", email.Headers.Subject))
	}
	if len(email.Headers.From) > 0 {
		from := email.Headers.From[0]
		sender := from.Address
		if from.Name != "" {
			sender = fmt.Sprintf("%s <%s>", from.Name, from.Address)
		}
		builder.WriteString(fmt.Sprintf("Sender: %s\n", sender))
	}
	if !email.Headers.Date.IsZero() {
		builder.WriteString(fmt.Sprintf("Date: %s\n", email.Headers.Date.Format(time.RFC3339)))
	}
	builder.WriteString("\n")

	bodyText := email.Text
	if bodyText == "" {
		bodyText = email.HTML
	}
	if bodyText != "" {
		builder.WriteString(bodyText)
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return Result{}, apperr.Validation("no content extracted from EML: %s", filePath)
	}
	return Result{Text: result, Pages: 1}, nil
}
