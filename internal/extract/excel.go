// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// extractExcel flattens each sheet's rows into "Header: Value" lines
// (a "markdownification" strategy), one sheet per Result.Pages unit.
func extractExcel(filePath string) (Result, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return Result{}, apperr.Fatal(err, "failed to open Excel file %s", filePath)
	}
	defer f.Close()

	var builder strings.Builder
	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return Result{}, apperr.Validation("no sheets found in Excel file: %s", filePath)
	}

	for sheetIdx, sheetName := range sheetList {
		if sheetIdx > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))

		rows, err := f.GetRows(sheetName)
		if err != nil {
			builder.WriteString(fmt.Sprintf("(unable to read sheet %s: %v)\n", sheetName, err))
			continue
		}
		if len(rows) == 0 {
			continue
		}

		headers := rows[0]
		if len(headers) == 0 {
			continue
		}

		for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
			row := rows[rowIdx]
			var parts []string
			for colIdx, header := range headers {
				if colIdx >= len(row) || row[colIdx] == "" {
					continue
				}
				value := strings.TrimSpace(row[colIdx])
				if value == "" {
					continue
				}
				headerName := strings.TrimSpace(header)
				if headerName == "" {
					headerName = fmt.Sprintf("Column %d", colIdx+1)
				}
				parts = append(parts, fmt.Sprintf("%s: %s", headerName, value))
			}
			if len(parts) > 0 {
				builder.WriteString(fmt.Sprintf("Row %d: %s\n", rowIdx+1, strings.Join(parts, ", ")))
			}
		}
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return Result{}, apperr.Validation("no content extracted from Excel file: %s", filePath)
	}
	return Result{Text: result, Pages: len(sheetList)}, nil
}
