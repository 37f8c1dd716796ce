// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Structured filter application for the keyword/SQL path, mirroring
// original_source's keyword.py _build_where_clause against SQLite
// instead of Postgres.
package search

import "strings"

// buildWhereClause returns additional "AND ..." SQL fragments and their
// positional args for the Filters on a Query, to be appended after the
// base LIKE predicate in KeywordEngine.Search.
func buildWhereClause(f *Filters) (string, []interface{}) {
	if f == nil {
		return "", nil
	}

	var clauses []string
	var args []interface{}

	if f.DateRange != nil {
		if f.DateRange.Start != nil {
			clauses = append(clauses, "d.created_at >= ?")
			args = append(args, f.DateRange.Start.Format("2006-01-02T15:04:05Z07:00"))
		}
		if f.DateRange.End != nil {
			clauses = append(clauses, "d.created_at <= ?")
			args = append(args, f.DateRange.End.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	if len(f.ProjectIDs) > 0 {
		clauses = append(clauses, "d.project_id IN ("+placeholders(len(f.ProjectIDs))+")")
		for _, p := range f.ProjectIDs {
			args = append(args, p)
		}
	}
	if len(f.FileTypes) > 0 {
		clauses = append(clauses, "d.mime_type IN ("+placeholders(len(f.FileTypes))+")")
		for _, ft := range f.FileTypes {
			args = append(args, ft)
		}
	}
	if len(f.Tags) > 0 {
		var tagClauses []string
		for _, tag := range f.Tags {
			tagClauses = append(tagClauses, "d.tags LIKE ?")
			args = append(args, "%"+tag+"%")
		}
		clauses = append(clauses, "("+strings.Join(tagClauses, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}
