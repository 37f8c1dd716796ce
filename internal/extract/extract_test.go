// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

func TestExtractTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, err := Extract(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("expected 'hello world', got %q", result.Text)
	}
	if result.Pages != 1 {
		t.Errorf("expected 1 page, got %d", result.Pages)
	}
}

func TestExtractEmptyTextFileIsValidationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	_, err := Extract(path)
	if err == nil {
		t.Fatal("expected error for empty file")
	}
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected Validation error, got %v", apperr.KindOf(err))
	}
}

func TestExtractUnsupportedExtensionIsValidationError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")
	if err := os.WriteFile(path, []byte("not a real zip"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	_, err := Extract(path)
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected Validation error, got %v", apperr.KindOf(err))
	}
}

func TestIsSupported(t *testing.T) {
	cases := map[string]bool{
		"file.pdf": true, "file.docx": true, "file.txt": true,
		"file.md": true, "file.xlsx": true, "file.html": true,
		"file.eml": true, "file.zip": false, "file.exe": false,
	}
	for name, want := range cases {
		if got := IsSupported(name); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsTemporary(t *testing.T) {
	cases := map[string]bool{
		"~$doc.docx": true, "._doc.docx": true, "doc.tmp": true,
		"report.pdf": false,
	}
	for name, want := range cases {
		if got := IsTemporary(name); got != want {
			t.Errorf("IsTemporary(%q) = %v, want %v", name, got, want)
		}
	}
}
