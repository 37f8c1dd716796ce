// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package classify implements the File Type Classifier and Image Quality
// Classifier: content-based type detection with a fixed mime-to-route
// table, and the fast image-quality heuristics that drive OCR routing.
package classify

import (
	"mime"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Category is the coarse bucket a file falls into, driving which pool
// family it is routed to.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryImage    Category = "image"
	CategoryAudio    Category = "audio"
	CategoryArchive  Category = "archive"
	CategoryUnknown  Category = "unknown"
)

// Method records which detection tier produced the mime type.
type Method string

const (
	MethodMagic     Method = "magic"
	MethodLibmagic  Method = "libmagic"
	MethodExtension Method = "extension"
)

// FileInfo is the classifier's output for one ingested file.
type FileInfo struct {
	MimeType          string
	Confidence        float64
	Method            Method
	Category          Category
	IsArchive         bool
	Route             []string
	ExtensionFidelity bool // whether the extension agrees with the detected mime type
}

// routeEntry is one row of the fixed mime routing table.
type routeEntry struct {
	category  Category
	isArchive bool
	route     []string
}

// routingTable maps exact mime types (and, via prefix below, mime families)
// to category and pipeline, per spec.md §4.4's representative table.
var routingTable = map[string]routeEntry{
	"application/pdf":            {CategoryDocument, false, []string{"cpu-extract"}},
	"application/msword":         {CategoryDocument, false, []string{"cpu-extract"}},
	"application/vnd.oasis.opendocument.text": {CategoryDocument, false, []string{"cpu-extract"}},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {CategoryDocument, true, []string{"cpu-extract"}},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {CategoryDocument, true, []string{"cpu-extract"}},
	"application/vnd.ms-excel":   {CategoryDocument, false, []string{"cpu-extract"}},
	"text/csv":                   {CategoryDocument, false, []string{"cpu-extract"}},
	"text/plain":                 {CategoryDocument, false, []string{"cpu-light"}},
	"text/markdown":              {CategoryDocument, false, []string{"cpu-light"}},
	"application/json":           {CategoryDocument, false, []string{"cpu-light"}},
	"message/rfc822":             {CategoryDocument, false, []string{"cpu-extract", "RECURSE_ATTACHMENTS"}},
	"application/vnd.ms-outlook": {CategoryDocument, false, []string{"cpu-extract", "RECURSE_ATTACHMENTS"}},
	"application/zip":            {CategoryArchive, true, []string{"cpu-archive", "RECURSE"}},
	"application/x-tar":          {CategoryArchive, true, []string{"cpu-archive", "RECURSE"}},
	"application/gzip":           {CategoryArchive, true, []string{"cpu-archive", "RECURSE"}},
	"application/x-7z-compressed": {CategoryArchive, true, []string{"cpu-archive", "RECURSE"}},
	"application/vnd.rar":        {CategoryArchive, true, []string{"cpu-archive", "RECURSE"}},
	"application/java-archive":   {CategoryDocument, true, []string{"cpu-extract"}}, // office-like container: flagged archive, but not routed through cpu-archive
}

// Classify detects the file's type and resolves its route. It tries
// content-based magic detection first, falls back to shelling out to the
// `file` utility (the libmagic tier — no native Go libmagic binding is
// grounded in the example pack), and finally falls back to the file
// extension.
func Classify(path string) (*FileInfo, error) {
	mimeType, confidence, method := detectMagic(path)
	if mimeType == "" {
		mimeType, confidence, method = detectLibmagic(path)
	}
	if mimeType == "" {
		mimeType, confidence, method = detectExtension(path)
	}

	info := &FileInfo{
		MimeType:   mimeType,
		Confidence: confidence,
		Method:     method,
	}
	info.ExtensionFidelity = extensionAgrees(path, mimeType)

	if confidence < 0.3 || mimeType == "application/octet-stream" || mimeType == "" {
		info.Category = CategoryUnknown
		info.Route = nil
		return info, nil
	}

	info.Category, info.Route, info.IsArchive = resolveRoute(mimeType)
	return info, nil
}

func detectMagic(path string) (string, float64, Method) {
	mt, err := mimetype.DetectFile(path)
	if err != nil || mt == nil {
		return "", 0, ""
	}
	got := mt.String()
	if semi := strings.IndexByte(got, ';'); semi >= 0 {
		got = got[:semi]
	}
	if got == "application/octet-stream" || got == "" {
		return "", 0, ""
	}
	return got, 0.9, MethodMagic
}

// detectLibmagic shells out to the `file` CLI where present. This mirrors
// the "prefer native magic, fall back to libmagic" precedence from
// spec.md §4.4 without vendoring a cgo libmagic binding.
func detectLibmagic(path string) (string, float64, Method) {
	out, err := exec.Command("file", "--mime-type", "-b", path).Output()
	if err != nil {
		return "", 0, ""
	}
	got := strings.TrimSpace(string(out))
	if got == "" || got == "application/octet-stream" {
		return "", 0, ""
	}
	return got, 0.6, MethodLibmagic
}

func detectExtension(path string) (string, float64, Method) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "application/octet-stream", 0.1, MethodExtension
	}
	got := mime.TypeByExtension(ext)
	if semi := strings.IndexByte(got, ';'); semi >= 0 {
		got = got[:semi]
	}
	if got == "" {
		if m, ok := extFallback[ext]; ok {
			got = m
		} else {
			return "application/octet-stream", 0.1, MethodExtension
		}
	}
	return got, 0.4, MethodExtension
}

var extFallback = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".eml":  "message/rfc822",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".7z":   "application/x-7z-compressed",
	".rar":  "application/vnd.rar",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".tiff": "image/tiff",
}

func resolveRoute(mimeType string) (Category, []string, bool) {
	if strings.HasPrefix(mimeType, "image/") {
		return CategoryImage, []string{"cpu-light:classify", "ROUTE_BY_QUALITY"}, false
	}
	if strings.HasPrefix(mimeType, "audio/") {
		return CategoryAudio, []string{"gpu-whisper"}, false
	}
	if entry, ok := routingTable[mimeType]; ok {
		return entry.category, append([]string(nil), entry.route...), entry.isArchive
	}
	return CategoryUnknown, nil, false
}

// extensionAgrees is a coarse extension-vs-mime fidelity check: does the
// file's extension map to a mime family consistent with the detected
// mime type's top-level type.
func extensionAgrees(path, detectedMime string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	expected, ok := extFallback[ext]
	if !ok {
		return true // no expectation to violate
	}
	detTop := detectedMime
	if slash := strings.IndexByte(detectedMime, '/'); slash >= 0 {
		detTop = detectedMime[:slash]
	}
	expTop := expected
	if slash := strings.IndexByte(expected, '/'); slash >= 0 {
		expTop = expected[:slash]
	}
	return detTop == expTop || expected == detectedMime
}
