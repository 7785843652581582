package main

import "strings"

var mimeTypes = map[string]ContentType{
	"html": ContentTypeHTML,
	"htm":  ContentTypeHTML,
	"css":  "text/css; charset=utf-8",
	"js":   "application/javascript; charset=utf-8",
	"json": ContentTypeApplicationJSON,
	"txt":  ContentTypePlainText,
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"pdf":  "application/pdf",
	"mp4":  "video/mp4",
}

// mimeType guesses a content type from the extension after the last dot.
func mimeType(path string) ContentType {
	p := strings.LastIndexByte(path, '.')
	if p < 0 {
		return ContentTypeOctetStream
	}
	if contentType, ok := mimeTypes[strings.ToLower(path[p+1:])]; ok {
		return contentType
	}
	return ContentTypeOctetStream
}
