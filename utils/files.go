package utils

import (
	"crypto/rand"
	"encoding/hex"
	"mime"
	"path/filepath"
	"strings"
)

func NewRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// AttachmentDisposition builds a Content-Disposition header that makes the
// browser save the response under filename.
func AttachmentDisposition(filename string) string {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "." || filename == string(filepath.Separator) {
		filename = "download"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
