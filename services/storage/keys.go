package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client-supplied name to a safe ASCII basename.
// It returns "" when nothing usable remains.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if len(name) > 150 {
		ext := path.Ext(name)
		name = name[:150-len(ext)] + ext
	}
	return name
}

// Ext returns the lowercased extension without the dot
func Ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// GenerateKey builds a unique key "<prefix>/<uuid>_<secure name>"
func GenerateKey(prefix, filename string) string {
	safe := SecureFilename(filename)
	if safe == "" {
		safe = "file"
		if ext := Ext(filename); ext != "" {
			safe += "." + ext
		}
	}
	return fmt.Sprintf("%s/%s_%s", prefix, uuid.New().String(), safe)
}

// ContentType maps a filename to the MIME type served with it
func ContentType(filename string) string {
	switch Ext(filename) {
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "ppt":
		return "application/vnd.ms-powerpoint"
	case "pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case "txt":
		return "text/plain; charset=utf-8"
	case "zip":
		return "application/zip"
	case "rar":
		return "application/vnd.rar"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return defaultContentType
	}
}
