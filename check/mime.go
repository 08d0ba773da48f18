package check

import (
	"mime"
	"strings"
)

// knownTypes supplements the platform MIME table, which differs between
// hosts, so that common research-data formats are accepted everywhere.
var knownTypes = map[string]struct{}{}

func init() {
	for _, t := range []string{
		"application/gzip",
		"application/json",
		"application/ld+json",
		"application/msword",
		"application/octet-stream",
		"application/pdf",
		"application/postscript",
		"application/rtf",
		"application/vnd.ms-excel",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/x-hdf5",
		"application/x-ipynb+json",
		"application/x-netcdf",
		"application/x-sh",
		"application/x-tar",
		"application/xml",
		"application/yaml",
		"application/zip",
		"audio/mpeg",
		"audio/wav",
		"image/bmp",
		"image/gif",
		"image/jpeg",
		"image/png",
		"image/svg+xml",
		"image/tiff",
		"image/webp",
		"text/css",
		"text/csv",
		"text/html",
		"text/javascript",
		"text/markdown",
		"text/plain",
		"text/tab-separated-values",
		"text/x-python",
		"text/xml",
		"video/mp4",
		"video/mpeg",
		"video/quicktime",
	} {
		knownTypes[t] = struct{}{}
	}
}

// MIMEType checks that s is a bare type/subtype with a known file extension.
// Parameters such as "; charset=utf-8" are rejected.
func MIMEType(s string) error {
	t := strings.ToLower(s)
	if strings.ContainsAny(t, "; ") || strings.Count(t, "/") != 1 {
		return invalid("MIME type", s)
	}
	if _, ok := knownTypes[t]; ok {
		return nil
	}
	if exts, err := mime.ExtensionsByType(t); err == nil && len(exts) > 0 {
		return nil
	}
	return invalid("MIME type", s)
}
