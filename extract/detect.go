package extract

import (
	"bytes"
	"mime"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/corpus"
	"github.com/klauspost/compress/zip"
)

// Format identifies a content format handled by a Parser.
type Format string

// Supported formats, in dispatch order.
const (
	FormatText    Format = "text"
	FormatHTML    Format = "html"
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatPPTX    Format = "pptx"
	FormatXLSX    Format = "xlsx"
	FormatImage   Format = "image"
	FormatArchive Format = "archive"
	FormatGzip    Format = "gzip"
	FormatUnknown Format = "unknown"
)

// MIME types of the office formats.
const (
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var mimeFormats = map[string]Format{
	"text/html":             FormatHTML,
	"application/xhtml+xml": FormatHTML,
	"application/pdf":       FormatPDF,
	MIMEDOCX:                FormatDOCX,
	MIMEPPTX:                FormatPPTX,
	MIMEXLSX:                FormatXLSX,
	"application/zip":       FormatArchive,
	"application/x-tar":     FormatArchive,
	"application/x-gtar":    FormatArchive,
	"application/zstd":      FormatArchive,
	"application/gzip":      FormatGzip,
	"application/x-gzip":    FormatGzip,
	"application/json":      FormatText,
	"application/xml":       FormatText,
	"application/x-yaml":    FormatText,
}

var extFormats = map[string]Format{
	".txt": FormatText, ".md": FormatText, ".markdown": FormatText, ".rst": FormatText,
	".csv": FormatText, ".tsv": FormatText, ".json": FormatText, ".xml": FormatText,
	".yaml": FormatText, ".yml": FormatText, ".log": FormatText, ".ini": FormatText,
	".html": FormatHTML, ".htm": FormatHTML, ".xhtml": FormatHTML,
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".pptx": FormatPPTX,
	".xlsx": FormatXLSX,
	".png": FormatImage, ".jpg": FormatImage, ".jpeg": FormatImage, ".gif": FormatImage,
	".bmp": FormatImage, ".webp": FormatImage, ".tif": FormatImage, ".tiff": FormatImage,
	".zip": FormatArchive, ".tar": FormatArchive, ".tgz": FormatArchive, ".tzst": FormatArchive,
	".gz": FormatGzip,
}

// Detect returns the format of data. The hint, a filename, URL or MIME
// type, is consulted first; content sniffing decides when the hint is
// inconclusive.
func Detect(data []byte, hint string) Format {
	if f, ok := formatFromHint(hint); ok {
		return f
	}
	return sniff(data)
}

func formatFromHint(hint string) (Format, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return "", false
	}

	if mediaType, _, err := mime.ParseMediaType(h); err == nil && !strings.Contains(h, "://") && !strings.Contains(h, memberSep) {
		if f, ok := mimeFormats[mediaType]; ok {
			return f, true
		}
		switch {
		case strings.HasPrefix(mediaType, "text/"):
			return FormatText, true
		case strings.HasPrefix(mediaType, "image/"):
			return FormatImage, true
		}
	}

	name := corpus.FileName(h)
	if strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tar.zst") {
		return FormatArchive, true
	}
	f, ok := extFormats[path.Ext(name)]
	return f, ok
}

func sniff(data []byte) Format {
	switch {
	case len(data) == 0:
		return FormatText
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return sniffZip(data)
	case bytes.HasPrefix(data, []byte{0x1f, 0x8b}):
		return FormatGzip
	case bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		return FormatArchive
	case isTar(data):
		return FormatArchive
	}

	ct := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return FormatImage
	case strings.HasPrefix(ct, "text/html"):
		return FormatHTML
	case strings.HasPrefix(ct, "text/"):
		return FormatText
	}
	if utf8.Valid(data) && !bytes.ContainsRune(data, 0) {
		return FormatText
	}
	return FormatUnknown
}

// sniffZip tells office packages from plain zip archives by their parts.
func sniffZip(data []byte) Format {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return FormatUnknown
	}
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			return FormatDOCX
		case "ppt/presentation.xml":
			return FormatPPTX
		case "xl/workbook.xml":
			return FormatXLSX
		}
	}
	return FormatArchive
}

// isTar reports whether data carries a ustar header.
func isTar(data []byte) bool {
	return len(data) >= 262 && bytes.Equal(data[257:262], []byte("ustar"))
}

// MIMEType returns the MIME type for a filename hint, sniffing data when
// the extension is unknown.
func MIMEType(data []byte, hint string) string {
	name := strings.ToLower(corpus.FileName(hint))
	switch path.Ext(name) {
	case ".docx":
		return MIMEDOCX
	case ".pptx":
		return MIMEPPTX
	case ".xlsx":
		return MIMEXLSX
	case ".gz", ".tgz":
		return "application/gzip"
	case ".zst", ".tzst":
		return "application/zstd"
	case ".tar":
		return "application/x-tar"
	case ".zip":
		return "application/zip"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}
