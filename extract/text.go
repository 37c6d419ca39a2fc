package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/corpus"
	"golang.org/x/net/html/charset"
)

// parseText decodes data permissively: a byte order mark or a detected
// charset selects the decoder, and invalid sequences become U+FFFD.
func parseText(data []byte, _ string) (*corpus.Extraction, error) {
	return &corpus.Extraction{Text: DecodeText(data, "text/plain")}, nil
}

// DecodeText decodes data to valid UTF-8 using contentType as a charset
// hint.
func DecodeText(data []byte, contentType string) string {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff")
	}
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
		return strings.ToValidUTF8(string(decoded), "\uFFFD")
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}
