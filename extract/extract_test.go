package extract_test

import (
	"archive/tar"
	"bytes"
	"errors"
	"testing"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/extract"
	"github.com/fwojciec/corpus/mock"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type file struct {
	name string
	data []byte
}

func zipOf(t *testing.T, files ...file) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarOf(t *testing.T, files ...file) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     f.name,
			Mode:     0o644,
			Size:     int64(len(f.data)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipOf(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
		hint string
		want extract.Format
	}{
		{"extension wins", []byte("hello"), "report.pdf", extract.FormatPDF},
		{"mime type hint", []byte("hello"), "text/plain; charset=utf-8", extract.FormatText},
		{"url hint uses path extension", nil, "https://example.com/files/deck.pptx?x=1", extract.FormatPPTX},
		{"tarball suffix", nil, "backup.tar.gz", extract.FormatArchive},
		{"plain gzip suffix", nil, "log.gz", extract.FormatGzip},
		{"sniffs pdf magic", []byte("%PDF-1.4\n"), "", extract.FormatPDF},
		{"sniffs png", pngHeader, "blob", extract.FormatImage},
		{"sniffs utf-8 text", []byte("plain words"), "", extract.FormatText},
		{"binary is unknown", []byte{0x00, 0x01, 0x02, 0xff, 0xfe}, "", extract.FormatUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, extract.Detect(tc.data, tc.hint))
		})
	}

	t.Run("sniffs office packages by their parts", func(t *testing.T) {
		t.Parallel()

		docx := zipOf(t, file{"word/document.xml", []byte("<w:document/>")})
		plain := zipOf(t, file{"a.txt", []byte("a")})

		assert.Equal(t, extract.FormatDOCX, extract.Detect(docx, ""))
		assert.Equal(t, extract.FormatArchive, extract.Detect(plain, ""))
	})
}

func TestRegistry_Extract(t *testing.T) {
	t.Parallel()

	t.Run("decodes text and replaces invalid bytes", func(t *testing.T) {
		t.Parallel()

		r := extract.NewRegistry()

		ext := r.Extract([]byte("caf\xc3\xa9 ok"), "notes.txt")

		assert.Equal(t, "café ok", ext.Text)
		assert.Empty(t, ext.Images)
		assert.Empty(t, ext.Files)
	})

	t.Run("surfaces unknown binaries as one file", func(t *testing.T) {
		t.Parallel()

		data := []byte{0x00, 0x01, 0x02, 0xff}
		r := extract.NewRegistry()

		ext := r.Extract(data, "firmware.bin")

		require.Len(t, ext.Files, 1)
		assert.Equal(t, data, ext.Files[0].Content)
		assert.Equal(t, "firmware.bin", ext.Files[0].Filename)
		assert.Empty(t, ext.Text)
	})

	t.Run("keeps image bytes and adds recognized text", func(t *testing.T) {
		t.Parallel()

		ocr := &mock.OCR{RecognizeFn: func([]byte) (string, error) { return "scanned words", nil }}
		r := extract.NewRegistry(extract.WithOCR(ocr))

		ext := r.Extract(pngHeader, "scan.png")

		require.Len(t, ext.Images, 1)
		assert.Equal(t, "image/png", ext.Images[0].MIME)
		assert.Equal(t, pngHeader, ext.Images[0].Content)
		assert.Equal(t, "scanned words", ext.Text)
	})

	t.Run("ignores ocr failures", func(t *testing.T) {
		t.Parallel()

		ocr := &mock.OCR{RecognizeFn: func([]byte) (string, error) { panic("tesseract missing") }}
		r := extract.NewRegistry(extract.WithOCR(ocr))

		ext := r.Extract(pngHeader, "scan.png")

		require.Len(t, ext.Images, 1)
		assert.Empty(t, ext.Text)
	})

	t.Run("degrades to empty when a parser fails", func(t *testing.T) {
		t.Parallel()

		failing := extract.ParserFunc(func([]byte, string) (*corpus.Extraction, error) {
			return nil, errors.New("malformed")
		})
		r := extract.NewRegistry(extract.WithParser(extract.FormatPDF, failing))

		ext := r.Extract([]byte("%PDF-1.4 broken"), "broken.pdf")

		require.NotNil(t, ext)
		assert.True(t, ext.Empty())
	})

	t.Run("degrades to empty when a parser panics", func(t *testing.T) {
		t.Parallel()

		panicking := extract.ParserFunc(func([]byte, string) (*corpus.Extraction, error) {
			panic("index out of range")
		})
		r := extract.NewRegistry(extract.WithParser(extract.FormatDOCX, panicking))

		ext := r.Extract([]byte("junk"), "a.docx")

		require.NotNil(t, ext)
		assert.True(t, ext.Empty())
	})

	t.Run("formats without a parser extract nothing", func(t *testing.T) {
		t.Parallel()

		r := extract.NewRegistry()

		ext := r.Extract([]byte("junk"), "sheet.xlsx")

		assert.True(t, ext.Empty())
		assert.False(t, r.Supports(extract.FormatXLSX))
	})
}

func TestRegistry_Archives(t *testing.T) {
	t.Parallel()

	t.Run("recurses into zip members", func(t *testing.T) {
		t.Parallel()

		data := zipOf(t,
			file{"docs/", nil},
			file{"docs/readme.txt", []byte("read me")},
			file{"logo.png", pngHeader},
		)
		r := extract.NewRegistry()

		ext := r.Extract(data, "bundle.zip")

		assert.Equal(t, "\n# docs/readme.txt\nread me", ext.Text)
		require.Len(t, ext.Images, 1)
		assert.Equal(t, "embedded:bundle.zip!/logo.png", ext.Images[0].Source)
		assert.Equal(t, "logo.png", ext.Images[0].Filename)
	})

	t.Run("joins member sections in order", func(t *testing.T) {
		t.Parallel()

		data := tarOf(t, file{"a.txt", []byte("alpha")}, file{"b.txt", []byte("beta")})
		r := extract.NewRegistry()

		ext := r.Extract(data, "pair.tar")

		assert.Equal(t, "\n# a.txt\nalpha\n\n# b.txt\nbeta", ext.Text)
	})

	t.Run("unpacks gzipped tarballs", func(t *testing.T) {
		t.Parallel()

		data := gzipOf(t, tarOf(t, file{"notes.txt", []byte("inside")}))
		r := extract.NewRegistry()

		ext := r.Extract(data, "notes.tgz")

		assert.Equal(t, "\n# notes.txt\ninside", ext.Text)
	})

	t.Run("keeps a single gzip stream as an opaque file", func(t *testing.T) {
		t.Parallel()

		data := gzipOf(t, []byte("just compressed text"))
		r := extract.NewRegistry()

		ext := r.Extract(data, "server.log.gz")

		assert.Empty(t, ext.Text)
		require.Len(t, ext.Files, 1)
		assert.Equal(t, data, ext.Files[0].Content)
		assert.Equal(t, "application/gzip", ext.Files[0].MIME)
	})

	t.Run("stops recursing at the depth limit", func(t *testing.T) {
		t.Parallel()

		inner := zipOf(t, file{"deep.txt", []byte("deep text")})
		outer := zipOf(t, file{"inner.zip", inner}, file{"top.txt", []byte("top text")})
		r := extract.NewRegistry(extract.WithArchiveLimits(1, 1<<20))

		ext := r.Extract(outer, "outer.zip")

		assert.Equal(t, "\n# top.txt\ntop text", ext.Text)
		require.Len(t, ext.Files, 1)
		assert.Equal(t, inner, ext.Files[0].Content)
	})

	t.Run("stops reading when the size limit is spent", func(t *testing.T) {
		t.Parallel()

		data := zipOf(t,
			file{"small.txt", []byte("fits")},
			file{"large.txt", bytes.Repeat([]byte("x"), 64)},
			file{"after.txt", []byte("never read")},
		)
		r := extract.NewRegistry(extract.WithArchiveLimits(4, 16))

		ext := r.Extract(data, "big.zip")

		assert.Equal(t, "\n# small.txt\nfits", ext.Text)
	})

	t.Run("propagates nested archive assets", func(t *testing.T) {
		t.Parallel()

		inner := zipOf(t, file{"photo.png", pngHeader})
		outer := zipOf(t, file{"inner.zip", inner})
		r := extract.NewRegistry()

		ext := r.Extract(outer, "outer.zip")

		require.Len(t, ext.Images, 1)
		assert.Equal(t, "embedded:outer.zip!/inner.zip!/photo.png", ext.Images[0].Source)
	})

	t.Run("same member in different archives gets distinct ids", func(t *testing.T) {
		t.Parallel()

		data := zipOf(t, file{"photo.png", pngHeader})
		r := extract.NewRegistry()

		a := r.Extract(data, "https://example.com/a.zip")
		b := r.Extract(data, "https://example.com/b.zip")

		require.Len(t, a.Images, 1)
		require.Len(t, b.Images, 1)
		assert.NotEqual(t, a.Images[0].Source, b.Images[0].Source)
		assert.Empty(t, a.Images[0].URL())
	})
}
