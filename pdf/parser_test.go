package pdf_test

import (
	"testing"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/internal/pdftest"
	"github.com/fwojciec/corpus/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("orders text and images by position", func(t *testing.T) {
		t.Parallel()

		img := pdftest.JPEG()
		data := pdftest.Build(
			pdftest.Page{Lines: []string{"Annual report", "Figure caption"}, JPEG: img},
			pdftest.Page{Lines: []string{"Second page"}},
		)

		ext, err := pdf.NewParser(nil).Parse(data, "report.pdf")

		require.NoError(t, err)
		assert.Equal(t,
			"--- page 1 ---\n\nAnnual report\n\n[[IMAGE:embedded:report.pdf:page1:xref6]]\n\nFigure caption\n\n--- page 2 ---\n\nSecond page",
			ext.Text)
		require.Len(t, ext.Images, 1)
		assert.Equal(t, "embedded:report.pdf:page1:xref6", ext.Images[0].Source)
		assert.Equal(t, "image/jpeg", ext.Images[0].MIME)
		assert.Equal(t, "page1_img6.jpg", ext.Images[0].Filename)
		assert.Equal(t, img, ext.Images[0].Content)
	})

	t.Run("marks every page boundary", func(t *testing.T) {
		t.Parallel()

		data := pdftest.Build(
			pdftest.Page{Lines: []string{"one"}},
			pdftest.Page{Lines: []string{"two"}},
			pdftest.Page{Lines: []string{"three"}},
		)

		ext, err := pdf.NewParser(nil).Parse(data, "pages.pdf")

		require.NoError(t, err)
		var breaks int
		for _, m := range []string{corpus.PageBreak(1), corpus.PageBreak(2), corpus.PageBreak(3)} {
			if assert.Contains(t, ext.Text, m) {
				breaks++
			}
		}
		assert.Equal(t, 3, breaks)
		assert.Empty(t, ext.Images)
	})

	t.Run("rejects data that is not a pdf", func(t *testing.T) {
		t.Parallel()

		_, err := pdf.NewParser(nil).Parse([]byte("not a pdf"), "broken.pdf")

		assert.Error(t, err)
	})
}
