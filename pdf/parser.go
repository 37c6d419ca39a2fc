// Package pdf extracts layout-ordered text and embedded images from PDF
// documents.
package pdf

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/fwojciec/corpus"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// Parser reads page text with github.com/ledongthuc/pdf and image bytes
// with pdfcpu. Text runs and image placements are ordered top to bottom
// then left to right, and each image is replaced by an inline marker.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser. A nil logger discards output.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	disableConfigDir.Do(api.DisableConfigDir)
	return &Parser{logger: logger}
}

// Parse implements extract.Parser.
func (p *Parser) Parse(data []byte, name string) (*corpus.Extraction, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	images := p.images(data)
	docName := strings.TrimSpace(name)
	if docName == "" {
		docName = "document.pdf"
	}

	ext := &corpus.Extraction{}
	emitted := make(map[string]bool)
	var pages []string
	for n := 1; n <= r.NumPage(); n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		blocks := p.pageBlocks(page, n, docName, images[n])
		var lines []string
		for _, b := range blocks {
			if b.asset == nil {
				lines = append(lines, b.text)
				continue
			}
			lines = append(lines, "", corpus.ImageMarker(b.asset.Source), "")
			if !emitted[b.asset.Source] {
				emitted[b.asset.Source] = true
				ext.Images = append(ext.Images, *b.asset)
			}
		}
		body := collapseBlank(strings.Join(lines, "\n"))
		pages = append(pages, corpus.PageBreak(n)+"\n\n"+body)
	}
	ext.Text = strings.TrimSpace(strings.Join(pages, "\n\n"))
	return ext, nil
}

// pageImage is an image XObject with its decoded bytes.
type pageImage struct {
	objNr    int
	data     []byte
	fileType string
}

// images returns image XObjects keyed by page number and resource name.
// Failures leave the text extraction intact.
func (p *Parser) images(data []byte) map[int]map[string]pageImage {
	out := make(map[int]map[string]pageImage)
	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, model.NewDefaultConfiguration())
	if err != nil {
		p.logger.Warn("pdf images unavailable", "err", err)
		return out
	}
	for _, m := range pages {
		for objNr, img := range m {
			b, err := io.ReadAll(img)
			if err != nil || len(b) == 0 {
				continue
			}
			if out[img.PageNr] == nil {
				out[img.PageNr] = make(map[string]pageImage)
			}
			out[img.PageNr][img.Name] = pageImage{objNr: objNr, data: b, fileType: img.FileType}
		}
	}
	return out
}

// block is one positioned line of text or one image on a page.
type block struct {
	top, left float64
	text      string
	asset     *corpus.Asset
}

func (p *Parser) pageBlocks(page pdf.Page, n int, docName string, images map[string]pageImage) (blocks []block) {
	defer func() {
		if v := recover(); v != nil {
			p.logger.Warn("pdf page skipped", "page", n, "err", v)
			blocks = nil
		}
	}()

	blocks = textBlocks(page.Content().Text)

	placed := make(map[string]bool)
	for _, pl := range placements(page) {
		img, ok := images[pl.name]
		if !ok {
			continue
		}
		placed[pl.name] = true
		blocks = append(blocks, block{
			top:   pl.y1,
			left:  pl.x0,
			asset: newAsset(docName, n, img, pl),
		})
	}

	// Images drawn indirectly, through forms or patterns, go last.
	var rest []string
	for name := range images {
		if !placed[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)

	slices.SortStableFunc(blocks, func(a, b block) int {
		if c := cmp.Compare(b.top, a.top); c != 0 {
			return c
		}
		return cmp.Compare(a.left, b.left)
	})
	for _, name := range rest {
		blocks = append(blocks, block{asset: newAsset(docName, n, images[name], placement{})})
	}
	return blocks
}

func newAsset(docName string, page int, img pageImage, pl placement) *corpus.Asset {
	ref := fmt.Sprintf("xref%d", img.objNr)
	if img.objNr == 0 {
		ref = fmt.Sprintf("bbox%.0f,%.0f,%.0f,%.0f", pl.x0, pl.y0, pl.x1, pl.y1)
	}
	id := corpus.EmbeddedID(docName, fmt.Sprintf("page%d", page), ref)
	ext := strings.ToLower(img.fileType)
	if ext == "" {
		ext = "bin"
	}
	return &corpus.Asset{
		Content:  img.data,
		MIME:     imageMIME(img.data, ext),
		Source:   id,
		Filename: fmt.Sprintf("page%d_img%d.%s", page, img.objNr, ext),
	}
}

func imageMIME(data []byte, ext string) string {
	if t := http.DetectContentType(data); strings.HasPrefix(t, "image/") {
		return t
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// textBlocks groups glyph runs into lines. Runs whose baselines are
// within half a font size share a line.
func textBlocks(runs []pdf.Text) []block {
	runs = slices.DeleteFunc(slices.Clone(runs), func(t pdf.Text) bool { return t.S == "" })
	if len(runs) == 0 {
		return nil
	}
	slices.SortStableFunc(runs, func(a, b pdf.Text) int {
		if c := cmp.Compare(b.Y, a.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})

	var lines [][]pdf.Text
	for _, r := range runs {
		if n := len(lines); n > 0 {
			last := lines[n-1]
			if math.Abs(last[0].Y-r.Y) <= lineTolerance(last[0]) {
				lines[n-1] = append(last, r)
				continue
			}
		}
		lines = append(lines, []pdf.Text{r})
	}

	blocks := make([]block, 0, len(lines))
	var prev *pdf.Text
	for _, line := range lines {
		slices.SortStableFunc(line, func(a, b pdf.Text) int { return cmp.Compare(a.X, b.X) })
		text := joinRuns(line)
		if strings.TrimSpace(text) == "" {
			continue
		}
		// A gap wider than two lines starts a new paragraph.
		if prev != nil && prev.Y-line[0].Y > 2*math.Max(prev.FontSize, 1) {
			blocks = append(blocks, block{top: line[0].Y + line[0].FontSize, left: line[0].X})
		}
		blocks = append(blocks, block{
			top:  line[0].Y + line[0].FontSize,
			left: line[0].X,
			text: text,
		})
		prev = &line[0]
	}
	return blocks
}

func lineTolerance(t pdf.Text) float64 {
	return math.Max(t.FontSize/2, 1)
}

func joinRuns(line []pdf.Text) string {
	var b strings.Builder
	for i, r := range line {
		if i > 0 {
			prev := line[i-1]
			gap := r.X - (prev.X + prev.W)
			if gap > math.Max(prev.FontSize, 1)*0.15 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(r.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(r.S)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func collapseBlank(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
