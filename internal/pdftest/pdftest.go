// Package pdftest builds small PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
)

// Page describes one page. Lines are drawn top down in Helvetica; the
// image, when set, is painted below the first line.
type Page struct {
	Lines []string
	JPEG  []byte
}

// JPEG returns a small encoded JPEG image.
func JPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Build renders pages into a PDF file. Objects are numbered in order:
// catalog 1, page tree 2, font 3, then for each page its page object,
// content stream and optional image.
func Build(pages ...Page) []byte {
	var objs []string
	add := func(body string) int {
		objs = append(objs, body)
		return len(objs)
	}

	add("<< /Type /Catalog /Pages 2 0 R >>")
	add("") // page tree, filled in below
	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>")

	var kids []string
	for _, p := range pages {
		pageNr := len(objs) + 1
		contentNr := pageNr + 1
		imageNr := 0
		resources := "<< /Font << /F1 3 0 R >> >>"
		if p.JPEG != nil {
			imageNr = pageNr + 2
			resources = fmt.Sprintf("<< /Font << /F1 3 0 R >> /XObject << /Im1 %d 0 R >> >>", imageNr)
		}
		add(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources %s /Contents %d 0 R >>",
			resources, contentNr))
		add(stream("", []byte(content(p))))
		if p.JPEG != nil {
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(p.JPEG))
			if err != nil {
				panic(err)
			}
			dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d "+
				"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode", cfg.Width, cfg.Height)
			add(stream(dict, p.JPEG))
		}
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNr))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func stream(dict string, data []byte) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

func content(p Page) string {
	var b strings.Builder
	y := 720
	for i, line := range p.Lines {
		fmt.Fprintf(&b, "BT /F1 12 Tf 72 %d Td (%s) Tj ET\n", y, escape(line))
		y -= 20
		if i == 0 && p.JPEG != nil {
			b.WriteString("q 100 0 0 50 72 600 cm /Im1 Do Q\n")
			y = 560
		}
	}
	if len(p.Lines) == 0 && p.JPEG != nil {
		b.WriteString("q 100 0 0 50 72 600 cm /Im1 Do Q\n")
	}
	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s)
}
