package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"readcast/internal/logger"
	"readcast/internal/models"

	"github.com/go-pdf/fpdf"
)

const (
	pageW        = 595.28
	pageH        = 841.89
	margin       = 40.0
	contentW     = pageW - 2*margin
	breakAt      = pageH - 80
	indentX      = 50.0
	indentW      = pageW - 100
	exampleX     = 60.0
	exampleW     = pageW - 110
	firstSection = 3

	unicodeFamily = "readcast-unicode"
	coreFamily    = "Helvetica"
)

var systemFonts = []string{
	"/usr/share/fonts/truetype/noto/NotoSansSC-Regular.ttf",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/truetype/arphic-gkai00mp/gkai00mp.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	`C:\Windows\Fonts\simhei.ttf`,
}

// FontCandidates lists TrueType fonts in fontsDir (sorted) followed by common system locations.
func FontCandidates(fontsDir string) []string {
	var out []string
	if fontsDir != "" {
		matches, _ := filepath.Glob(filepath.Join(fontsDir, "*.ttf"))
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return append(out, systemFonts...)
}

// TOCEntry is one line of the table of contents. Page numbers assume every
// section fits on one page: cover is 1, contents is 2, sections follow from 3.
type TOCEntry struct {
	Title string
	Page  int
}

func TableOfContents(doc models.StudyDocument, l Labels) []TOCEntry {
	out := []TOCEntry{{Title: l.Summary}}
	if len(doc.KnowledgePoints) > 0 {
		out = append(out, TOCEntry{Title: l.KnowledgePoints})
	}
	if len(doc.Difficulties) > 0 {
		out = append(out, TOCEntry{Title: l.Difficulties})
	}
	if len(doc.Terminology) > 0 {
		out = append(out, TOCEntry{Title: l.Terminology})
	}
	if strings.TrimSpace(doc.CustomContent) != "" {
		out = append(out, TOCEntry{Title: l.CustomContent})
	}
	for i := range out {
		out[i].Page = firstSection + i
	}
	return out
}

type PDFRenderer struct {
	fontPaths []string
	log       *logger.Logger

	once     sync.Once
	fontPath string
	fontData []byte
}

func NewPDFRenderer(fontPaths []string, log *logger.Logger) *PDFRenderer {
	if log == nil {
		log = logger.Nop()
	}
	return &PDFRenderer{fontPaths: fontPaths, log: log.Component("pdf_renderer")}
}

func (r *PDFRenderer) loadFont() {
	r.once.Do(func() {
		for _, p := range r.fontPaths {
			if !strings.EqualFold(filepath.Ext(p), ".ttf") {
				continue
			}
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			if fontUsable(data) {
				r.fontPath, r.fontData = p, data
				r.log.Info("pdf unicode font selected", "path", p)
				return
			}
			r.log.Warn("pdf font rejected", "path", p)
		}
		r.log.Warn("no unicode font found, non-latin text will not render", "candidates", len(r.fontPaths))
	})
}

func fontUsable(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	probe := fpdf.New("P", "pt", "A4", "")
	probe.AddUTF8FontFromBytes("probe", "", data)
	probe.AddPage()
	probe.SetFont("probe", "", 10)
	_ = probe.GetStringWidth("学习 study")
	return !probe.Err()
}

func (r *PDFRenderer) Render(doc models.StudyDocument, m Metadata) ([]byte, error) {
	r.loadFont()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	title := firstNonEmpty(doc.Title, m.Title)
	pdf.SetTitle(title, true)
	pdf.SetCreator("readcast", true)

	w := &pdfWriter{pdf: pdf, family: coreFamily, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if r.fontData != nil {
		pdf.AddUTF8FontFromBytes(unicodeFamily, "", r.fontData)
		pdf.AddUTF8FontFromBytes(unicodeFamily, "B", r.fontData)
		w.family = unicodeFamily
		w.tr = func(s string) string { return s }
	}

	l := LabelsFor(m.Language)
	w.cover(title, m, l)
	w.contents(TableOfContents(doc, l), l)
	w.sections(doc, l)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	style  string
	size   float64
	y      float64
}

func (w *pdfWriter) font(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
	w.style, w.size = style, size
}

func (w *pdfWriter) lineHeight() float64 {
	return w.size * 1.4
}

func (w *pdfWriter) newPage() {
	w.pdf.AddPage()
	w.y = margin
}

func (w *pdfWriter) measure(s string) float64 {
	return w.pdf.GetStringWidth(w.tr(s))
}

func (w *pdfWriter) cover(title string, m Metadata, l Labels) {
	w.newPage()
	w.font("B", 20)
	w.y = 60
	w.centered(title)
	if w.y < 100 {
		w.y = 100
	} else {
		w.y += 16
	}
	if m.ArticleTitle != "" {
		w.font("", 11)
		w.centered(l.Field(l.Original) + m.ArticleTitle)
		w.y += 6
	}
	w.font("", 10)
	w.centered(l.Field(l.Difficulty) + l.Level(m.Difficulty))
	w.y += 6
	w.font("", 9)
	w.centered(l.Field(l.GeneratedAt) + generatedAt(m).Format(timeLayout))
}

func (w *pdfWriter) centered(text string) {
	for _, line := range w.wrap(text, contentW) {
		w.pdf.SetXY(margin, w.y)
		w.pdf.CellFormat(contentW, w.lineHeight(), w.tr(line), "", 0, "C", false, 0, "")
		w.y += w.lineHeight()
	}
}

func (w *pdfWriter) contents(entries []TOCEntry, l Labels) {
	w.newPage()
	w.font("B", 16)
	w.pdf.SetXY(margin, margin)
	w.pdf.CellFormat(contentW, 20, w.tr(l.TOC), "", 0, "L", false, 0, "")
	w.font("", 11)
	y := 70.0
	for _, e := range entries {
		w.pdf.SetXY(indentX, y)
		w.pdf.CellFormat(indentW-40, 15, w.tr(e.Title), "", 0, "L", false, 0, "")
		w.pdf.SetXY(pageW-margin-40, y)
		w.pdf.CellFormat(40, 15, strconv.Itoa(e.Page), "", 0, "R", false, 0, "")
		y += 15
	}
}

func (w *pdfWriter) sections(doc models.StudyDocument, l Labels) {
	w.section(l.Summary)
	w.font("", 10)
	w.block(firstNonEmpty(doc.Summary, l.NoSummary), margin, contentW)

	if len(doc.KnowledgePoints) > 0 {
		w.section(l.KnowledgePoints)
		for i, kp := range doc.KnowledgePoints {
			w.item(fmt.Sprintf("%d. %s", i+1, kp.Point), kp.Explanation, nil)
		}
	}
	if len(doc.Difficulties) > 0 {
		w.section(l.Difficulties)
		for i, d := range doc.Difficulties {
			w.item(fmt.Sprintf("%d. %s", i+1, d.Difficulty), d.Explanation, d.Examples)
		}
	}
	if len(doc.Terminology) > 0 {
		w.section(l.Terminology)
		for i, t := range doc.Terminology {
			body := l.Field(l.Definition) + t.Definition
			if t.Context != "" {
				body += "\n" + l.Field(l.Context) + t.Context
			}
			w.item(fmt.Sprintf("%d. %s", i+1, t.Term), body, nil)
		}
	}
	if c := strings.TrimSpace(doc.CustomContent); c != "" {
		w.section(l.CustomContent)
		w.font("", 10)
		w.block(c, margin, contentW)
	}
}

func (w *pdfWriter) section(heading string) {
	w.newPage()
	w.font("B", 14)
	w.block(heading, margin, contentW)
	w.y += 8
}

// item writes a bold heading, an indented explanation and optional bullets,
// moving to a fresh page first when the whole item would not fit on this one.
func (w *pdfWriter) item(heading, explanation string, examples []string) {
	h := w.height(heading, "B", 11, contentW) + w.height(explanation, "", 9, indentW) + 10
	for _, ex := range examples {
		h += w.height("• "+ex, "", 8, exampleW)
	}
	if w.y+h > breakAt && h <= breakAt-margin {
		w.newPage()
	}
	w.font("B", 11)
	w.block(heading, margin, contentW)
	w.y += 2
	w.font("", 9)
	w.block(explanation, indentX, indentW)
	if len(examples) > 0 {
		w.font("", 8)
		for _, ex := range examples {
			w.block("• "+ex, exampleX, exampleW)
		}
	}
	w.y += 8
}

func (w *pdfWriter) height(text, style string, size, width float64) float64 {
	w.font(style, size)
	return float64(len(w.wrap(text, width))) * w.lineHeight()
}

// block writes wrapped text at x, breaking the page line by line when needed.
func (w *pdfWriter) block(text string, x, width float64) {
	lh := w.lineHeight()
	for _, line := range w.wrap(text, width) {
		if w.y+lh > breakAt {
			style, size := w.style, w.size
			w.newPage()
			w.font(style, size)
		}
		w.pdf.SetXY(x, w.y)
		w.pdf.CellFormat(width, lh, w.tr(line), "", 0, "L", false, 0, "")
		w.y += lh
	}
}

func (w *pdfWriter) wrap(text string, width float64) []string {
	var lines []string
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimRight(para, " \t")
		if para == "" {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, tok := range tokenize(para) {
			if w.measure(line+tok) <= width {
				line += tok
				continue
			}
			if strings.TrimSpace(line) != "" {
				lines = append(lines, strings.TrimRight(line, " "))
			}
			line = strings.TrimLeft(tok, " ")
			for line != "" && w.measure(line) > width {
				head := w.fit(line, width)
				lines = append(lines, head)
				line = line[len(head):]
			}
		}
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// fit returns the longest prefix of s (at least one rune) that fits width.
func (w *pdfWriter) fit(s string, width float64) string {
	end := len(s)
	for end > 0 && w.measure(s[:end]) > width {
		_, size := utf8.DecodeLastRuneInString(s[:end])
		end -= size
	}
	if end == 0 {
		_, size := utf8.DecodeRuneInString(s)
		end = size
	}
	return s[:end]
}

// tokenize splits on spaces and treats each wide (CJK) rune as its own word.
func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t':
			flush()
			toks = append(toks, " ")
		case r >= 0x2E80:
			flush()
			toks = append(toks, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
