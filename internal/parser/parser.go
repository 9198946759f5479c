package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"github.com/rachid48133/studygenie/internal/models"
)

var (
	slideFileRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	notesRelRe  = regexp.MustCompile(`Target="\.\./notesSlides/(notesSlide\d+\.xml)"`)
)

// Extract returns the text of a course file and its unit count (pages,
// slides or sheets; 1 for formats without natural units). Paged and slide
// formats carry "--- Page N ---" or "--- Slide N ---" markers.
func Extract(filePath string) (string, int, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	var (
		text  string
		units int
		err   error
	)
	switch ext {
	case ".pdf":
		text, units, err = parsePDF(filePath)
	case ".pptx":
		text, units, err = parsePPTX(filePath)
	case ".docx":
		text, err = parseDOCX(filePath)
		units = 1
	case ".xlsx":
		text, units, err = parseXLSX(filePath)
	case ".xlsm", ".xltx", ".xltm":
		text, units, err = parseExcelize(filePath)
	case ".md", ".markdown":
		text, err = parseMarkdown(filePath)
		units = 1
	case ".txt":
		text, err = parseText(filePath)
		units = 1
	default:
		return "", 0, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s: %v", models.ErrExtraction, filepath.Base(filePath), err)
	}

	log.Debug().Str("file", filePath).Int("units", units).Int("chars", len(text)).Msg("Extracted text")
	return text, units, nil
}

func parsePDF(filePath string) (string, int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", 0, err
	}

	var b strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		b.WriteString("\n" + fmt.Sprintf(models.PageMarker, i) + "\n")
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Could not read page text")
			continue
		}
		b.WriteString(pageText)
	}
	return b.String(), numPages, nil
}

func parsePPTX(filePath string) (string, int, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	files := make(map[string]*zip.File, len(f.File))
	var slides []int
	for _, file := range f.File {
		files[file.Name] = file
		if m := slideFileRe.FindStringSubmatch(file.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, n)
		}
	}
	sort.Ints(slides)

	var b strings.Builder
	for i, n := range slides {
		b.WriteString("\n" + fmt.Sprintf(models.SlideMarker, i+1) + "\n")

		data, err := readZipFile(files[fmt.Sprintf("ppt/slides/slide%d.xml", n)])
		if err != nil {
			return "", 0, err
		}
		slideText, err := xmlText(data)
		if err != nil {
			return "", 0, fmt.Errorf("slide %d: %w", n, err)
		}
		b.WriteString(slideText)

		if notes := slideNotes(files, n); strings.TrimSpace(notes) != "" {
			b.WriteString("\n[Notes : " + strings.TrimSpace(notes) + "]\n")
		}
	}
	return b.String(), len(slides), nil
}

// slideNotes follows the slide relationships to its notes page, if any.
func slideNotes(files map[string]*zip.File, slide int) string {
	rels, err := readZipFile(files[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slide)])
	if err != nil {
		return ""
	}
	m := notesRelRe.FindSubmatch(rels)
	if m == nil {
		return ""
	}
	data, err := readZipFile(files["ppt/notesSlides/"+string(m[1])])
	if err != nil {
		return ""
	}
	notes, err := xmlText(data)
	if err != nil {
		return ""
	}
	return notes
}

func readZipFile(file *zip.File) ([]byte, error) {
	if file == nil {
		return nil, os.ErrNotExist
	}
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	text, err := xmlText([]byte(content))
	if err != nil {
		return "", err
	}

	var paragraphs []string
	for _, p := range strings.Split(text, "\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func parseXLSX(filePath string) (string, int, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", 0, err
	}

	var b strings.Builder
	for i, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		writeSheet(&b, i+1, sheet.Name, rows)
	}
	return b.String(), len(f.Sheets), nil
}

func parseExcelize(filePath string) (string, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var b strings.Builder
	for i, sheetName := range sheets {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("Could not read sheet")
			rows = nil
		}
		writeSheet(&b, i+1, sheetName, rows)
	}
	return b.String(), len(sheets), nil
}

// writeSheet renders one sheet as a page block with tab-separated rows.
func writeSheet(b *strings.Builder, page int, name string, rows [][]string) {
	b.WriteString("\n" + fmt.Sprintf(models.PageMarker, page) + "\n")
	b.WriteString(fmt.Sprintf("## Sheet: %s\n", name))
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t") + "\n")
	}
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
