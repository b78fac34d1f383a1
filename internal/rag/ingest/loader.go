package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"

	"github.com/itdjship/chat-bot-app/internal/domain/docmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
)

const pageExtractTimeout = 10 * time.Second

func getDocType(docPath string) docmodel.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return docmodel.PDF
	case ".docx", ".txt", ".rtf":
		return docmodel.DOCX
	default:
		return docmodel.ERR
	}
}

func extractText(path string, contentType docmodel.DocType) ([]docmodel.Page, error) {
	switch contentType {
	case docmodel.PDF:
		return extractPDF(path)
	case docmodel.DOCX:
		return extractDocxTxtRtf(path)
	default:
		return nil, faults.Errorf(faults.Extraction, "unsupported content type: %s", contentType)
	}
}

func extractPDF(path string) ([]docmodel.Page, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, faults.New(faults.Extraction, fmt.Errorf("failed to open pdf: %w", err))
	}

	var pages []docmodel.Page
	numPages := f.NumPage()
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// a single bad page does not sink the document
			continue
		}
		if content == "" {
			continue
		}
		pages = append(pages, docmodel.Page{Number: i, Content: content})
	}

	if len(pages) == 0 {
		return nil, faults.Errorf(faults.Extraction, "no extractable text in %d pages", numPages)
	}
	return pages, nil
}

// cat handles .odt, .docx, .rtf and plaintext; it has no page concept so
// everything lands on a single synthetic page
func extractDocxTxtRtf(path string) ([]docmodel.Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, faults.New(faults.Extraction, fmt.Errorf("failed to extract document: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return nil, faults.Errorf(faults.Extraction, "no extractable text")
	}
	return []docmodel.Page{{Number: 1, Content: text}}, nil
}

// malformed PDFs can hang the parser; run extraction behind a timeout
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", faults.Errorf(faults.Timeout, "page extraction timed out")
	}
}
