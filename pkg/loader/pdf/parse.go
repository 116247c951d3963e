package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var reNewlines = regexp.MustCompile(`\n{3,}`)

func parsePDF(input []byte) ([]byte, error) {
	reader, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("no extractable text in PDF")
	}
	text = reNewlines.ReplaceAllString(text, "\n\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	return []byte(text), nil
}
