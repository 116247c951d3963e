package graph

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/strategraph/strategraph/internal/util"
	"github.com/strategraph/strategraph/pkg/loader"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

const defaultUnitMaxTokens = 600

type processUnit struct {
	id     string
	fileID string
	start  int
	end    int
	text   string
}

// isCSVHeader guesses whether the first row is a header row by comparing
// its numeric density against the data rows and by matching common
// header vocabulary.
func isCSVHeader(rows []string) bool {
	if len(rows) < 2 {
		return false
	}

	numericRatio := func(fields []string) (int, int) {
		numeric := 0
		for _, field := range fields {
			field = strings.Trim(strings.TrimSpace(field), "\"")
			if _, err := strconv.ParseFloat(field, 64); err == nil {
				numeric++
			}
		}
		return numeric, len(fields)
	}

	firstFields := strings.Split(rows[0], ",")
	firstNumeric, firstTotal := numericRatio(firstFields)

	sampleSize := util.Min(5, len(rows)-1)
	dataNumeric := 0
	dataTotal := 0
	for i := 1; i <= sampleSize; i++ {
		n, t := numericRatio(strings.Split(rows[i], ","))
		dataNumeric += n
		dataTotal += t
	}

	firstRatio := float64(firstNumeric) / float64(firstTotal)
	dataRatio := float64(0)
	if dataTotal > 0 {
		dataRatio = float64(dataNumeric) / float64(dataTotal)
	}
	if firstRatio < 0.3 && dataRatio > firstRatio+0.2 {
		return true
	}

	headerWords := []string{"id", "name", "date", "time", "type", "status",
		"description", "value", "amount", "revenue", "market", "risk",
		"count", "total", "region", "segment"}
	matches := 0
	for _, field := range firstFields {
		lower := strings.ToLower(strings.Trim(strings.TrimSpace(field), "\""))
		for _, word := range headerWords {
			if strings.Contains(lower, word) {
				matches++
				break
			}
		}
	}
	if matches >= 2 {
		return true
	}

	return firstNumeric == 0 && dataNumeric > 0
}

// transformCSVIntoUnits chunks CSV text row-wise, repeating the header
// row at the top of every chunk so each unit stays self-describing.
func transformCSVIntoUnits(
	text string,
	fileID string,
	encoder string,
	maxTokens int,
) ([]processUnit, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	rows := strings.Split(text, "\n")
	var headerRow string
	dataRows := rows
	if isCSVHeader(rows) {
		headerRow = rows[0]
		dataRows = rows[1:]
	}

	var chunks []processUnit
	var currentRows []string
	currentTokens := 0

	flushChunk := func() error {
		if len(currentRows) == 0 {
			return nil
		}

		uID, err := gonanoid.New()
		if err != nil {
			return err
		}

		var chunkText strings.Builder
		if headerRow != "" {
			chunkText.WriteString(headerRow)
			chunkText.WriteString("\n")
		}
		chunkText.WriteString(strings.Join(currentRows, "\n"))

		chunks = append(chunks, processUnit{
			id:     uID,
			fileID: fileID,
			start:  len(chunks),
			end:    len(chunks) + 1,
			text:   chunkText.String(),
		})
		currentRows = nil
		currentTokens = 0
		return nil
	}

	for _, row := range dataRows {
		rowTokens := len(enc.Encode(row, nil, nil)) + 1
		if currentTokens+rowTokens > maxTokens && len(currentRows) > 0 {
			if err := flushChunk(); err != nil {
				return nil, err
			}
		}
		currentRows = append(currentRows, row)
		currentTokens += rowTokens
	}

	if err := flushChunk(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// transformIntoUnits chunks prose text sentence-wise: sentences are
// accumulated into a unit until adding the next one would exceed the
// token budget. Unit start/end index into the sentence list.
func transformIntoUnits(
	text string,
	fileID string,
	encoder string,
	maxTokens int,
) ([]processUnit, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []processUnit
	chunkStart := -1
	chunkEnd := -1

	flushChunk := func() error {
		if chunkStart < 0 || chunkEnd <= chunkStart {
			return nil
		}
		uID, err := gonanoid.New()
		if err != nil {
			return err
		}

		chunks = append(chunks, processUnit{
			id:     uID,
			fileID: fileID,
			start:  chunkStart,
			end:    chunkEnd,
			text:   strings.TrimSpace(strings.Join(sentences[chunkStart:chunkEnd], " ")),
		})
		chunkStart = -1
		chunkEnd = -1
		return nil
	}

	for i := range sentences {
		if chunkStart < 0 {
			chunkStart = i
			chunkEnd = i + 1
			continue
		}

		candidate := strings.Join(sentences[chunkStart:i+1], " ")
		if len(enc.Encode(candidate, nil, nil)) <= maxTokens {
			chunkEnd = i + 1
			continue
		}

		if err := flushChunk(); err != nil {
			return nil, err
		}
		chunkStart = i
		chunkEnd = i + 1
	}

	if err := flushChunk(); err != nil {
		return nil, err
	}

	return chunks, nil
}

func getUnitsFromText(
	ctx context.Context,
	file loader.GraphFile,
	encoder string,
) ([]processUnit, error) {
	textBytes, err := file.GetText(ctx)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(textBytes))
	if text == "" {
		return nil, nil
	}

	maxTokens := file.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultUnitMaxTokens
	}

	switch file.FileType {
	case loader.GraphFileTypeImage:
		// Vision descriptions are short, one unit per image.
		uID, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		return []processUnit{{
			id:     uID,
			fileID: file.ID,
			start:  0,
			end:    1,
			text:   text,
		}}, nil
	case loader.GraphFileTypeCSV, loader.GraphFileTypeSpreadsheet:
		return transformCSVIntoUnits(text, file.ID, encoder, maxTokens)
	default:
		return transformIntoUnits(text, file.ID, encoder, maxTokens)
	}
}

// splitIntoSentences breaks text into sentences, treating blank lines as
// hard boundaries so list items and headings become their own sentences.
func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		for _, sentence := range splitLineIntoSentences(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)

			switch sentence[len(sentence)-1] {
			case '.', '!', '?':
				flush()
			}
		}
	}
	flush()

	return sentences
}

// splitLineIntoSentences splits a single line on terminal punctuation.
// A period directly after a digit followed by a space is treated as a
// numbered-list marker, not a sentence end.
func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])
		if line[i] != '.' && line[i] != '!' && line[i] != '?' {
			continue
		}

		if i > 0 && unicode.IsDigit(rune(line[i-1])) && i+1 < len(line) && line[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(line) && (line[j] == '.' || line[j] == '!' || line[j] == '?') {
			current.WriteByte(line[j])
			j++
		}
		for j < len(line) && (line[j] == '"' || line[j] == '\'' || line[j] == ')' ||
			line[j] == ']' || line[j] == '}') {
			current.WriteByte(line[j])
			j++
		}

		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
		i = j - 1
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		sentences = append(sentences, remaining)
	}

	return sentences
}
