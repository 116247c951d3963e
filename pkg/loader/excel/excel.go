package excel

import (
	"bytes"
	"context"
	"encoding/base64"
	stdcsv "encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/singleflight"

	"github.com/strategraph/strategraph/pkg/loader"
	"github.com/strategraph/strategraph/pkg/loader/csv"
)

// ExcelGraphLoader loads and parses Excel workbooks (.xlsx) into text.
// Each sheet is rendered as CSV; multi-sheet workbooks get sheet name headers.
type ExcelGraphLoader struct {
	loader loader.GraphFileLoader

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewExcelGraphLoader creates a new ExcelGraphLoader with the given base loader.
func NewExcelGraphLoader(baseLoader loader.GraphFileLoader) *ExcelGraphLoader {
	return &ExcelGraphLoader{
		loader: baseLoader,
		cache:  make(map[string][]byte),
	}
}

// GetFileText retrieves the workbook and returns all sheets as parsed text.
func (l *ExcelGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		content, err := l.loader.GetFileText(ctx, file)
		if err != nil {
			return nil, err
		}

		sheets, err := parseWorkbook(content)
		if err != nil {
			return nil, err
		}

		var result []byte
		for _, sheet := range sheets {
			if len(result) > 0 {
				result = append(result, '\n')
			}
			if len(sheets) > 1 {
				header := "--- " + sheet.Name + " ---\n"
				result = append(result, []byte(header)...)
			}
			result = append(result, sheet.Content...)
		}

		l.cacheMu.Lock()
		l.cache[key] = result
		l.cacheMu.Unlock()

		return result, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// GetBase64 returns the base64 encoded workbook content.
func (l *ExcelGraphLoader) GetBase64(ctx context.Context, file loader.GraphFile) (loader.GraphBase64, error) {
	content, err := l.loader.GetFileText(ctx, file)
	if err != nil {
		return loader.GraphBase64{}, err
	}

	enc := base64.StdEncoding.EncodeToString(content)

	ext := strings.ToLower(filepath.Ext(file.FilePath))

	var mimeType string
	switch ext {
	case ".xlsx":
		mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		mimeType = "application/vnd.ms-excel"
	default:
		mimeType = "application/octet-stream"
	}

	return loader.GraphBase64{
		Base64:   enc,
		FileType: "data:" + mimeType + ";base64,",
	}, nil
}

// ExcelSheet represents a single sheet from an Excel workbook.
type ExcelSheet struct {
	Name    string
	Content []byte
}

// GetSheets retrieves the workbook and returns each sheet as a separate document.
func (l *ExcelGraphLoader) GetSheets(ctx context.Context, file loader.GraphFile) ([]ExcelSheet, error) {
	content, err := l.loader.GetFileText(ctx, file)
	if err != nil {
		return nil, err
	}

	return parseWorkbook(content)
}

// parseWorkbook renders each non-empty sheet to clean CSV text in
// workbook order.
func parseWorkbook(content []byte) ([]ExcelSheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []ExcelSheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if len(rows) == 0 {
			continue
		}

		var sb strings.Builder
		w := stdcsv.NewWriter(&sb)
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				break
			}
		}
		w.Flush()

		parsed, err := csv.ParseCSV([]byte(sb.String()))
		if err != nil {
			continue
		}

		sheets = append(sheets, ExcelSheet{
			Name:    name,
			Content: parsed,
		})
	}

	if len(sheets) == 0 {
		return nil, fmt.Errorf("no data found in workbook")
	}

	return sheets, nil
}
