package pdf

import (
	"context"
	"encoding/base64"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/strategraph/strategraph/pkg/loader"
)

// PDFGraphLoader loads PDF files and extracts their text content.
type PDFGraphLoader struct {
	loader loader.GraphFileLoader

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewPDFGraphLoader creates a PDF loader that extracts text directly from PDF content.
func NewPDFGraphLoader(baseLoader loader.GraphFileLoader) *PDFGraphLoader {
	return &PDFGraphLoader{
		loader: baseLoader,
		cache:  make(map[string][]byte),
	}
}

// GetFileText extracts the plain text from a PDF file. Results are cached.
func (l *PDFGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
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

		parsed, err := parsePDF(content)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = parsed
		l.cacheMu.Unlock()

		return parsed, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// GetBase64 returns the PDF encoded as base64.
func (l *PDFGraphLoader) GetBase64(ctx context.Context, file loader.GraphFile) (loader.GraphBase64, error) {
	content, err := l.loader.GetFileText(ctx, file)
	if err != nil {
		return loader.GraphBase64{}, err
	}

	result := base64.StdEncoding.EncodeToString(content)
	filePrefix := "data:application/pdf;base64,"
	return loader.GraphBase64{
		Base64:   result,
		FileType: filePrefix,
	}, nil
}
