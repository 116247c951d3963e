package loader

import (
	"context"
	"fmt"
)

// GraphFileType classifies documents by how their text is obtained.
type GraphFileType string

const (
	GraphFileTypeDocument    GraphFileType = "document"
	GraphFileTypeSpreadsheet GraphFileType = "spreadsheet"
	GraphFileTypeCSV         GraphFileType = "csv"
	GraphFileTypeImage       GraphFileType = "image"
)

// GraphBase64 is a base64-encoded file with its data-URL prefix.
type GraphBase64 struct {
	Base64   string `json:"base64"`
	FileType string `json:"file_type"`
}

// GraphFile represents a document that can be turned into text units for
// triplet extraction. Content retrieval is delegated to the configured
// GraphFileLoader.
type GraphFile struct {
	ID             string
	FilePath       string
	FileType       GraphFileType
	MaxTokens      int
	CustomEntities []string
	Loader         GraphFileLoader
}

// NewGraphFileParams defines the inputs for the GraphFile constructors.
type NewGraphFileParams struct {
	ID             string
	FilePath       string
	MaxTokens      int
	CustomEntities []string
	Loader         GraphFileLoader
}

// NewGraphDocumentFile creates a GraphFile for text documents such as
// PDFs and Word files.
func NewGraphDocumentFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:             params.ID,
		FilePath:       params.FilePath,
		FileType:       GraphFileTypeDocument,
		MaxTokens:      params.MaxTokens,
		CustomEntities: params.CustomEntities,
		Loader:         params.Loader,
	}
}

// NewGraphSpreadsheetFile creates a GraphFile for Excel workbooks.
func NewGraphSpreadsheetFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:             params.ID,
		FilePath:       params.FilePath,
		FileType:       GraphFileTypeSpreadsheet,
		MaxTokens:      params.MaxTokens,
		CustomEntities: params.CustomEntities,
		Loader:         params.Loader,
	}
}

// NewGraphCSVFile creates a GraphFile for CSV files.
func NewGraphCSVFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:             params.ID,
		FilePath:       params.FilePath,
		FileType:       GraphFileTypeCSV,
		MaxTokens:      params.MaxTokens,
		CustomEntities: params.CustomEntities,
		Loader:         params.Loader,
	}
}

// NewGraphImageFile creates a GraphFile for images and charts that are
// described through a vision model.
func NewGraphImageFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:             params.ID,
		FilePath:       params.FilePath,
		FileType:       GraphFileTypeImage,
		MaxTokens:      params.MaxTokens,
		CustomEntities: params.CustomEntities,
		Loader:         params.Loader,
	}
}

// GetText retrieves the text content of the file using its loader.
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, fmt.Errorf("file %s has no loader configured", f.FilePath)
	}
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a GraphFile.
// Implementations may load files from disk or wrap another loader with parsing.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
	GetBase64(ctx context.Context, file GraphFile) (GraphBase64, error)
}

// CacheKey derives the cache key used by caching loaders.
func CacheKey(file GraphFile) string {
	return file.ID + "|" + file.FilePath
}
