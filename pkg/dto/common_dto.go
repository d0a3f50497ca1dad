package dto

import (
	"io"
	"mime/multipart"
)

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

// NewPaginationMeta computes the page count for total items.
func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMeta{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		Limit:       limit,
	}
}

// UploadedFile is a multipart file handed from a handler to a service.
type UploadedFile struct {
	Reader   io.Reader
	FileName string
}

// OpenUpload opens a multipart file. The returned close func must be called
// once the service is done with the reader.
func OpenUpload(fh *multipart.FileHeader) (*UploadedFile, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &UploadedFile{Reader: f, FileName: fh.Filename}, func() { _ = f.Close() }, nil
}
