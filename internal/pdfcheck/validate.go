package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrEmpty means the file parsed but contains no pages.
	ErrEmpty = errors.New("pdf has no pages")
	// ErrCorrupt means the file could not be opened or read as a PDF.
	ErrCorrupt = errors.New("pdf is corrupted or unreadable")
)

// Result carries what validation learned about the file.
type Result struct {
	PageCount int
}

// Validate checks that data is a readable PDF: it must parse, contain at
// least one page, and the first page must be extractable. A nil error means
// the file is safe to store.
func Validate(data []byte) (result Result, err error) {
	// The underlying parser panics on some malformed inputs; treat any
	// panic as a corrupt file rather than crashing the request.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	pages := reader.NumPage()
	if pages == 0 {
		return Result{}, ErrEmpty
	}

	first := reader.Page(1)
	if first.V.IsNull() {
		return Result{}, fmt.Errorf("%w: first page missing", ErrCorrupt)
	}

	// Extract text from the first page; extraction fails on truncated or
	// damaged content streams even when the catalog parses.
	if _, err := first.GetPlainText(nil); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return Result{PageCount: pages}, nil
}
