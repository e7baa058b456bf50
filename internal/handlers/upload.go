package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"postdeck/internal/apperr"
	"postdeck/internal/review"
)

const (
	// maxUploadSize is the maximum allowed asset upload size (200 MB).
	maxUploadSize = 200 << 20

	// maxMemory is how much of a multipart body is buffered in memory
	// before spilling to temporary files.
	maxMemory = 32 << 20
)

// readUpload parses a multipart request with a "file" part and an optional
// "caption" value. The content type is sniffed from the first 512 bytes
// rather than trusted from the client. cleanup releases temporary files.
func readUpload(w http.ResponseWriter, r *http.Request) (up review.Upload, caption string, cleanup func(), err error) {
	cleanup = func() {}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return up, "", cleanup, apperr.Invalid("file", "upload must be multipart and at most %d MB", maxUploadSize>>20)
	}
	cleanup = func() { r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile("file")
	if err != nil {
		return up, "", cleanup, apperr.Invalid("file", "is required")
	}
	prev := cleanup
	cleanup = func() {
		file.Close()
		prev()
	}

	if header.Size > maxUploadSize {
		return up, "", cleanup, apperr.Invalid("file", "must be at most %d MB", maxUploadSize>>20)
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return up, "", cleanup, fmt.Errorf("read upload: %w", err)
	}
	contentType := http.DetectContentType(sniff[:n])
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	up = review.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        io.MultiReader(bytes.NewReader(sniff[:n]), file),
	}
	caption = strings.TrimSpace(r.FormValue("caption"))
	if len([]rune(caption)) > 5000 {
		return up, "", cleanup, apperr.Invalid("caption", "must be at most 5000")
	}
	return up, caption, cleanup, nil
}
