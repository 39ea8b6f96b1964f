package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// MaxDocumentSize caps docket attachments.
const MaxDocumentSize = 20 << 20

var allowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".odt":  true,
	".txt":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ValidateDocumentUpload checks size, extension and, for PDFs, the file
// signature of an attachment.
func ValidateDocumentUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return invalid("document", "is required")
	}
	if fileHeader.Size == 0 {
		return invalid("document", "is empty")
	}
	if fileHeader.Size > MaxDocumentSize {
		return invalid("document", fmt.Sprintf("exceeds %d MB", MaxDocumentSize>>20))
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedDocumentExtensions[ext] {
		return invalid("document", "file type not allowed; accepted formats: PDF, DOC, DOCX, ODT, TXT, JPG, PNG")
	}
	if ext != ".pdf" {
		return nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// PDF files start with %PDF
	head := make([]byte, 4)
	if _, err := io.ReadFull(file, head); err != nil || !bytes.Equal(head, []byte("%PDF")) {
		return invalid("document", "is not a valid PDF")
	}
	return nil
}

// safeFileName keeps the base name of an upload and drops path separators.
func safeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}
