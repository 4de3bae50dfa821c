package middleware

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const localUpload = "upload"

// DefaultMaxUploadBytes caps a single uploaded file.
const DefaultMaxUploadBytes = 1_000_000

// UploadError is a rejection raised by SingleFile. Its message is meant to
// be shown to the client.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string { return e.Message }

// ErrNoFile is returned by handlers that require a file when none was sent.
var ErrNoFile = &UploadError{Message: "Please upload an image"}

// UploadOptions constrains files accepted by SingleFile.
type UploadOptions struct {
	MaxBytes   int64
	Extensions []string
}

// ImageUpload accepts jpg, jpeg and png files up to maxBytes.
func ImageUpload(maxBytes int64) UploadOptions {
	return UploadOptions{
		MaxBytes:   maxBytes,
		Extensions: []string{".jpg", ".jpeg", ".png"},
	}
}

// UploadedFile is a file read into memory by SingleFile.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// SingleFile reads the multipart file in field into memory. Requests that
// are not multipart, or that do not carry the field, pass through with no
// file attached.
func SingleFile(field string, opts UploadOptions) fiber.Handler {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxUploadBytes
	}
	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			return c.Next()
		}

		form, err := c.MultipartForm()
		if err != nil {
			return &UploadError{Message: "Malformed multipart body"}
		}
		for name := range form.File {
			if name != field {
				return &UploadError{Message: "Unexpected field"}
			}
		}
		files := form.File[field]
		if len(files) == 0 {
			return c.Next()
		}
		if len(files) > 1 {
			return &UploadError{Message: "Unexpected field"}
		}

		fh := files[0]
		if fh.Size > opts.MaxBytes {
			return &UploadError{Message: "File too large"}
		}
		if !allowedExtension(fh.Filename, opts.Extensions) {
			return ErrNoFile
		}

		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, opts.MaxBytes+1))
		if err != nil {
			return fmt.Errorf("failed to read upload: %w", err)
		}
		if int64(len(data)) > opts.MaxBytes {
			return &UploadError{Message: "File too large"}
		}

		c.Locals(localUpload, &UploadedFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Data:        data,
		})
		return c.Next()
	}
}

// File returns the file parsed by SingleFile, or nil.
func File(c *fiber.Ctx) *UploadedFile {
	f, _ := c.Locals(localUpload).(*UploadedFile)
	return f
}

func allowedExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// MapErrors runs the rest of the chain and hands any returned error to fn.
// It is mounted per route so only those routes get its error shape.
func MapErrors(fn func(c *fiber.Ctx, err error) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return fn(c, err)
		}
		return nil
	}
}

// UploadMessage returns the client-facing message for err: the upload
// rejection text, or fallback for anything else.
func UploadMessage(err error, fallback string) string {
	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Message
	}
	return fallback
}
