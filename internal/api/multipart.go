package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Multipart is a multipart/form-data body. The gateway sends it unchanged
// with its own boundary content type.
type Multipart struct {
	buf bytes.Buffer
	w   *multipart.Writer
}

// NewMultipart starts an empty multipart body.
func NewMultipart() *Multipart {
	m := &Multipart{}
	m.w = multipart.NewWriter(&m.buf)
	return m
}

// Field adds a plain form field.
func (m *Multipart) Field(name, value string) error {
	if err := m.w.WriteField(name, value); err != nil {
		return fmt.Errorf("multipart field %s: %w", name, err)
	}
	return nil
}

// File adds a file part read from r.
func (m *Multipart) File(field, filename string, r io.Reader) error {
	part, err := m.w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("multipart file %s: %w", field, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("multipart file %s: copy: %w", field, err)
	}
	return nil
}

// Close finishes the body. It must be called before the body is sent.
func (m *Multipart) Close() error {
	return m.w.Close()
}

// ContentType returns the multipart content type including the boundary.
func (m *Multipart) ContentType() string {
	return m.w.FormDataContentType()
}

// Reader returns the encoded body.
func (m *Multipart) Reader() io.Reader {
	return bytes.NewReader(m.buf.Bytes())
}
