package storage

import (
	"bytes"
	"io"
	"text/template"

	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// DialectSource wraps a file migration source and processes each migration
// as a Go template so one migration tree can carry dialect specific SQL:
//
//	{{if eq .Dialect "mysql"}} ... {{else}} ... {{end}}
//
// SQL outside template blocks runs on all dialects.
type DialectSource struct {
	wrapped source.Driver
	dialect string
}

// TemplateData is passed to migration templates during processing
type TemplateData struct {
	Dialect string
}

// NewDialectSource creates a dialect-aware source wrapping a file source;
// fileURL uses the "file://path/to/migrations" form
func NewDialectSource(fileURL string, dialect string) (*DialectSource, error) {
	wrapped, err := source.Open(fileURL)
	if err != nil {
		return nil, err
	}
	return &DialectSource{wrapped: wrapped, dialect: dialect}, nil
}

// Open is required by source.Driver; initialization goes through NewDialectSource instead
func (d *DialectSource) Open(url string) (source.Driver, error) {
	return nil, nil
}

// Close closes the underlying source instance
func (d *DialectSource) Close() error {
	return d.wrapped.Close()
}

// First returns the very first migration version available
func (d *DialectSource) First() (version uint, err error) {
	return d.wrapped.First()
}

// Prev returns the previous version for a given version
func (d *DialectSource) Prev(version uint) (prevVersion uint, err error) {
	return d.wrapped.Prev(version)
}

// Next returns the next version for a given version
func (d *DialectSource) Next(version uint) (nextVersion uint, err error) {
	return d.wrapped.Next(version)
}

// ReadUp returns the UP migration body after template processing
func (d *DialectSource) ReadUp(version uint) (io.ReadCloser, string, error) {
	r, identifier, err := d.wrapped.ReadUp(version)
	if err != nil {
		return nil, "", err
	}
	return d.processTemplate(r, identifier)
}

// ReadDown returns the DOWN migration body after template processing
func (d *DialectSource) ReadDown(version uint) (io.ReadCloser, string, error) {
	r, identifier, err := d.wrapped.ReadDown(version)
	if err != nil {
		return nil, "", err
	}
	return d.processTemplate(r, identifier)
}

func (d *DialectSource) processTemplate(r io.ReadCloser, identifier string) (io.ReadCloser, string, error) {
	content, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return nil, "", err
	}
	if !bytes.Contains(content, []byte("{{")) {
		return io.NopCloser(bytes.NewReader(content)), identifier, nil
	}
	tmpl, err := template.New("migration").Parse(string(content))
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, TemplateData{Dialect: d.dialect}); err != nil {
		return nil, "", err
	}
	return io.NopCloser(&buf), identifier, nil
}
