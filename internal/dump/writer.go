package dump

import (
	"fmt"
	"io"
	"sync"

	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

const collectionFooter = "</marcx:collection>\n"

// Writer is the output shared by the dump workers. Every record is written with a
// single call on the underlying writer while holding the lock, so records never
// interleave. The XML collection header and footer are written at most once, in the
// same charset as the records, and a byte order mark only ever starts the output.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	format  Format
	charset Charset
	header  bool
	footer  bool
	started bool
	records int64
}

func NewWriter(out io.Writer, format Format, charset Charset) *Writer {
	return &Writer{out: out, format: format, charset: charset}
}

func (w *Writer) framed() bool {
	return w.format == FormatXML
}

// WriteHeader writes the collection header for framed formats.
func (w *Writer) WriteHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.framed() || w.header {
		return nil
	}
	w.header = true
	header := fmt.Sprintf("<?xml version=\"1.0\" encoding=\"%s\"?>\n<marcx:collection xmlns:marcx=\"%s\">\n",
		w.charset.Name, marcx.Namespace)
	return w.writeText(header)
}

// WriteFooter closes the collection for framed formats.
func (w *Writer) WriteFooter() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.framed() || w.footer {
		return nil
	}
	w.footer = true
	return w.writeText(collectionFooter)
}

// WriteRecord serializes rec in the writer's format and charset and writes it.
func (w *Writer) WriteRecord(rec *record.Record) error {
	encoded, err := Serialize(w.format, rec, w.charset)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", rec.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.write(encoded); err != nil {
		return err
	}
	w.records++
	return nil
}

// Records is the number of records written.
func (w *Writer) Records() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

func (w *Writer) writeText(s string) error {
	encoded, err := w.charset.Encode([]byte(s))
	if err != nil {
		return err
	}
	return w.write(encoded)
}

func (w *Writer) write(b []byte) error {
	if !w.started && len(w.charset.BOM) > 0 {
		b = append(append(make([]byte, 0, len(w.charset.BOM)+len(b)), w.charset.BOM...), b...)
	}
	if _, err := w.out.Write(b); err != nil {
		return err
	}
	w.started = true
	return nil
}

// Serialize renders one record in format and charset. Every format ends the record
// with a newline, except ISO 2709 which has its own record terminator.
func Serialize(format Format, rec *record.Record, charset Charset) ([]byte, error) {
	r, err := marcx.Decode(rec.Content)
	if err != nil {
		return nil, err
	}

	var b []byte
	switch format {
	case FormatXML, FormatLineXML:
		b = append(marcx.Encode(r, "marcx"), '\n')
	case FormatLine:
		b = marcx.LineFormat(r)
	case FormatJSON:
		if b, err = marcx.JSONFormat(r); err != nil {
			return nil, err
		}
	case FormatISO:
		return marcx.ISO2709Format(r, charset.Encode)
	default:
		return nil, fmt.Errorf("unknown format '%s'", format)
	}
	return charset.Encode(b)
}

// CheckFormatCharset rejects charsets that cannot carry the format's structure.
// ISO 2709 counts bytes in ASCII digits, so the charset must keep ASCII unchanged.
func CheckFormatCharset(format Format, charset Charset) error {
	if format == FormatISO && !charset.ASCIICompatible() {
		return fmt.Errorf("format %s needs an ASCII compatible encoding, not '%s'", FormatISO, charset.Name)
	}
	return nil
}
