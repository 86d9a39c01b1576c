package bufwriter

import (
	"fmt"
	"strings"
)

// Writer accumulates rendered SQL.
type Writer struct {
	buf strings.Builder
}

func (w *Writer) WriteString(s string) {
	w.buf.WriteString(s)
}

func (w *Writer) Writef(format string, args ...any) {
	fmt.Fprintf(&w.buf, format, args...)
}

func (w *Writer) WriteLine(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *Writer) WriteLinef(format string, args ...any) {
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

func (w *Writer) String() string {
	return w.buf.String()
}

func (w *Writer) Reset() {
	w.buf.Reset()
}
