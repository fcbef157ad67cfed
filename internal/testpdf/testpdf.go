// Package testpdf builds minimal PDF fixtures for tests. Offsets in the
// cross-reference table are computed while writing, so the output is always
// internally consistent.
package testpdf

import (
	"bytes"
	"fmt"
)

// Minimal returns a complete one-page PDF with an empty content stream.
func Minimal() []byte {
	var buf bytes.Buffer

	offsets := make([]int, 0, 4)

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R >>\nendobj\n")
	obj("4 0 obj\n<< /Length 0 >>\nstream\nendstream\nendobj\n")

	xref := buf.Len()

	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", len(offsets)+1))
	buf.WriteString("0000000000 65535 f \n")

	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}

	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref))

	return buf.Bytes()
}
