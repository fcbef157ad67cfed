package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTitle(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		want     string
	}{
		{"strips extension", "report.pdf", "report"},
		{"underscores become spaces", "annual_report_2025.pdf", "annual report 2025"},
		{"drops noise characters", "notes (final)!.pdf", "notes final"},
		{"collapses whitespace", "a   b\t c.pdf", "a b c"},
		{"keeps allowed symbols", "Q3 $report #7.pdf", "Q3 $report #7"},
		{"inner dots are noise", "archive.tar.pdf", "archivetar"},
		{"falls back when nothing survives", "???.pdf", "Untitled Document"},
		{"empty filename", "", "Untitled Document"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, defaultTitle(tc.filename))
		})
	}

	t.Run("truncates long names", func(t *testing.T) {
		long := strings.Repeat("a", 80) + ".pdf"

		got := defaultTitle(long)

		assert.Len(t, got, maxTitleLength)
	})
}
