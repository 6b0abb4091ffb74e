package publication

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "resolver url unchanged",
			in:   "https://doi.org/10.1021/acs.jcim.3c01234",
			want: "https://doi.org/10.1021/acs.jcim.3c01234",
		},
		{
			name: "bare doi",
			in:   "10.1021/acs.jcim.3c01234",
			want: "https://doi.org/10.1021/acs.jcim.3c01234",
		},
		{
			name: "dx resolver host",
			in:   "http://dx.doi.org/10.1093/bioinformatics/btz111",
			want: "https://doi.org/10.1093/bioinformatics/btz111",
		},
		{
			name: "version suffix stripped",
			in:   "https://doi.org/10.1101/2023.01.01.522222v2",
			want: "https://doi.org/10.1101/2023.01.01.522222",
		},
		{
			name: "stacked landing page cruft",
			in:   "https://doi.org/10.1101/2020.03.05.979401v1.full.pdf",
			want: "https://doi.org/10.1101/2020.03.05.979401",
		},
		{
			name: "query string dropped",
			in:   "https://doi.org/10.1002/jcc.21334?via=ihub",
			want: "https://doi.org/10.1002/jcc.21334",
		},
		{
			name: "fragment dropped",
			in:   "10.1021/acs.jctc.1c00302#supplementary",
			want: "https://doi.org/10.1021/acs.jctc.1c00302",
		},
		{
			name: "trailing bracket from markdown",
			in:   "https://doi.org/10.1039/D1SC05976A)",
			want: "https://doi.org/10.1039/D1SC05976A",
		},
		{
			name: "trailing punctuation",
			in:   "10.1186/s13321-021-00522-2.",
			want: "https://doi.org/10.1186/s13321-021-00522-2",
		},
		{
			name: "publisher url with doi tail",
			in:   "https://link.springer.com/article/10.1007/s10822-021-00413-6",
			want: "https://doi.org/10.1007/s10822-021-00413-6",
		},
		{
			name: "plain url passes through",
			in:   "https://github.com/gnina/gnina",
			want: "https://github.com/gnina/gnina",
		},
		{
			name: "surrounding whitespace",
			in:   "  10.1021/acs.jcim.3c01234  ",
			want: "https://doi.org/10.1021/acs.jcim.3c01234",
		},
		{
			name: "free text is not a doi",
			in:   "Journal of Cheminformatics",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "resolver url with no doi behind it",
			in:   "https://doi.org/not-a-doi",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDOI(tt.in)
			assert.Equal(t, tt.want, got)

			// Normalizing an already normalized value must be a no-op.
			assert.Equal(t, got, NormalizeDOI(got))
		})
	}
}

func TestCleanDOI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean doi untouched", "10.1021/acs.jcim.3c01234", "10.1021/acs.jcim.3c01234"},
		{"version", "10.1101/2023.01.01.522222v2", "10.1101/2023.01.01.522222"},
		{"version then full", "10.1101/2023.01.01.522222v1.full", "10.1101/2023.01.01.522222"},
		{"pdf extension", "10.1101/2023.01.01.522222.pdf", "10.1101/2023.01.01.522222"},
		{"svg extension", "10.1101/2023.01.01.522222.svg", "10.1101/2023.01.01.522222"},
		{"brackets and dot", "10.1039/D1SC05976A).", "10.1039/D1SC05976A"},
		{"trailing slash", "10.1093/nar/gkaa971/", "10.1093/nar/gkaa971"},
		{"query and version", "10.1101/523679v3?rss=1", "10.1101/523679"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanDOI(tt.in))
		})
	}
}

func TestExtractDOI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"resolver url", "https://doi.org/10.1021/acs.jcim.3c01234", "10.1021/acs.jcim.3c01234"},
		{"bare doi", "10.1186/s13321-021-00522-2", "10.1186/s13321-021-00522-2"},
		{"trailing markdown bracket", "https://doi.org/10.1039/D1SC05976A)", "10.1039/D1SC05976A"},
		{"percent encoded slash", "https://doi.org/10.1021%2Facs.jcim.3c01234", "10.1021/acs.jcim.3c01234"},
		{"plain url", "https://github.com/gnina/gnina", ""},
		{"free text", "Journal of Cheminformatics", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDOI(tt.in))
		})
	}
}
