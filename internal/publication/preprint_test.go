package publication

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPreprint(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"arxiv url", "https://arxiv.org/abs/1706.03762", true},
		{"arxiv doi", "https://doi.org/10.48550/arXiv.1706.03762", true},
		{"biorxiv url", "https://www.biorxiv.org/content/10.1101/2023.01.01.522222", true},
		{"medrxiv mixed case", "https://www.MedRxiv.org/content/10.1101/2021.05.05.21256383", true},
		{"chemrxiv doi", "10.26434/chemrxiv-2023-abc12", true},
		{"zenodo archive", "https://zenodo.org/record/4594066", true},
		{"journal doi", "https://doi.org/10.1021/acs.jcim.3c01234", false},
		{"github repo", "https://github.com/gnina/gnina", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPreprint(tt.in))
		})
	}
}

func TestIdentifyPreprint(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantServer string
		wantID     string
		wantOK     bool
	}{
		{
			name:       "arxiv doi",
			in:         "https://doi.org/10.48550/arXiv.1706.03762",
			wantServer: "arxiv",
			wantID:     "1706.03762",
			wantOK:     true,
		},
		{
			name:       "arxiv doi with version",
			in:         "10.48550/arxiv.2104.04077v2",
			wantServer: "arxiv",
			wantID:     "2104.04077",
			wantOK:     true,
		},
		{
			name:       "arxiv abs url",
			in:         "https://arxiv.org/abs/1706.03762",
			wantServer: "arxiv",
			wantID:     "1706.03762",
			wantOK:     true,
		},
		{
			name:       "arxiv pdf url",
			in:         "https://arxiv.org/pdf/2301.04567",
			wantServer: "arxiv",
			wantID:     "2301.04567",
			wantOK:     true,
		},
		{
			name:       "biorxiv doi",
			in:         "https://doi.org/10.1101/2023.01.01.522222",
			wantServer: "biorxiv",
			wantID:     "2023.01.01.522222",
			wantOK:     true,
		},
		{
			name:       "bare biorxiv doi",
			in:         "10.1101/2020.12.15.422967",
			wantServer: "biorxiv",
			wantID:     "2020.12.15.422967",
			wantOK:     true,
		},
		{
			name:       "biorxiv content url without doi",
			in:         "https://www.biorxiv.org/content/876543v1",
			wantServer: "biorxiv",
			wantID:     "876543v1",
			wantOK:     true,
		},
		{
			name:       "chemrxiv dashed doi",
			in:         "https://doi.org/10.26434/chemrxiv-2023-abc12",
			wantServer: "chemrxiv",
			wantID:     "2023-abc12",
			wantOK:     true,
		},
		{
			name:       "chemrxiv legacy dotted doi",
			in:         "10.26434/chemrxiv.14159638.v1",
			wantServer: "chemrxiv",
			wantID:     "14159638.v1",
			wantOK:     true,
		},
		{
			name:       "chemrxiv numeric article url",
			in:         "https://chemrxiv.org/articles/12345678",
			wantServer: "chemrxiv",
			wantID:     "12345678",
			wantOK:     true,
		},
		{
			name:   "journal doi",
			in:     "https://doi.org/10.1021/acs.jcim.3c01234",
			wantOK: false,
		},
		{
			name:   "github repo",
			in:     "https://github.com/gnina/gnina",
			wantOK: false,
		},
		{
			name:   "empty",
			in:     "",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, id, ok := identifyPreprint(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantServer, server)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
