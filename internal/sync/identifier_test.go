package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		folder  []string
		title   string
		wantErr bool
	}{
		{name: "bare title", raw: "Github", folder: nil, title: "Github"},
		{name: "qualified", raw: "Personal/Google", folder: []string{"Personal"}, title: "Google"},
		{name: "deeply qualified", raw: "Work/Infra/AWS root", folder: []string{"Work", "Infra"}, title: "AWS root"},
		{name: "surrounding whitespace", raw: "  Github  ", folder: nil, title: "Github"},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace only", raw: "   ", wantErr: true},
		{name: "empty segment", raw: "Personal//Google", wantErr: true},
		{name: "trailing slash", raw: "Personal/", wantErr: true},
		{name: "leading slash", raw: "/Google", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseIdentifier(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.title, id.Title)
			if len(tt.folder) == 0 {
				assert.Empty(t, id.Folder)
				assert.False(t, id.Qualified())
			} else {
				assert.Equal(t, tt.folder, id.Folder)
				assert.True(t, id.Qualified())
			}
		})
	}
}

func TestParseIdentifiersFailsFast(t *testing.T) {
	_, err := ParseIdentifiers([]string{"Github", "Bad//Path"})
	require.Error(t, err)

	ids, err := ParseIdentifiers([]string{"Github", "Personal/Google"})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "Personal/Google", ids[1].String())
}
