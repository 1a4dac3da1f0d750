package domain

import (
	"path/filepath"
	"testing"

	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelFromPath(t *testing.T) {
	root := filepath.Join("data", "test")

	tests := []struct {
		name    string
		path    string
		want    Label
		wantErr error
	}{
		{
			name: "category and style",
			path: filepath.Join(root, "sofas", "modern", "a.jpg"),
			want: NewLabel("sofas", "modern"),
		},
		{
			name: "deeper tree uses two innermost directories",
			path: filepath.Join(root, "furniture", "sofas", "modern", "a.jpg"),
			want: NewLabel("sofas", "modern"),
		},
		{
			name:    "one level is invalid",
			path:    filepath.Join(root, "sofas", "a.jpg"),
			wantErr: e.ErrInvalidDatasetLayout,
		},
		{
			name:    "file at root is invalid",
			path:    filepath.Join(root, "a.jpg"),
			wantErr: e.ErrInvalidDatasetLayout,
		},
		{
			name:    "outside of root",
			path:    filepath.Join("data", "other", "x", "y", "a.jpg"),
			wantErr: e.ErrInvalidDatasetLayout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LabelFromPath(root, tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabel_String(t *testing.T) {
	assert.Equal(t, "sofas_modern", NewLabel("sofas", "modern").String())
	assert.True(t, Label{}.IsZero())
	assert.False(t, NewLabel("a", "").IsZero())
}
