package feedback

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"ok", "とても便利です", nil},
		{"trims", "  いいね  ", nil},
		{"empty", "", ErrEmptyContent},
		{"whitespace only", "   ", ErrEmptyContent},
		{"too long", strings.Repeat("a", MaxContentLen+1), ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{Content: tt.content}
			err := e.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.content), e.Content)
		})
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Add(ctx, Entry{UserID: "u1", Content: "first", CreatedAt: base}))
	require.NoError(t, store.Add(ctx, Entry{UserID: "u2", Content: "second", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Add(ctx, Entry{UserID: "u3", Content: "third", CreatedAt: base.Add(2 * time.Hour)}))

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Content)
	assert.Equal(t, "second", entries[1].Content)
	assert.NotZero(t, entries[0].ID)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "no limit returns everything")
}
