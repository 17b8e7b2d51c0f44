package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/treeq/internal/types"
)

func TestMergeOrdersByRawScore(t *testing.T) {
	folders := []Hit[string]{{ID: "F", Score: 0.10}}
	items := []Hit[int]{{ID: "I", Score: 0.05}}

	merged := Merge(folders, items)
	require.Len(t, merged, 2)
	assert.Equal(t, types.ID("I"), merged[0].ID)
	assert.Equal(t, KindItem, merged[0].Kind)
	assert.NotNil(t, merged[0].Item)
	assert.Nil(t, merged[0].Folder)
	assert.Equal(t, types.ID("F"), merged[1].ID)
	assert.Equal(t, "folder", merged[1].Kind.String())
}

func TestMergeTiesKeepFoldersFirst(t *testing.T) {
	folders := []Hit[string]{{ID: "F1", Score: 0.2}, {ID: "F2", Score: 0.2}}
	items := []Hit[string]{{ID: "I1", Score: 0.2}, {ID: "I0", Score: 0.1}}

	merged := Merge(folders, items)
	got := make([]types.ID, len(merged))
	for i, m := range merged {
		got[i] = m.ID
	}
	assert.Equal(t, []types.ID{"I0", "F1", "F2", "I1"}, got)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge[string, string](nil, nil))
}
