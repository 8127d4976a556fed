package reconcile

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/fdsync/internal/models"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name       string
		src, dst   []int64
		wantInsert []int64
		wantDelete []int64
	}{
		{"overlap", []int64{1, 2, 3}, []int64{2, 3, 4}, []int64{1}, []int64{4}},
		{"empty source deletes everything", nil, []int64{7, 8}, []int64{}, []int64{7, 8}},
		{"empty destination inserts everything", []int64{7, 8}, nil, []int64{7, 8}, []int64{}},
		{"identical sets are a no-op", []int64{5, 6}, []int64{6, 5}, []int64{}, []int64{}},
		{"both empty", nil, nil, []int64{}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, del := Diff(NewSet(tt.src...), NewSet(tt.dst...))
			assert.Equal(t, tt.wantInsert, Sorted(ins, cmp.Compare[int64]))
			assert.Equal(t, tt.wantDelete, Sorted(del, cmp.Compare[int64]))
		})
	}
}

func TestDiff_Links(t *testing.T) {
	src := NewSet(models.Link{Owner: 1, Descriptor: 10}, models.Link{Owner: 1, Descriptor: 11})
	dst := NewSet(models.Link{Owner: 1, Descriptor: 11}, models.Link{Owner: 2, Descriptor: 10})

	ins, del := Diff(src, dst)
	assert.Equal(t, []models.Link{{Owner: 1, Descriptor: 10}}, Sorted(ins, compareLinks))
	assert.Equal(t, []models.Link{{Owner: 2, Descriptor: 10}}, Sorted(del, compareLinks))
}
