package fetcher

import (
	"fmt"
	"testing"

	"ewintr.nl/tubedigest/model"
	"github.com/stretchr/testify/assert"
)

func TestChunkIDs(t *testing.T) {
	ids := func(n int) []model.YoutubeVideoID {
		res := make([]model.YoutubeVideoID, n)
		for i := range res {
			res[i] = model.YoutubeVideoID(fmt.Sprintf("vid-%d", i))
		}
		return res
	}

	for _, tc := range []struct {
		name  string
		count int
		size  int
		exp   []int
	}{
		{name: "empty", count: 0, size: 50, exp: []int{}},
		{name: "single partial chunk", count: 3, size: 50, exp: []int{3}},
		{name: "exact chunk", count: 4, size: 4, exp: []int{4}},
		{name: "multiple chunks", count: 9, size: 4, exp: []int{4, 4, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			chunks := chunkIDs(ids(tc.count), tc.size)
			got := make([]int, 0, len(chunks))
			for _, chunk := range chunks {
				got = append(got, len(chunk))
			}
			assert.Equal(t, tc.exp, got)
		})
	}
}
