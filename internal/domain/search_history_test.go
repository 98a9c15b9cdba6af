package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushRecent(t *testing.T) {
	tests := []struct {
		name  string
		list  []string
		query string
		want  []string
	}{
		{"empty list", nil, "alps", []string{"alps"}},
		{"prepends new query", []string{"beach"}, "alps", []string{"alps", "beach"}},
		{"moves repeat to front", []string{"a", "b", "c"}, "c", []string{"c", "a", "b"}},
		{"repeat already first", []string{"a", "b"}, "a", []string{"a", "b"}},
		{"blank query ignored", []string{"a"}, "", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PushRecent(tt.list, tt.query, RecentSearchLimit))
		})
	}
}

func TestPushRecent_CapsAtLimit(t *testing.T) {
	var list []string
	for i := range 25 {
		list = PushRecent(list, fmt.Sprintf("q%d", i), RecentSearchLimit)
	}

	assert.Len(t, list, RecentSearchLimit)
	assert.Equal(t, "q24", list[0])
	assert.Equal(t, "q5", list[RecentSearchLimit-1])
}

func TestPushRecent_DoesNotMutateInput(t *testing.T) {
	list := []string{"a", "b", "c"}
	_ = PushRecent(list, "b", RecentSearchLimit)
	assert.Equal(t, []string{"a", "b", "c"}, list)
}
