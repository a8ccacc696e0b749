package frontier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitedSet_AddAndContains(t *testing.T) {
	v := NewVisitedSet()
	assert.False(t, v.Contains("http://a/x"))

	v.Add("http://a/x")
	assert.True(t, v.Contains("http://a/x"))
	assert.Equal(t, 1, v.Len())
}

func TestVisitedSet_AddIsIdempotent(t *testing.T) {
	v := NewVisitedSet()
	v.Add("http://a/x")
	v.Add("http://a/x")
	assert.Equal(t, 1, v.Len())
}
