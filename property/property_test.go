package property_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hsisomap/hsisomap/property"
)

func TestList_ExplicitZeroIsNotMissing(t *testing.T) {
	p := property.List{"K": 0}

	v, ok := p.Lookup("K")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, 0, p.Int("K", 30))

	_, ok = p.Lookup("POOL")
	assert.False(t, ok)
	assert.Equal(t, 130, p.Int("POOL", 130))
	assert.False(t, p.Has("POOL"))
}

func TestList_SetOnNil(t *testing.T) {
	var p property.List
	p.Set("A", 1.9)
	assert.Equal(t, 1, p.Int("A", 0))
	assert.Equal(t, 1.9, p.Float("A", 0))
}

func TestList_Merge(t *testing.T) {
	a := property.List{"A": 1, "B": 2}
	b := property.List{"B": 3}
	m := a.Merge(b)

	assert.Equal(t, 1.0, m["A"])
	assert.Equal(t, 3.0, m["B"])
	assert.Equal(t, 2.0, a["B"], "merge must not mutate the receiver")
}

func TestStringList(t *testing.T) {
	var s property.StringList
	s.Set("interleave", "bip")

	assert.True(t, s.Has("interleave"))
	assert.Equal(t, "bip", s.String("interleave", "bsq"))
	assert.Equal(t, "bsq", s.String("missing", "bsq"))

	s.Set("empty", "")
	v, ok := s.Lookup("empty")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}
