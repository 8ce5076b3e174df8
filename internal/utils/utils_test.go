package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type row struct {
	ID       string  `db:"id"`
	Name     string  `db:"name"`
	Ignored  string  `db:"-"`
	Untagged string
	Optional *string `db:"optional"`
}

func TestStructTagValues(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "optional"}, StructTagValues(row{}))
	assert.Equal(t, []string{"id", "name", "optional"}, StructTagValues(&row{}))
}

func TestStructToMap(t *testing.T) {
	m := StructToMap(&row{ID: "a", Name: "b", Ignored: "c", Untagged: "d"})

	assert.Equal(t, map[string]any{"id": "a", "name": "b", "optional": (*string)(nil)}, m)
}

func TestStructTagValues_PanicsOnNonStruct(t *testing.T) {
	assert.Panics(t, func() { StructTagValues(42) })
}

func TestNanoID(t *testing.T) {
	assert.Len(t, NanoID(), NanoidSize)
	assert.Len(t, ShortNanoID(), ShortNanoidSize)
	assert.Len(t, NanoIDSize(0), NanoidSize)
	assert.NotEqual(t, NanoID(), NanoID())
}
