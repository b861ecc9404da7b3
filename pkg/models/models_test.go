package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNIP(t *testing.T) {
	assert.Equal(t, "NIP123", NormalizeNIP(" NIP 123 "))
	assert.Equal(t, strings.Repeat("X", NIPMaxLen), NormalizeNIP(strings.Repeat("X", 30)))
	assert.Equal(t, "", NormalizeNIP("   "))
}

func TestStrPtr(t *testing.T) {
	assert.Nil(t, StrPtr(""))

	p := StrPtr("alice")
	if assert.NotNil(t, p) {
		assert.Equal(t, "alice", *p)
	}
}
