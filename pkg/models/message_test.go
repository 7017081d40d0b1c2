package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope(t *testing.T) {
	assert.True(t, ScopeGlobal.IsGlobal())
	assert.False(t, Scope(7).IsGlobal())
	assert.Equal(t, int64(7), Scope(7).RoomID())
}
