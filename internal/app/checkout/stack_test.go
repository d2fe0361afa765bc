package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStack_RequireShared(t *testing.T) {
	var nilStack *Stack
	require.ErrorIs(t, nilStack.RequireShared(), ErrProcessLocalStores)

	memory := &Stack{}
	require.False(t, memory.Shared())
	require.ErrorIs(t, memory.RequireShared(), ErrProcessLocalStores)

	postgres := &Stack{DB: &gorm.DB{}}
	require.True(t, postgres.Shared())
	require.NoError(t, postgres.RequireShared())
}
