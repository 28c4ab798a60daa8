package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationAppendAndExtend(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewMessage(RoleUser, "hi"))
	conv.Append(NewMessage(RoleAssistant, ""))

	conv.ExtendLast("Hel")
	conv.ExtendLast("lo")

	require.Equal(t, 2, conv.Len())
	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, last.Role)
	assert.Equal(t, "Hello", last.Content)

	// Earlier messages are untouched by streaming.
	assert.Equal(t, "hi", conv.Messages()[0].Content)
}

func TestConversationMessagesIsACopy(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewMessage(RoleUser, "hi"))

	snapshot := conv.Messages()
	snapshot[0].Content = "mutated"

	fresh := conv.Messages()
	assert.Equal(t, "hi", fresh[0].Content)
}

func TestConversationExtendLastEmptyNoop(t *testing.T) {
	conv := NewConversation()
	conv.ExtendLast("ghost")
	assert.Equal(t, 0, conv.Len())
	_, ok := conv.Last()
	assert.False(t, ok)
}

func TestNewMessageAssignsID(t *testing.T) {
	a := NewMessage(RoleUser, "x")
	b := NewMessage(RoleUser, "x")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
