package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptComposerDeterministic(t *testing.T) {
	composer := NewPromptComposer(DefaultBasePrompt, DefaultPromptRules())

	first := composer.Compose("/templates/luxury")
	second := composer.Compose("/templates/luxury")
	assert.Equal(t, first, second)
}

func TestPromptComposerMatchesFirstRule(t *testing.T) {
	composer := NewPromptComposer(DefaultBasePrompt, DefaultPromptRules())

	luxury := composer.Compose("/templates/luxury")
	assert.Contains(t, luxury, "luxury template collection")

	// The more specific rule must win over its parent fragment.
	gallery := composer.Compose("/templates/minimal")
	assert.Contains(t, gallery, "template gallery")
	assert.NotContains(t, gallery, "luxury template collection")
}

func TestPromptComposerFallsBackToBase(t *testing.T) {
	composer := NewPromptComposer(DefaultBasePrompt, DefaultPromptRules())

	assert.Equal(t, DefaultBasePrompt, composer.Compose("/unknown/page"))
	assert.Equal(t, composer.Compose(""), composer.Compose("/unknown/page"))
}

func TestPromptComposerDeclaredOrder(t *testing.T) {
	composer := NewPromptComposer("base", []PromptRule{
		{Fragment: "/a", Augmentation: "first"},
		{Fragment: "/a/b", Augmentation: "second"},
	})

	// First matching entry wins even when a later one is more specific.
	assert.Equal(t, "base\n\nfirst", composer.Compose("/a/b"))
}
