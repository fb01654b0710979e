package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "gl****yz", maskSecret("glpat-abcdefxyz"))
}

func TestCheckRequiredConfig(t *testing.T) {
	for _, v := range append(append(append([]string{}, requiredVars...), botVars...), optionalVars...) {
		t.Setenv(v, "")
	}

	result := CheckRequiredConfig()
	assert.Equal(t, []string{"GITLAB_PERSONAL_ACCESS_TOKEN"}, result.Missing)
	assert.Len(t, result.Warnings, 2)

	t.Setenv("GITLAB_PERSONAL_ACCESS_TOKEN", "glpat-abcdefxyz")
	t.Setenv("GITLAB_REPOSITORY", "course/questions")
	t.Setenv("LLM_PROVIDER", "ollama")

	result = CheckRequiredConfig()
	assert.Empty(t, result.Missing)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "gl****yz", result.Present["GITLAB_PERSONAL_ACCESS_TOKEN"])
	assert.Equal(t, "course/questions", result.Present["GITLAB_REPOSITORY"])
}
