package scrape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanContentDropsBoilerplate(t *testing.T) {
	in := strings.Join([]string{
		"The central bank announced a rate decision on Monday morning.",
		"Subscribe to our newsletter for daily updates!",
		"Advertisement",
		"Officials said the move reflects persistent inflation pressure.",
		"광고 문의는 이메일로 부탁드립니다",
		"short",
	}, "\n")

	out := CleanContent(in)

	assert.Contains(t, out, "central bank announced")
	assert.Contains(t, out, "persistent inflation")
	assert.NotContains(t, out, "Subscribe")
	assert.NotContains(t, out, "광고")
	assert.NotContains(t, out, "short")
}

func TestCleanContentCollapsesWhitespace(t *testing.T) {
	out := CleanContent("A  sentence   with \t odd    spacing throughout it.")
	assert.Equal(t, "A sentence with odd spacing throughout it.", out)
}

func TestCleanContentBoundsLength(t *testing.T) {
	long := strings.Repeat("word ", 200) // ~1000 chars per paragraph
	in := long + "\n" + long + "\n" + long

	out := CleanContent(in)

	assert.LessOrEqual(t, len(out), maxContentChars+2)
	assert.NotEmpty(t, out)
}

func TestCleanContentEmptyInput(t *testing.T) {
	assert.Empty(t, CleanContent(""))
	assert.Empty(t, CleanContent("hi\nok"))
}
