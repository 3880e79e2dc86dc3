package chunk_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/markl/internal/chunk"
)

func TestLooksLikeHTML(t *testing.T) {
	t.Run("should detect tags", func(t *testing.T) {
		require.True(t, chunk.LooksLikeHTML("<p>hello</p>"))
		require.True(t, chunk.LooksLikeHTML("text with <br/> break"))
		require.True(t, chunk.LooksLikeHTML("<!DOCTYPE html>"))
	})

	t.Run("should reject plain text", func(t *testing.T) {
		require.False(t, chunk.LooksLikeHTML("just words"))
		require.False(t, chunk.LooksLikeHTML("a < b and c > d"))
	})
}

func TestSplit(t *testing.T) {
	t.Run("should return single chunk when text fits", func(t *testing.T) {
		chunks := chunk.Split("Hello world", 1000, false)

		require.Len(t, chunks, 1)
		require.Equal(t, 1, chunks[0].Index)
		require.Equal(t, "Hello world", chunks[0].Text)
	})

	t.Run("should return nil for blank text", func(t *testing.T) {
		require.Nil(t, chunk.Split("   \n\t  ", 100, false))
		require.Nil(t, chunk.Split("", 100, true))
	})

	t.Run("should split plain text on paragraph boundaries", func(t *testing.T) {
		para := strings.Repeat("word ", 12)
		text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

		chunks := chunk.Split(text, 70, false)

		require.Greater(t, len(chunks), 1)
		for i, c := range chunks {
			require.Equal(t, i+1, c.Index)
			require.LessOrEqual(t, utf8.RuneCountInString(c.Text), 70)
		}
	})

	t.Run("should fall back to sentences for long paragraphs", func(t *testing.T) {
		sentence := "This sentence is reasonably short. "
		text := strings.TrimSpace(strings.Repeat(sentence, 10))

		chunks := chunk.Split(text, 80, false)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			require.LessOrEqual(t, utf8.RuneCountInString(c.Text), 80)
		}
	})

	t.Run("should pass oversized single words through whole", func(t *testing.T) {
		long := strings.Repeat("x", 250)
		text := "short intro " + long + " short outro"

		chunks := chunk.Split(text, 100, false)

		found := false
		for _, c := range chunks {
			if c.Text == long {
				found = true
			}
		}
		require.True(t, found)
	})

	t.Run("should never split inside a tag", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 60; i++ {
			sb.WriteString(`<p class="description">some translated sentence goes here</p>`)
		}
		text := sb.String()

		chunks := chunk.Split(text, 200, true)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			require.Equal(t, strings.Count(c.Text, "<"), strings.Count(c.Text, ">"))
			require.False(t, strings.HasSuffix(c.Text, "<p"))
		}
	})

	t.Run("should tighten the limit for list markup", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("<ul>")
		for i := 0; i < 40; i++ {
			sb.WriteString("<li>list entry with a bit of translatable text inside it</li>")
		}
		sb.WriteString("</ul>")
		text := sb.String()

		chunks := chunk.Split(text, 2000, true)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			require.LessOrEqual(t, utf8.RuneCountInString(c.Text), chunk.ListMaxSize)
		}
	})

	t.Run("should honor a caller-chosen list limit", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("<ul>")
		for i := 0; i < 40; i++ {
			sb.WriteString("<li>list entry with a bit of translatable text inside it</li>")
		}
		sb.WriteString("</ul>")
		text := sb.String()

		chunks := chunk.SplitWithListLimit(text, 2000, 150, true)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			require.LessOrEqual(t, utf8.RuneCountInString(c.Text), 150)
		}
	})

	t.Run("should apply the default limit when maxSize is zero", func(t *testing.T) {
		text := strings.TrimSpace(strings.Repeat("word ", 500))

		chunks := chunk.Split(text, 0, false)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			require.LessOrEqual(t, utf8.RuneCountInString(c.Text), chunk.DefaultMaxSize)
		}
	})
}

func TestJoin(t *testing.T) {
	t.Run("should reassemble html chunks without separators", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 50; i++ {
			sb.WriteString(`<p>paragraph text that is long enough to force splitting</p>`)
		}
		text := sb.String()

		chunks := chunk.Split(text, 300, true)
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		require.Equal(t, text, chunk.Join(texts, true))
	})

	t.Run("should reassemble plain chunks with blank lines", func(t *testing.T) {
		paras := []string{
			strings.TrimSpace(strings.Repeat("alpha ", 20)),
			strings.TrimSpace(strings.Repeat("beta ", 20)),
			strings.TrimSpace(strings.Repeat("gamma ", 20)),
		}
		text := strings.Join(paras, "\n\n")

		chunks := chunk.Split(text, 130, false)
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		require.Equal(t, text, chunk.Join(texts, false))
	})
}
