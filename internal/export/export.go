// Package export renders notes to Markdown. Note content is stored as
// rich-text markup; the exporter converts it so notes can leave the
// system as plain portable files.
package export

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/notekeepapp/notekeep-server/internal/domain"
)

// htmlTagPattern matches common HTML tags to detect if a string contains markup.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// containsHTML checks if a string appears to contain HTML markup.
func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// ContentToMarkdown converts rich-text note content to Markdown.
// Content without markup is returned unchanged, as is content that
// fails conversion.
func ContentToMarkdown(content string) string {
	if content == "" || !containsHTML(content) {
		return content
	}

	markdown, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(markdown)
}

// NoteToMarkdown renders a full note as a Markdown document: title
// heading, tag line, then the converted content.
func NoteToMarkdown(note *domain.Note) string {
	var b strings.Builder

	title := note.Title
	if title == "" {
		title = fmt.Sprintf("Note %d", note.ID)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(note.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(note.Tags, ", "))
	}

	if content := ContentToMarkdown(note.Content); content != "" {
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String()
}
