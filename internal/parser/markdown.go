package parser

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter is the subset of a learning/principle file's leading YAML
// block (--- ... ---) oracle-v2 reads back out.
type frontMatter struct {
	Title string `yaml:"title"`
}

// section is one heading-delimited block of a markdown file.
type section struct {
	Heading string
	Body    string
}

// splitOnHeading splits content on lines beginning with prefix (e.g. "### "
// or "## "), returning one section per heading. Content before the first
// matching heading is discarded — §4.3 only defines chunking from the
// first heading of the expected level onward.
func splitOnHeading(content, prefix string) []section {
	lines := strings.Split(content, "\n")

	var sections []section
	var current *section
	var body []string

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(strings.Join(body, "\n"))
			sections = append(sections, *current)
		}
	}

	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			flush()
			heading := strings.TrimSpace(strings.TrimPrefix(line, prefix))
			current = &section{Heading: heading}
			body = nil
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return sections
}

var bulletPattern = regexp.MustCompile(`^[-*]\s+(.*)$`)

// topLevelBullets extracts the text of each top-level bullet line
// (`^[-*]\s+`) within a section body, in order.
func topLevelBullets(body string) []string {
	var bullets []string
	for _, line := range strings.Split(body, "\n") {
		if m := bulletPattern.FindStringSubmatch(strings.TrimRight(line, " \t")); m != nil {
			bullets = append(bullets, strings.TrimSpace(m[1]))
		}
	}
	return bullets
}

// frontMatterTitle extracts a `title:` value from a leading YAML front
// matter block (--- ... ---), returning "" if none is present or the
// block doesn't parse as YAML.
func frontMatterTitle(content string) string {
	if !strings.HasPrefix(content, "---") {
		return ""
	}
	rest := strings.TrimPrefix(content, "---")
	end := strings.Index(rest, "---")
	if end == -1 {
		return ""
	}
	block := rest[:end]

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return ""
	}
	return fm.Title
}
