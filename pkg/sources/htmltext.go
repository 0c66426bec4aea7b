package sources

import (
	"regexp"
	"strings"
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
	blankLinePattern = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// flattenHTML reduces the HTML fragments that status feeds embed in incident
// descriptions to plain text: tags become breaks or disappear, entities are
// unescaped, and runs of blank lines collapse to at most one.
func flattenHTML(s string) string {
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = strings.ReplaceAll(s, "</p>", "\n\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	).Replace(s)
	s = blankLinePattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// strongPattern extracts the first <strong> tag content, which statuspage RSS
// feeds use to carry the incident status label.
var strongPattern = regexp.MustCompile(`<strong>(.*?)</strong>`)

func strongTag(s string) string {
	m := strongPattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
