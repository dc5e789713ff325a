package backend

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dusk-indust/treemerge/internal/ast"
	"github.com/dusk-indust/treemerge/internal/freeze"
)

var (
	mdHeading   = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?(?:[ \t]+#+)?[ \t]*$`)
	mdFence     = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})\\s*([^`\\s]*)")
	mdListItem  = regexp.MustCompile(`^ {0,3}(?:[-*+]|\d{1,9}[.)])(?:[ \t]+|$)`)
	mdTableLine = regexp.MustCompile(`^\s*\|`)
)

// Markdown parses Markdown into a heading-section tree. Each ATX heading
// opens a section that runs until the next heading of the same or a higher
// level; body blocks (paragraphs, list items, fences, HTML comments, tables)
// are children of their innermost section.
type Markdown struct{}

// NewMarkdown returns the Markdown parser.
func NewMarkdown() *Markdown { return &Markdown{} }

func (*Markdown) Format() ast.Format {
	return ast.Format{
		Name:          "markdown",
		CommentStyles: []string{freeze.StyleHTML},
		FreezeToken:   "treemerge",
		Extensions:    []string{".md", ".markdown"},
	}
}

type mdSection struct {
	level int
	title string
	start int
	kids  []ast.Node
}

func (*Markdown) Parse(source string) ast.ParseResult {
	lines := splitSource(source)
	var (
		top   []ast.Node
		stack []*mdSection
	)
	add := func(n ast.Node) {
		if len(stack) == 0 {
			top = append(top, n)
			return
		}
		s := stack[len(stack)-1]
		s.kids = append(s.kids, n)
	}
	// closeTo closes every open section with level >= level; next is the
	// line number the following heading sits on.
	closeTo := func(level, next int) {
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			end := endBefore(lines, s.start, next, nil)
			sig := []string{"section", strconv.Itoa(s.level), s.title}
			add(element("section", lines, s.start, end, s.kids, sig))
		}
	}

	n := len(lines)
	for i := 0; i < n; {
		line := lines[i]
		switch {
		case blank(line):
			i++

		case mdHeading.MatchString(line):
			m := mdHeading.FindStringSubmatch(line)
			level := len(m[1])
			closeTo(level, i+1)
			stack = append(stack, &mdSection{level: level, title: strings.TrimSpace(m[2]), start: i + 1})
			i++

		case mdFence.MatchString(line):
			m := mdFence.FindStringSubmatch(line)
			fence := m[1]
			end := n
			for j := i + 1; j < n; j++ {
				t := strings.TrimSpace(lines[j])
				if strings.HasPrefix(t, fence) && strings.Trim(t, fence[:1]) == "" {
					end = j + 1
					break
				}
			}
			add(element("fence", lines, i+1, end, nil, nil))
			i = end

		case strings.HasPrefix(strings.TrimSpace(line), "<!--"):
			end := n
			for j := i; j < n; j++ {
				if strings.Contains(lines[j], "-->") {
					end = j + 1
					break
				}
			}
			add(element("html_comment", lines, i+1, end, nil, nil))
			i = end

		case mdListItem.MatchString(line):
			end := i + 1
			for j := i + 1; j < n; j++ {
				l := lines[j]
				if blank(l) {
					if j+1 < n && indented(lines[j+1]) {
						continue
					}
					break
				}
				if !indented(l) {
					break
				}
				end = j + 1
			}
			add(element("list_item", lines, i+1, end, nil, nil))
			i = end

		case mdTableLine.MatchString(line):
			end := i + 1
			for end < n && mdTableLine.MatchString(lines[end]) {
				end++
			}
			add(element("table", lines, i+1, end, nil, nil))
			i = end

		default:
			end := i + 1
			for end < n && !blank(lines[end]) && !blockStart(lines[end]) {
				end++
			}
			add(element("paragraph", lines, i+1, end, nil, nil))
			i = end
		}
	}
	closeTo(1, n+1)

	return ast.ParseResult{Root: root("document", lines, top)}
}

func indented(l string) bool {
	return strings.HasPrefix(l, "  ") || strings.HasPrefix(l, "\t")
}

func blockStart(l string) bool {
	return mdHeading.MatchString(l) || mdFence.MatchString(l) || mdListItem.MatchString(l) ||
		strings.HasPrefix(strings.TrimSpace(l), "<!--")
}
