package ui

import (
	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# roomlist

A long list of rooms kept sorted by recency while it grows.

## Operations

| Key | Action |
|-----|--------|
| ` + "`i`" + ` | insert rooms with recent timestamps |
| ` + "`l`" + ` | shift the window one day older and load rooms from it |
| ` + "`r`" + ` | set a random subset of rooms to *now* |
| ` + "`s`" + ` | sort immediately |
| ` + "`w`" + ` | route sorts to the worker or sort locally |
| ` + "`c`" + ` | change the chunk size for new operations |
| ` + "`y`" + ` | copy the selected room id |

Each bulk operation mutates the list in chunks and yields between them.
Sort requests are debounced; results from an older sort request are
discarded when a newer one has been issued.

Holding the cursor on the last rows loads older rooms every interval.

## Navigation

` + "`j`/`k`" + ` move, ` + "`C-d`/`C-u`" + ` page, ` + "`g`/`G`" + ` top and bottom,
` + "`?`" + ` closes this help, ` + "`q`" + ` quits.
`

// renderHelp renders the help overlay markdown at the given wrap width.
func renderHelp(width int) string {
	if width <= 0 || width > 100 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}
