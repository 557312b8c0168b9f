package source

import (
	"path"
	"sort"
	"strings"
)

// CodeSource is one namespace: file name to raw text. It is not modified
// after construction.
type CodeSource struct {
	sources map[string]string
}

// New copies sources into a CodeSource.
func New(sources map[string]string) *CodeSource {
	c := &CodeSource{sources: make(map[string]string, len(sources))}
	for name, text := range sources {
		c.sources[name] = text
	}
	return c
}

func (c *CodeSource) Source(name string) (string, bool) {
	text, ok := c.sources[name]
	return text, ok
}

// Names returns the registered file names in order.
func (c *CodeSource) Names() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *CodeSource) Len() int { return len(c.sources) }

// Key derives the namespace key of a loaded file: its base name with any
// remaining separators turned into "__". Files sharing a base name in
// different directories collide and the last one loaded wins.
func Key(name string) string {
	return strings.ReplaceAll(path.Base(name), "/", "__")
}
