package mirror

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/b1naryth1ef/mirror/transport"
	"github.com/dustin/go-humanize"
)

type treeNode struct {
	entry    Entry
	children map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{children: make(map[string]*treeNode)}
}

func buildTree(snap *Snapshot) *treeNode {
	root := newTreeNode()
	for _, p := range snap.Paths() {
		node := root
		for _, part := range strings.Split(p, "/") {
			child, ok := node.children[part]
			if !ok {
				child = newTreeNode()
				child.entry.Kind = transport.KindDir
				node.children[part] = child
			}
			node = child
		}
		node.entry = snap.Entries[p]
	}
	return root
}

// RenderTree writes snap as an indented tree headed by label. Siblings are
// sorted by name and files carry their size.
func RenderTree(w io.Writer, label string, snap *Snapshot) error {
	if _, err := fmt.Fprintln(w, label); err != nil {
		return err
	}
	return renderChildren(w, buildTree(snap), "")
}

func renderChildren(w io.Writer, node *treeNode, prefix string) error {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		child := node.children[name]
		last := i == len(names)-1

		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}

		line := prefix + connector + name
		if child.entry.Kind == transport.KindFile {
			line += fmt.Sprintf(" (%s)", humanize.Bytes(uint64(child.entry.Size)))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}

		if err := renderChildren(w, child, prefix+indent); err != nil {
			return err
		}
	}
	return nil
}
