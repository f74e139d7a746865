package tree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Graphviz DOT export, the output can be rendered by
// https://graphviz.christine.website/ or `dot -Tsvg`.

type dotConfig[K any] struct {
	name         string
	keyFormatter func(K) string
}

type DOTOption[K any] func(*dotConfig[K])

func WithDOTName[K any](name string) DOTOption[K] {
	return func(cfg *dotConfig[K]) {
		if len(strings.TrimSpace(name)) > 0 {
			cfg.name = name
		}
	}
}

func WithDOTKeyFormatter[K any](fn func(K) string) DOTOption[K] {
	return func(cfg *dotConfig[K]) {
		if fn != nil {
			cfg.keyFormatter = fn
		}
	}
}

// ExportDOT writes the tree as a directed graph. Nodes are numbered in
// BFS order, each one labeled with its key and filled with its color,
// followed by one edge per parent to child relation.
func ExportDOT[K any](tree RBTree[K], w io.Writer, opts ...DOTOption[K]) error {
	t, err := asRBTree[K](tree)
	if err != nil {
		return err
	}
	cfg := &dotConfig[K]{
		name: "rbtree",
		keyFormatter: func(key K) string {
			return fmt.Sprintf("%v", key)
		},
	}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}

	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString("digraph " + strconv.Quote(cfg.name) + " {\n")
	_, _ = bw.WriteString("\tratio = fill;\n")
	_, _ = bw.WriteString("\tnode [style=filled, fontcolor=white];\n")

	if t.root != nilRef {
		type edge struct {
			from, to int
		}
		queue := make([]nodeRef, 0, t.count)
		edges := make([]edge, 0, t.count)
		queue = append(queue, t.root)

		for head := 0; head < len(queue); head++ {
			n := t.node(queue[head])
			color := "black"
			if n.color == Red {
				color = "red"
			}
			_, _ = fmt.Fprintf(bw, "\tn%d [label=%s, fillcolor=%s];\n",
				head, strconv.Quote(cfg.keyFormatter(n.key)), color)
			for _, child := range [2]nodeRef{n.left, n.right} {
				if child == nilRef {
					continue
				}
				edges = append(edges, edge{from: head, to: len(queue)})
				queue = append(queue, child)
			}
		}

		_, _ = bw.WriteString("\n")
		for _, e := range edges {
			_, _ = fmt.Fprintf(bw, "\tn%d -> n%d;\n", e.from, e.to)
		}
	}
	_, _ = bw.WriteString("}\n")
	return bw.Flush()
}
