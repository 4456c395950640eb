package grove

import (
	"fmt"
	"io"
	"strings"
)

func (c *container) WriteDOT(w io.Writer) error {
	buf := new(strings.Builder)
	buf.WriteString("digraph grove {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=filled, fillcolor=lightblue];\n")

	nodes := make(map[Key]string)
	var order []Key
	// define always sets the label; node only fills in keys not yet seen
	define := func(k Key, label string) {
		if _, ok := nodes[k]; !ok {
			order = append(order, k)
		}
		nodes[k] = label
	}
	node := func(k Key, label string) {
		if _, ok := nodes[k]; !ok {
			define(k, label)
		}
	}
	type edge struct{ from, to Key }
	edges := make(map[edge]struct{})
	var edgeOrder []edge
	link := func(from, to Key) {
		e := edge{from: from, to: to}
		if _, ok := edges[e]; ok {
			return
		}
		edges[e] = struct{}{}
		edgeOrder = append(edgeOrder, e)
	}

	for _, comp := range c.reg.components() {
		for _, svc := range comp.services {
			define(svc, fmt.Sprintf("Key: %s\nImpl: %s\nLifetime: %s", svc, comp.desc.Impl, comp.lifetime))
			for _, dep := range comp.desc.Deps {
				node(dep, fmt.Sprintf("Key: %s", dep))
				link(svc, dep)
			}
		}
	}

	for _, oc := range c.reg.openComponents() {
		svc := oc.service.Open().Named(oc.name)
		impl := oc.service
		if oc.tmpl.Impl != nil {
			impl = oc.tmpl.Impl
		}
		define(svc, fmt.Sprintf("Key: %s\nImpl: %s\nLifetime: %s\nOpen generic", svc, impl.Open(), oc.lifetime))
		for _, dep := range oc.tmpl.Deps {
			node(dep, fmt.Sprintf("Key: %s", dep))
			link(svc, dep)
		}
	}

	for _, k := range order {
		fmt.Fprintf(buf, "  %q [label=%q];\n", k.String(), nodes[k])
	}
	for _, e := range edgeOrder {
		fmt.Fprintf(buf, "  %q -> %q;\n", e.from.String(), e.to.String())
	}
	buf.WriteString("}\n")

	_, err := io.WriteString(w, buf.String())
	return err
}
