package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

// NodeClass is the risk colour bucket of a graph node.
type NodeClass string

const (
	ClassIllicit    NodeClass = "illicit"
	ClassLicit      NodeClass = "licit"
	ClassSuspicious NodeClass = "suspicious"
	ClassUnknown    NodeClass = "unknown"
)

var classColors = map[NodeClass]string{
	ClassIllicit:    "#990000",
	ClassLicit:      "#000066",
	ClassSuspicious: "#F0E68C",
	ClassUnknown:    "grey",
}

// Color returns the fill colour used when rendering the class.
func (c NodeClass) Color() string {
	if color, ok := classColors[c]; ok {
		return color
	}
	return classColors[ClassUnknown]
}

// Classify buckets a prediction. The suspicious band wins over the label.
func Classify(p *domain.PredictionResult) NodeClass {
	if p == nil {
		return ClassUnknown
	}
	if p.Suspicious() {
		return ClassSuspicious
	}
	switch p.Label {
	case domain.LabelFraud:
		return ClassIllicit
	case domain.LabelNonFraud:
		return ClassLicit
	default:
		return ClassUnknown
	}
}

// Node is one address in the transaction graph.
type Node struct {
	Address     domain.Address `json:"address"`
	Central     bool           `json:"central"`
	Class       NodeClass      `json:"class"`
	Color       string         `json:"color"`
	Prediction  domain.Label   `json:"prediction,omitempty"`
	Probability *float64       `json:"probability_fraud,omitempty"`
}

// Edge is a directed transfer between two nodes. Count is the number of
// transactions collapsed into it.
type Edge struct {
	From  domain.Address `json:"from"`
	To    domain.Address `json:"to"`
	Count int            `json:"count"`
}

// Graph is the direct-transaction graph around a central address.
type Graph struct {
	Central domain.Address `json:"central_address"`
	Nodes   []Node         `json:"nodes"`
	Edges   []Edge         `json:"edges"`
}

// BuildGraph keeps only transactions touching central. Contract creations
// have no receiving node and are left out.
func BuildGraph(
	central domain.Address,
	txs []domain.Transaction,
	predictions map[domain.Address]domain.PredictionResult,
) *Graph {
	central = domain.NormalizeAddress(string(central))
	g := &Graph{Central: central, Nodes: []Node{}, Edges: []Edge{}}

	nodeIdx := make(map[domain.Address]int)
	edgeIdx := make(map[[2]domain.Address]int)

	addNode := func(addr domain.Address) {
		if _, ok := nodeIdx[addr]; ok {
			return
		}
		n := Node{Address: addr, Central: addr == central}
		if p, ok := predictions[addr]; ok {
			n.Class = Classify(&p)
			n.Prediction = p.Label
			prob := p.FraudProbability
			n.Probability = &prob
		} else {
			n.Class = ClassUnknown
		}
		n.Color = n.Class.Color()
		nodeIdx[addr] = len(g.Nodes)
		g.Nodes = append(g.Nodes, n)
	}

	addNode(central)
	for _, tx := range txs {
		from := domain.NormalizeAddress(tx.From)
		to := domain.NormalizeAddress(tx.To)
		if from != central && to != central {
			continue
		}
		if !from.Valid() || !to.Valid() {
			continue
		}

		addNode(from)
		addNode(to)

		key := [2]domain.Address{from, to}
		if i, ok := edgeIdx[key]; ok {
			g.Edges[i].Count++
			continue
		}
		edgeIdx[key] = len(g.Edges)
		g.Edges = append(g.Edges, Edge{From: from, To: to, Count: 1})
	}

	return g
}

// Empty reports whether the graph has no edges.
func (g *Graph) Empty() bool {
	return len(g.Edges) == 0
}

// WriteDOT renders the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "digraph %q {\n", "transactions_"+g.Central.Short())
	fmt.Fprintf(bw, "  label=%q;\n", "Transaction Flow Graph of Address: "+string(g.Central))
	bw.WriteString("  node [shape=circle, style=filled, fontcolor=white];\n")
	bw.WriteString("  edge [color=gray];\n")

	for _, n := range g.Nodes {
		label := n.Address.Short()
		if n.Probability != nil {
			label = fmt.Sprintf("%s\\n%.2f", label, *n.Probability)
		}
		attrs := fmt.Sprintf("label=\"%s\", fillcolor=%q, class=%q", label, n.Color, n.Class)
		if n.Central {
			attrs += ", penwidth=3, width=1.5"
		}
		fmt.Fprintf(bw, "  %q [%s];\n", n.Address, attrs)
	}
	for _, e := range g.Edges {
		if e.Count > 1 {
			fmt.Fprintf(bw, "  %q -> %q [label=\"%d\"];\n", e.From, e.To, e.Count)
			continue
		}
		fmt.Fprintf(bw, "  %q -> %q;\n", e.From, e.To)
	}
	bw.WriteString("}\n")

	return bw.Flush()
}

// WriteJSON writes the graph as indented JSON.
func (g *Graph) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}
