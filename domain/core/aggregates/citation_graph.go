package aggregates

import (
	"strconv"
	"strings"

	"refgraph-backend/domain/core/entities"
	"refgraph-backend/domain/core/valueobjects"
)

// Node statuses for articles that are not project members; member nodes
// carry their membership status instead.
const (
	NodeStatusReference = "reference"
	NodeStatusCiting    = "citing"
	NodeStatusRelated   = "related"
)

// Node is the engine's own graph entity, derived per request from an
// article or an unresolved external identifier.
type Node struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Title        string `json:"title,omitempty"`
	Year         *int   `json:"year,omitempty"`
	Status       string `json:"status"`
	CitedByCount int    `json:"cited_by_count"`
	Level        int    `json:"level"`
	StatsQuality int    `json:"stats_quality"`
	DOI          string `json:"doi,omitempty"`
	PMID         string `json:"pmid,omitempty"`
}

// IsPlaceholder reports whether the node stands in for an external
// identifier not found in storage.
func (n *Node) IsPlaceholder() bool {
	return valueobjects.IsPlaceholderID(n.ID)
}

// Edge is a directed citation link: source cites target.
type Edge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// CitationGraph is the aggregate root for one graph construction request.
// All node and edge creation goes through it, which is what enforces the
// dedup, budget, and self-loop invariants: the embedded identifier index
// is the single source of truth for "is this article already a node".
//
// The aggregate is not safe for concurrent mutation; the builder follows
// a single-writer rule and only fans out read-only work.
type CitationGraph struct {
	maxNodes int

	nodes    []*Node
	nodeByID map[string]*Node

	// Identifier index: DOI keys are lower-cased, PMID keys exact.
	doiToNode  map[string]string
	pmidToNode map[string]string

	edges    []Edge
	edgeKeys map[string]struct{}
}

// NewCitationGraph creates an empty graph bounded by maxNodes.
func NewCitationGraph(maxNodes int) *CitationGraph {
	return &CitationGraph{
		maxNodes:   maxNodes,
		nodeByID:   make(map[string]*Node),
		doiToNode:  make(map[string]string),
		pmidToNode: make(map[string]string),
		edgeKeys:   make(map[string]struct{}),
	}
}

// Resolve returns the node id already registered for either identifier.
func (g *CitationGraph) Resolve(doi, pmid string) (string, bool) {
	if d := valueobjects.NormalizeDOI(doi); d != "" {
		if id, ok := g.doiToNode[d]; ok {
			return id, true
		}
	}
	if pmid != "" {
		if id, ok := g.pmidToNode[pmid]; ok {
			return id, true
		}
	}
	return "", false
}

// ResolveExternalID resolves a bare external identifier, which may be
// either a DOI or a PMID depending on the source record.
func (g *CitationGraph) ResolveExternalID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	if strings.HasPrefix(id, "10.") {
		return g.Resolve(id, "")
	}
	return g.Resolve("", id)
}

// AddArticle inserts a node for a storage-backed article. When the
// article is already present (by DOI or PMID) the existing node id is
// returned and its level is left untouched: graphLevel is fixed at first
// insertion. Returns added=false when nothing new was inserted.
func (g *CitationGraph) AddArticle(a *entities.Article, level int, status string) (string, bool) {
	if id, ok := g.Resolve(a.DOI, a.PMID); ok {
		return id, false
	}
	if g.Remaining() <= 0 {
		return "", false
	}

	id := strconv.FormatInt(a.ID, 10)
	if existing, ok := g.nodeByID[id]; ok {
		// Same storage row reached through an identifier the index has
		// not seen yet; backfill the index and keep the first node.
		g.register(existing.ID, a.DOI, a.PMID)
		return existing.ID, false
	}

	node := &Node{
		ID:           id,
		Label:        a.DisplayLabel(),
		Title:        a.Title,
		Year:         a.Year,
		Status:       status,
		CitedByCount: a.MaxCitedByCount(),
		Level:        level,
		StatsQuality: a.StatsQuality,
		DOI:          a.DOI,
		PMID:         a.PMID,
	}
	g.insert(node)
	g.register(id, a.DOI, a.PMID)
	return id, true
}

// AddPlaceholder inserts a synthetic node for an external identifier that
// storage does not know. The id carries a reserved prefix so it can never
// collide with a storage id.
func (g *CitationGraph) AddPlaceholder(externalID string, level int, status string) (string, bool) {
	if id, ok := g.ResolveExternalID(externalID); ok {
		return id, false
	}
	if g.Remaining() <= 0 {
		return "", false
	}

	id := valueobjects.PlaceholderID(externalID)
	node := &Node{
		ID:     id,
		Label:  "PMID:" + externalID,
		Status: status,
		Level:  level,
	}
	// Index under the table ResolveExternalID consults for this id shape,
	// so the identifier re-surfacing at a later level maps to this node.
	if doi := valueobjects.NormalizeDOI(externalID); strings.HasPrefix(doi, "10.") {
		node.DOI = externalID
		g.doiToNode[doi] = id
	} else {
		node.PMID = externalID
		g.pmidToNode[externalID] = id
	}
	g.insert(node)
	return id, true
}

// AddEdge records a directed citation link. Self-loops, unknown
// endpoints, and already-present pairs are silently dropped; the first
// writer wins.
func (g *CitationGraph) AddEdge(sourceID, targetID string) bool {
	if sourceID == targetID {
		return false
	}
	if _, ok := g.nodeByID[sourceID]; !ok {
		return false
	}
	if _, ok := g.nodeByID[targetID]; !ok {
		return false
	}
	key := sourceID + "->" + targetID
	if _, ok := g.edgeKeys[key]; ok {
		return false
	}
	g.edgeKeys[key] = struct{}{}
	g.edges = append(g.edges, Edge{SourceID: sourceID, TargetID: targetID})
	return true
}

// EnrichPlaceholder fills bibliographic detail into a placeholder node
// after a successful external lookup. Non-placeholder ids are ignored.
func (g *CitationGraph) EnrichPlaceholder(id, title, doi string, year *int, authors []string) bool {
	node, ok := g.nodeByID[id]
	if !ok || !node.IsPlaceholder() {
		return false
	}
	if title != "" {
		node.Title = title
	}
	if doi != "" {
		node.DOI = doi
	}
	if year != nil {
		node.Year = year
	}
	switch {
	case len(authors) > 0 && year != nil:
		node.Label = authors[0] + " (" + strconv.Itoa(*year) + ")"
	case title != "":
		node.Label = title
	}
	return true
}

// Node returns the node with the given id, if present.
func (g *CitationGraph) Node(id string) (*Node, bool) {
	n, ok := g.nodeByID[id]
	return n, ok
}

// Nodes returns the node list in insertion order.
func (g *CitationGraph) Nodes() []*Node {
	return g.nodes
}

// Edges returns the edge list in insertion order.
func (g *CitationGraph) Edges() []Edge {
	return g.edges
}

// NodeCount returns the current number of nodes.
func (g *CitationGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the current number of edges.
func (g *CitationGraph) EdgeCount() int {
	return len(g.edges)
}

// Remaining returns how many more nodes fit under the budget.
func (g *CitationGraph) Remaining() int {
	return g.maxNodes - len(g.nodes)
}

// LevelCounts returns the number of nodes per graph level.
func (g *CitationGraph) LevelCounts() map[int]int {
	counts := make(map[int]int, 4)
	for _, n := range g.nodes {
		counts[n.Level]++
	}
	return counts
}

// Placeholders returns all placeholder nodes, in insertion order.
func (g *CitationGraph) Placeholders() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.IsPlaceholder() {
			out = append(out, n)
		}
	}
	return out
}

func (g *CitationGraph) insert(node *Node) {
	g.nodes = append(g.nodes, node)
	g.nodeByID[node.ID] = node
}

func (g *CitationGraph) register(nodeID, doi, pmid string) {
	if d := valueobjects.NormalizeDOI(doi); d != "" {
		if _, ok := g.doiToNode[d]; !ok {
			g.doiToNode[d] = nodeID
		}
	}
	if pmid != "" {
		if _, ok := g.pmidToNode[pmid]; !ok {
			g.pmidToNode[pmid] = nodeID
		}
	}
}
