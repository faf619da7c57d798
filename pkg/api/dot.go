package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tmc/dot"
)

// renderDot writes the current graph in graphviz format, for piping into
// dot:
//
//	curl -s localhost:8080/v1/components?format=dot | dot -Tsvg > graph.svg
func (h *Handler) renderDot(c *gin.Context) {
	g := h.queries.Graph()
	if g == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "graph not built"})
		return
	}

	out := dot.NewGraph("components")
	out.SetType(dot.DIGRAPH)

	for _, node := range g.Nodes() {
		n := dot.NewNode(node)
		out.AddNode(n)

		for _, dependency := range g.DependenciesOf(node) {
			d := dot.NewNode(dependency)
			out.AddNode(d)
			out.AddEdge(dot.NewEdge(n, d))
		}
	}

	c.String(http.StatusOK, out.String())
}
