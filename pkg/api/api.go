// Package api exposes the component graph's query functionality over a JSON
// HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fuchsia-dev/compograph/pkg/fpm"
	"github.com/fuchsia-dev/compograph/pkg/query"
)

// Handler serves the JSON API on top of the query layer.
type Handler struct {
	queries *query.Handler
}

// NewHandler returns an API handler backed by the given query handler.
func NewHandler(queries *query.Handler) *Handler {
	return &Handler{queries: queries}
}

// Router builds the gin engine with all routes and middleware attached.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(), Metrics())

	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/query", h.evalQuery)
		v1.POST("/refresh", h.refresh)
		v1.GET("/components", h.listComponents)
		v1.GET("/components/:name", h.getComponent)
		v1.GET("/components/:name/deps", h.relatives("deps"))
		v1.GET("/components/:name/dependents", h.relatives("rdeps"))
	}

	return router
}

// Serve runs the API server until ctx is canceled, then shuts down
// gracefully.
func (h *Handler) Serve(ctx context.Context, addr string) error {
	log := clog.FromContext(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("component graph API listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (h *Handler) health(c *gin.Context) {
	g := h.queries.Graph()
	if g == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "graph not built"})
		return
	}

	order, size, err := g.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "components": order, "dependencies": size})
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

func (h *Handler) evalQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object with a 'query' string"})
		return
	}

	result, err := h.queries.Eval(c.Request.Context(), req.Query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) refresh(c *gin.Context) {
	if err := h.queries.Rebuild(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	h.health(c)
}

func (h *Handler) listComponents(c *gin.Context) {
	if c.Query("format") == "dot" {
		h.renderDot(c)
		return
	}

	result, err := h.queries.Eval(c.Request.Context(), "all()")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"components": result.Names})
}

func (h *Handler) getComponent(c *gin.Context) {
	result, err := h.queries.EvalQuery(c.Request.Context(), &query.Query{
		Verb: "info",
		Args: []string{c.Param("name")},
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result.Package)
}

// relatives serves a component's dependencies or dependents. By default only
// direct neighbors are reported; ?transitive=true reports the full closure.
func (h *Handler) relatives(verb string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		if c.Query("transitive") == "true" {
			result, err := h.queries.EvalQuery(c.Request.Context(), &query.Query{
				Verb: verb,
				Args: []string{name},
			})
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"name": name, "transitive": true, "components": result.Names})
			return
		}

		g := h.queries.Graph()
		if g == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "graph not built"})
			return
		}
		if g.Package(name) == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown component " + name})
			return
		}

		var names []string
		if verb == "deps" {
			names = g.DependenciesOf(name)
		} else {
			names = g.DependentsOf(name)
		}
		c.JSON(http.StatusOK, gin.H{"name": name, "transitive": false, "components": names})
	}
}

// abortWithError maps query and package-manager errors onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, query.ErrSyntax):
		status = http.StatusBadRequest
	case errors.Is(err, query.ErrNotFound), errors.Is(err, fpm.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fpm.ErrUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
