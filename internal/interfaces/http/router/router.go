// Package router mounts the ledger API's domain route groups under a
// versioned prefix.
package router

import (
	"net/http"
	"path"
	"sort"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SwaggerPath is where the OpenAPI UI and doc.json are served
const SwaggerPath = "/swagger"

// RouteRegistrar mounts routes below a parent group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and mounts them below /api/<version>.
// Middleware added with Use applies to API routes only, leaving /health bare.
type Router struct {
	engine     *gin.Engine
	version    string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
	swagger    bool
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion overrides the default "v1" prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.version = version }
}

// WithSwagger serves the registered OpenAPI document and its UI under
// /swagger, outside the API middleware
func WithSwagger(enabled bool) RouterOption {
	return func(r *Router) { r.swagger = enabled }
}

// NewRouter creates a Router over engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use appends API middleware
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues a registrar for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// BasePath is the versioned API prefix
func (r *Router) BasePath() string {
	return "/api/" + r.version
}

// Setup mounts every queued registrar on the engine
func (r *Router) Setup() {
	if r.swagger {
		r.engine.GET(SwaggerPath+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	api := r.engine.Group(r.BasePath(), r.middleware...)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// RouteInfo is one method and path pair of a DomainGroup
type RouteInfo struct {
	Method string
	Path   string
}

type route struct {
	RouteInfo
	handlers []gin.HandlerFunc
}

// DomainGroup is a declarative set of routes for one area of the API
// (ledgers, documents, sync). Nothing touches gin until RegisterRoutes.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*DomainGroup
}

// NewDomainGroup creates an empty group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware scoped to this group and its children
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle declares a route
func (dg *DomainGroup) Handle(method, relPath string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{RouteInfo{method, relPath}, handlers})
	return dg
}

func (dg *DomainGroup) GET(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, p, h...)
}

func (dg *DomainGroup) POST(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, p, h...)
}

func (dg *DomainGroup) PUT(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPut, p, h...)
}

func (dg *DomainGroup) DELETE(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodDelete, p, h...)
}

// Group declares a nested group and returns it
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	child := NewDomainGroup(dg.name+"."+name, prefix)
	dg.children = append(dg.children, child)
	return child
}

// Name is the dotted group name, e.g. "ledgers.postings"
func (dg *DomainGroup) Name() string { return dg.name }

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, rt := range dg.routes {
		group.Handle(rt.Method, rt.Path, rt.handlers...)
	}
	for _, child := range dg.children {
		child.RegisterRoutes(group)
	}
}

// Routes lists every declared route relative to the API prefix, sorted by
// path then method
func (dg *DomainGroup) Routes() []RouteInfo {
	var out []RouteInfo
	dg.walk("/", func(ri RouteInfo) { out = append(out, ri) })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (dg *DomainGroup) walk(base string, visit func(RouteInfo)) {
	base = joinPath(base, dg.prefix)
	for _, rt := range dg.routes {
		visit(RouteInfo{Method: rt.Method, Path: joinPath(base, rt.Path)})
	}
	for _, child := range dg.children {
		child.walk(base, visit)
	}
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	return path.Join(base, rel)
}
