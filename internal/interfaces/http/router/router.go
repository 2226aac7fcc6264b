// Package router assembles the gin engine: the middleware chain and the
// /api/v1 route table.
package router

import (
	"github.com/gin-gonic/gin"
)

// APIVersion is the path segment every resource is mounted under
const APIVersion = "v1"

// Route is one endpoint of a resource. Path is relative to the resource prefix.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Resource is a back-office collection such as /invoices with its endpoints
type Resource struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

// Mount registers the resource under api
func (r Resource) Mount(api gin.IRouter) {
	group := api.Group(r.Prefix, r.Middleware...)
	for _, route := range r.Routes {
		group.Handle(route.Method, route.Path, route.Handler)
	}
}

// MountAPI registers every resource under /api/<version>
func MountAPI(engine gin.IRouter, version string, resources ...Resource) {
	api := engine.Group("/api/" + version)
	for _, r := range resources {
		r.Mount(api)
	}
}
