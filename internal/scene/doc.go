// Package scene is a small retained scene graph in render coordinates
// (y up). Renderers consume it through the [Renderer] interface; a
// [Host] owns the surface they draw into.
package scene
