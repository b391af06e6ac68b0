// Package stream renders viewer scenes to browser clients over websockets.
//
// A [Conn] is the scene host for one client. The [Renderer] sends the full
// node tree once and then a pose update per frame; a browser script draws
// them. Client input flows back through [Conn.Serve].
package stream
