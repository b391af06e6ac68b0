// Package web serves the task pages, the viewer demo page and the
// websocket viewer stream.
//
// Pages degrade rather than fail: a backend error on the task list or the
// admin overview renders the empty state, and a bad or unknown task id
// renders the 404 page.
package web
