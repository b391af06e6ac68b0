// Package backend is a small client for the task and session API.
//
// Every request opts out of caching. Non-2xx responses become a
// [StatusError]; a 404 matches [ErrNotFound] under errors.Is.
package backend
