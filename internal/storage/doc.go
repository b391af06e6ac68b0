// Package storage keeps recorded viewer episodes on disk, one directory per
// episode holding metadata.json and states.csv.
package storage
