// Package web embeds the browser UI served at the root path.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFS embed.FS

// Static returns the UI bundle rooted at its index.html.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
