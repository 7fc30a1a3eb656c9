package view

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// Static возвращает файловую систему со статикой (/static/*).
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
