// This package contains the static web files for the DistroProxy index page.
package web

import (
	_ "embed"
	"html/template"
	"io"
	"sync"

	"gitlab.com/bella.network/distroproxy/pkg/repomap"
)

//go:embed web/index.html
var MainPage []byte

var (
	tpl    *template.Template
	tplMux sync.Mutex
)

// IndexData is passed to the index page template.
type IndexData struct {
	Origin       string          // Origin of this deployment, e.g. https://mirror.example.com
	Version      string          // Version of the running binary
	Repositories []repomap.Entry // Merged repository table
}

// GetTemplate returns the parsed index page template. The template is parsed
// once and reused afterwards.
func GetTemplate() (*template.Template, error) {
	tplMux.Lock()
	defer tplMux.Unlock()

	// Check if the template is already loaded
	if tpl != nil {
		return tpl, nil
	}

	newTemplate, err := template.New("main").Parse(string(MainPage))
	if err != nil {
		return nil, err
	}

	tpl = newTemplate
	return tpl, nil
}

// RenderIndex writes the index page for the given data to w.
func RenderIndex(w io.Writer, data IndexData) error {
	temp, err := GetTemplate()
	if err != nil {
		return err
	}
	return temp.Execute(w, data)
}
