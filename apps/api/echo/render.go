package echoapi

import (
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/gradebook/core/session"
)

var pageTemplates = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} | Masomo</title>
</head>
<body>
<main data-page="{{.Name}}">
<h1>{{.Title}}</h1>
{{- if .Loading}}
<p role="status">Loading...</p>
{{- end}}
{{- with .Error}}
<p role="alert">{{.}}</p>
{{- end}}
{{- with .User}}
<p>Signed in as {{.FullName}} ({{.Email}})</p>
{{- end}}
</main>
</body>
</html>
`))

type (
	renderer struct {
		tmpl *template.Template
	}

	pageData struct {
		Name    string
		Title   string
		Loading bool
		Error   string
		User    *session.User
	}
)

var _ echo.Renderer = (*renderer)(nil)

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}
