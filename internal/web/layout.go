package web

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/a-h/templ"
)

func render(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		roles, err := json.Marshal(p.Roles)
		if err != nil {
			return err
		}
		var b strings.Builder
		b.WriteString(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`)
		b.WriteString(templ.EscapeString(p.Title))
		b.WriteString(` · Guidance Desk</title>
    <link rel="stylesheet" href="`)
		b.WriteString(templ.EscapeString(assetPath("/static/styles.css")))
		b.WriteString(`"/>
    <script src="`)
		b.WriteString(templ.EscapeString(assetPath("/static/app.js")))
		b.WriteString(`"></script>
  </head>
  <body data-roles='`)
		b.WriteString(templ.EscapeString(string(roles)))
		b.WriteString(`'>
`)
		b.WriteString(p.BodyHTML)
		if p.Script != "" {
			b.WriteString("\n    <script>\n")
			b.WriteString(p.Script)
			b.WriteString("\n    </script>")
		}
		b.WriteString("\n  </body>\n</html>\n")
		_, err = io.WriteString(w, b.String())
		return err
	})
}
