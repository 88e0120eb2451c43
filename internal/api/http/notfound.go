package http

import (
	"html/template"
	"net/http"
)

// notFoundPage is served on the redirect path for unknown short codes.
// Browsers hitting a dead link get a page, not a JSON body.
var notFoundPage = template.Must(template.New("notFound").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Link not found</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
main { text-align: center; }
h1 { font-size: 3rem; margin-bottom: 0.5rem; }
p { color: #555; }
code { background: #f4f4f4; padding: 0.1rem 0.3rem; border-radius: 3px; }
</style>
</head>
<body>
<main>
<h1>404</h1>
<p>The short link <code>/{{.ShortCode}}</code> doesn&#39;t exist or has been removed.</p>
</main>
</body>
</html>
`))

func renderNotFoundPage(w http.ResponseWriter, shortCode string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)

	_ = notFoundPage.Execute(w, struct{ ShortCode string }{ShortCode: shortCode})
}
