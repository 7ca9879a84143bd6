package oauth

import (
	"html/template"
	"net/http"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #4a154b;
        }
        .container {
            background: white;
            padding: 40px 60px;
            border-radius: 12px;
            box-shadow: 0 10px 40px rgba(0,0,0,0.2);
            text-align: center;
        }
        h1 { margin: 0 0 10px 0; color: {{if .OK}}#2eb67d{{else}}#e01e5a{{end}}; }
        p { color: #666; margin: 4px 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
        {{range .Details}}<p>{{.}}</p>{{end}}
    </div>
</body>
</html>
`))

type page struct {
	OK      bool
	Title   string
	Message string
	Details []string
}

func renderSuccess(w http.ResponseWriter, workspaceID, user string) {
	details := []string{"Workspace: " + workspaceID}
	if user != "" {
		details = append(details, "User: "+user)
	}

	render(w, http.StatusOK, page{
		OK:      true,
		Title:   "Authorization Successful",
		Message: "You can close this window and return to your MCP client.",
		Details: details,
	})
}

func renderError(w http.ResponseWriter, status int, message string) {
	render(w, status, page{Title: "Authorization Failed", Message: message})
}

func render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTemplate.Execute(w, p)
}
