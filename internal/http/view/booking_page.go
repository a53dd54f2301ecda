package view

import (
	"bytes"
	"html/template"
)

// BookingPageData provides the dynamic fields for the booking result page.
type BookingPageData struct {
	Success     bool
	Heading     string
	Message     string
	Display     string
	MeetingLink string
	EventLink   string
}

var bookingPageTmpl = template.Must(template.New("booking_page").Parse(`
<!DOCTYPE html>
<html lang="no">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{.Heading}}</title>
	<style>
		:root {
			--bg: #0b0d12;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #6ee7b7;
			--error: #fca5a5;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(520px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
			backdrop-filter: blur(18px);
		}
		h1 { font-size: 1.5rem; margin-bottom: 6px; }
		h1.success { color: var(--accent); }
		h1.error { color: var(--error); }
		p { color: var(--muted); line-height: 1.5; }
		.display {
			font-size: 1.15rem;
			color: var(--text);
			margin: 18px 0;
		}
		a.button {
			display: inline-block;
			margin-top: 12px;
			margin-right: 10px;
			padding: 10px 18px;
			border-radius: 10px;
			border: 1px solid var(--border);
			color: var(--text);
			text-decoration: none;
		}
		a.button:hover { border-color: var(--accent); }
	</style>
</head>
<body>
	<div class="card">
		{{if .Success}}
		<h1 class="success">{{.Heading}}</h1>
		<p>{{.Message}}</p>
		<div class="display">{{.Display}}</div>
		{{if .MeetingLink}}<a class="button" href="{{.MeetingLink}}">Møtelenke</a>{{end}}
		{{if .EventLink}}<a class="button" href="{{.EventLink}}">Se i kalenderen</a>{{end}}
		{{else}}
		<h1 class="error">{{.Heading}}</h1>
		<p>{{.Message}}</p>
		{{end}}
	</div>
</body>
</html>
`))

// RenderBookingPage renders the confirmation success or error page.
func RenderBookingPage(data BookingPageData) (string, error) {
	var buf bytes.Buffer
	if err := bookingPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
