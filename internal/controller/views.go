package controller

import "html/template"

// UnavailableMessage replaces a panel whose data could not be loaded.
const UnavailableMessage = "Consumption data is unavailable right now."

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.PageTitle}}</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        nav a { margin-right: 16px; color: #c0392b; }
        .panels { display: grid; grid-template-columns: repeat(auto-fit, minmax(280px, 1fr)); gap: 20px; }
        .panel { background: white; border-radius: 10px; padding: 16px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .panel.wide { height: 420px; }
        .unavailable { color: #7f8c8d; font-style: italic; }
        .tenant-table { border-collapse: collapse; background: white; }
        .tenant-table th, .tenant-table td { border: 1px solid #ddd; padding: 6px 12px; text-align: right; }
        .tenant-table th:first-child, .tenant-table td:first-child { text-align: left; }
    </style>
</head>
<body>
    <nav>
        <a href="/">Overview</a>
        <a href="/details?q=total">Total</a>
        <a href="/details?q=manual">Shower and faucet</a>
        <a href="/details?q=automatic">Appliances</a>
        <a href="/plumber">Plumber</a>
    </nav>
    {{template "content" .}}
    <script>
        function renderChart(id, config) {
            const canvas = document.getElementById(id);
            if (!canvas) { return; }
            const previous = Chart.getChart(canvas);
            if (previous) { previous.destroy(); }
            new Chart(canvas, config);
        }
        {{range .Charts}}renderChart({{.CanvasID}}, {{.Config}});
        {{end}}
    </script>
</body>
</html>{{end}}`

const panelTemplate = `{{define "panel"}}<div class="panel{{if .Wide}} wide{{end}}">
        <h2>{{.Title}}</h2>
        {{if .Unavailable}}<p class="unavailable">{{.Message}}</p>{{else}}<canvas id="{{.CanvasID}}"></canvas>{{end}}
    </div>{{end}}`

const gaugesPageTemplate = `{{define "content"}}<h1>Water consumption 💧</h1>
    <p>{{.Window}}</p>
    <div class="panels">
    {{range .Panels}}{{template "panel" .}}
    {{end}}</div>
    <div class="panel">
        <h2>Building</h2>
        {{if .Building.Unavailable}}<p class="unavailable">{{.Building.Message}}</p>{{else}}<p>{{.Building.Text}}</p>{{end}}
    </div>{{end}}`

const detailsPageTemplate = `{{define "content"}}<h1>{{.Heading}}</h1>
    <p>{{.Window}}</p>
    {{range .Panels}}{{template "panel" .}}{{end}}{{end}}`

const plumberPageTemplate = `{{define "content"}}<h1>Tenant consumption by device</h1>
    <p>{{.Window}}</p>
    <div class="panel">
        {{if .Table.Unavailable}}<p class="unavailable">{{.Table.Message}}</p>{{else}}{{.Table.HTML}}{{end}}
    </div>{{end}}`

var (
	gaugesPage  = page(gaugesPageTemplate)
	detailsPage = page(detailsPageTemplate)
	plumberPage = page(plumberPageTemplate)
)

func page(content string) *template.Template {
	t := template.Must(template.New("layout").Parse(layoutTemplate))
	template.Must(t.Parse(panelTemplate))
	return template.Must(t.Parse(content))
}
