package view

const tmplLayout = `
{{define "header"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
{{if gt .RefreshSeconds 0}}<meta http-equiv="refresh" content="{{.RefreshSeconds}}">{{end}}
<title>{{.Title}} · Ringer</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,sans-serif;background:#0d1117;color:#c9d1d9;font-size:14px;line-height:1.5}
a{color:#58a6ff;text-decoration:none}
a:hover{text-decoration:underline}
nav{background:#161b22;border-bottom:1px solid #30363d;padding:8px 16px;display:flex;gap:16px;align-items:center}
nav .brand{color:#f0f6fc;font-weight:700;font-size:15px}
nav form{margin-left:auto}
main{padding:16px;max-width:1100px;margin:0 auto}
h1{font-size:16px;font-weight:700;color:#f0f6fc;margin-bottom:12px}
.cards{display:flex;gap:12px;flex-wrap:wrap;margin-bottom:16px}
.card{background:#161b22;border:1px solid #30363d;border-radius:6px;padding:12px 16px;min-width:140px}
.card .val{font-size:20px;font-weight:700;color:#f0f6fc}
.card .lbl{font-size:11px;color:#8b949e}
.toolbar{display:flex;gap:8px;flex-wrap:wrap;align-items:center;margin-bottom:12px}
.toolbar a{font-size:12px;padding:2px 8px;border:1px solid #30363d;border-radius:4px;color:#8b949e}
.toolbar a.active{background:#1f6feb;border-color:#1f6feb;color:#fff}
input,button{background:#0d1117;color:#c9d1d9;border:1px solid #30363d;border-radius:4px;padding:4px 8px}
button{cursor:pointer}
table{width:100%;border-collapse:collapse;font-size:13px}
th{text-align:left;padding:6px 10px;border-bottom:1px solid #30363d;color:#8b949e;font-size:11px;text-transform:uppercase}
td{padding:5px 10px;border-bottom:1px solid #21262d}
.ok{color:#56d364}
.dim{color:#8b949e}
.warn{color:#f59e0b}
.err{color:#f87171;margin-bottom:12px}
svg .step{fill:none;stroke:#56d364;stroke-width:2}
svg .grid{stroke:#30363d;stroke-dasharray:4 4}
svg text{fill:#8b949e;font-size:11px}
iframe{width:100%;height:480px;border:1px solid #30363d;border-radius:6px}
</style>
</head>
<body>
<nav>
<span class="brand">Ringer</span>
{{if .SignedIn}}<a href="/">Dashboard</a>
<form method="post" action="/logout"><button type="submit">Log out</button></form>{{end}}
</nav>
<main>
{{end}}

{{define "footer"}}
</main>
</body>
</html>
{{end}}
`

const tmplLogin = `
{{define "login"}}{{template "header" .Page}}
<h1>Sign in</h1>
{{if .Error}}<div class="err">{{.Error}}</div>{{end}}
<form method="post" action="/login">
<p><label>Email or phone<br><input name="identifier" value="{{.Identifier}}" required></label></p>
<p><label>Passcode<br><input name="passcode" type="password" inputmode="numeric" pattern="\d{6}" maxlength="6" required></label></p>
<p><button type="submit">Sign in</button></p>
</form>
{{template "footer"}}{{end}}
`

const tmplDashboard = `
{{define "dashboard"}}{{template "header" .Page}}
<h1>Plug status</h1>
{{if .Error}}<div class="err">{{.Error}}</div>{{end}}
<form class="toolbar" method="get" action="/">
<input type="hidden" name="view" value="{{.Mode}}">
<input type="hidden" name="axis" value="{{.Axis}}">
<label>From <input type="date" name="start" value="{{.StartValue}}"></label>
<label>To <input type="date" name="end" value="{{.EndValue}}"></label>
<label>Refresh <input type="number" name="refresh" min="0" style="width:70px" value="{{.RefreshSeconds}}">s</label>
<button type="submit">Apply</button>
</form>
<div class="toolbar">
<a href="{{query . "view" "table"}}" {{if eq .Mode "table"}}class="active"{{end}}>Table</a>
<a href="{{query . "view" "graph"}}" {{if eq .Mode "graph"}}class="active"{{end}}>Graph</a>
{{if eq .Mode "graph"}}
<a href="{{query . "axis" "time"}}" {{if eq (print .Axis) "time"}}class="active"{{end}}>Time axis</a>
<a href="{{query . "axis" "duration"}}" {{if eq (print .Axis) "duration"}}class="active"{{end}}>Duration axis</a>
{{end}}
<span class="dim">{{fmtRangeTime .View.Range.Start}} to {{fmtRangeTime .View.Range.End}}</span>
</div>
<div class="cards">
<div class="card"><div class="val">{{.View.Summary.Events}}</div><div class="lbl">Events</div></div>
<div class="card"><div class="val">{{.View.Summary.Connections}}</div><div class="lbl">Connections</div></div>
<div class="card"><div class="val">{{fmtMinutes .View.Summary.ConnectedMinutes}}</div><div class="lbl">Connected</div></div>
<div class="card"><div class="val">{{fmtMinutes .View.Summary.DisconnectedMinutes}}</div><div class="lbl">Disconnected</div></div>
</div>
{{if eq .Mode "graph"}}{{template "chart" .Chart}}{{else}}
{{if .View.Entries}}
<table>
<thead><tr><th>Date</th><th>Time</th><th>Status</th><th>Duration</th><th>Location</th></tr></thead>
<tbody>
{{range .View.Entries}}<tr>
<td>{{.Date}}</td>
<td>{{.Time}}</td>
<td class="{{statusClass .}}">{{.StatusLabel}}</td>
<td class="{{durationClass .}}">{{.DurationLabel}}</td>
<td>{{if .Location}}<a href="{{mapLink .Location}}">{{.Location}}</a>{{if .LocationIsManual}} <span class="dim">(manual)</span>{{end}}{{else}}<span class="dim">-</span>{{end}}</td>
</tr>{{end}}
</tbody>
</table>
{{else}}<p class="dim">No status changes in this range.</p>{{end}}
{{end}}
{{template "footer"}}{{end}}

{{define "chart"}}{{if .Empty}}<p class="dim">Nothing to chart in this range.</p>{{else}}
<svg viewBox="0 0 {{.Width}} {{.Height}}" width="100%" role="img" aria-label="Plug status over time">
<line class="grid" x1="{{.Left}}" y1="{{.YOn}}" x2="{{.Right}}" y2="{{.YOn}}"/>
<line class="grid" x1="{{.Left}}" y1="{{.YOff}}" x2="{{.Right}}" y2="{{.YOff}}"/>
<text x="4" y="{{.YOn}}">ON</text>
<text x="4" y="{{.YOff}}">OFF</text>
<path class="step" d="{{.Path}}"/>
{{$base := .Baseline}}{{range .Ticks}}<text x="{{.X}}" y="{{$base}}" dy="16" text-anchor="middle">{{.Label}}</text>{{end}}
</svg>{{end}}{{end}}
`

const tmplMap = `
{{define "map"}}{{template "header" .Page}}
<h1>{{.Links.Location}}</h1>
{{if not .Links.Found}}<p class="warn">Exact position unknown; showing the world map.</p>{{end}}
<iframe src="{{.Links.EmbedURL}}" title="Map of {{.Links.Location}}"></iframe>
<p><a href="{{.Links.SearchURL}}" target="_blank" rel="noopener">Open in OpenStreetMap</a> · <a href="/">Back</a></p>
{{template "footer"}}{{end}}
`
