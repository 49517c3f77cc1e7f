package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/openx4-input/internal/input"
	"github.com/sweeney/openx4-input/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ms": func(d time.Duration) int64 {
		return d.Milliseconds()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>OpenX4 Input</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.held { color: green; font-weight: bold; }
.idle { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>OpenX4 Input</h1>

<h2>Buttons</h2>
<table>
<tr><th>Button</th><th>State</th><th>Pressed</th><th>Released</th></tr>
{{range .Buttons}}<tr><td>{{.Name}}</td><td class="{{if .Held}}held{{else}}idle{{end}}">{{if .Held}}HELD{{else}}idle{{end}}</td><td>{{.Pressed}}</td><td>{{.Released}}</td></tr>
{{end}}</table>
<table>
<tr><th>Held time</th><td>{{ms .HeldTime}}ms</td></tr>
</table>

<h2>Battery</h2>
<table>
{{if .Battery}}<tr><th>Voltage</th><td>{{.Battery.Millivolts}}mV</td></tr>
<tr><th>Charge</th><td>{{.Battery.Percent}}%</td></tr>
<tr><th>Read</th><td>{{.Battery.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{else}}<tr><th>Charge</th><td class="unknown">UNKNOWN</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Battery</th><td>{{if eq .Config.BatteryMs 0}}disabled{{else}}{{.Config.BatteryMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type buttonRow struct {
	Name     string
	Held     bool
	Pressed  int
	Released int
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]buttonRow, 0, input.NumButtons)
	for b := input.Button(0); b < input.NumButtons; b++ {
		rows = append(rows, buttonRow{
			Name:     b.String(),
			Held:     snap.State.Has(b),
			Pressed:  snap.Counts.Pressed[b],
			Released: snap.Counts.Released[b],
		})
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Buttons []buttonRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Buttons:  rows,
	}
	indexTmpl.Execute(w, data)
}
