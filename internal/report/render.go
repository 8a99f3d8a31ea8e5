package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var weeklyTemplate = template.Must(template.New("weekly").Parse(`<html>
<body>
<h1>Weekly Results</h1>
<p>{{.From}} - {{.To}}</p>
{{- if .User}}
<p>{{.User}}</p>
{{- end}}
<h3>HABITS:</h3>
{{- range .Habits}}
<p>{{.Name}}: {{.Value}}</p>
{{- else}}
<p>-</p>
{{- end}}
<h3>DAILYS:</h3>
{{- range .Dailies}}
<p>{{.Name}}: {{.Value}}</p>
{{- else}}
<p>-</p>
{{- end}}
<h3>ToDos:</h3>
{{- range .Todos}}
<p>- {{.}}</p>
{{- else}}
<p>-</p>
{{- end}}
</body>
</html>
`))

const displayDateLayout = "02.01.2006"

// RenderHTML renders the weekly summary for the days from..to inclusive.
func RenderHTML(user string, from, to time.Time, s Summary) (string, error) {
	var buf bytes.Buffer
	err := weeklyTemplate.Execute(&buf, struct {
		User     string
		From, To string
		Habits   []Count
		Dailies  []Count
		Todos    []string
	}{
		User:    user,
		From:    from.Format(displayDateLayout),
		To:      to.Format(displayDateLayout),
		Habits:  sortedCounts(s.Habits),
		Dailies: sortedCounts(s.Dailies),
		Todos:   s.Todos,
	})
	if err != nil {
		return "", fmt.Errorf("rendering weekly report: %w", err)
	}
	return buf.String(), nil
}

// Subject is the weekly mail subject for the report ending on day.
func Subject(day time.Time) string {
	return "[BOT] Weekly Report - " + day.Format(displayDateLayout)
}
