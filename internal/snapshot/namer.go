package snapshot

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTemplate = "{server}-{period_type}#{period_number}-{timestamp}"
	DefaultLayout   = "2006-01-02T15:04:05Z07:00"
)

// Namer renders snapshot descriptions. The template may contain the
// placeholders {server}, {period_type}, {period_number} and {timestamp}.
type Namer struct {
	Template string
	Layout   string
	Location *time.Location
}

// Name renders the description of a snapshot of server taken at created and
// retained as the position-th snapshot of the period labelled periodType.
func (n Namer) Name(server string, created time.Time, periodType string, position int) string {
	tmpl := n.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	layout := n.Layout
	if layout == "" {
		layout = DefaultLayout
	}
	if n.Location != nil {
		created = created.In(n.Location)
	}

	r := strings.NewReplacer(
		"{server}", server,
		"{period_type}", periodType,
		"{period_number}", strconv.Itoa(position),
		"{timestamp}", created.Format(layout),
	)
	return r.Replace(tmpl)
}
