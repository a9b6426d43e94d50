package web

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/sloppy/aria/internal/db"
)

func renderPage(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!doctype html><html lang=\"en\"><head>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta charset=\"utf-8\">"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<title>%s</title>", html.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, layoutStyles); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</head><body><main class=\"shell\">"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</main></body></html>"); err != nil {
			return err
		}
		return nil
	})
}

// HistoryPage lists journaled commands with per-kind totals.
func HistoryPage(title string, stats db.Stats, commands []db.Command, filter historyFilter) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<header class=\"page-header\"><p class=\"eyebrow\">%s</p><h1>Command history</h1><p class=\"subhead\">%d sessions, %d commands, %d failed.</p></header>",
			html.EscapeString(title), stats.Sessions, stats.Commands, stats.Failed); err != nil {
			return err
		}
		if err := kindSummary(stats, filter).Render(ctx, w); err != nil {
			return err
		}
		return commandTable(commands, filter).Render(ctx, w)
	})
	return layout(title+" history", body)
}

func kindSummary(stats db.Stats, filter historyFilter) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(stats.ByKind) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, "<section class=\"card\"><h2>By command</h2><ul class=\"kinds\">"); err != nil {
			return err
		}
		allClass := ""
		if filter.Kind == "" {
			allClass = " class=\"active\""
		}
		if _, err := fmt.Fprintf(w, "<li><a href=\"/history\"%s>all</a></li>", allClass); err != nil {
			return err
		}
		for _, kc := range stats.ByKind {
			class := ""
			if kc.Kind == filter.Kind {
				class = " class=\"active\""
			}
			href := "/history?kind=" + url.QueryEscape(kc.Kind)
			if _, err := fmt.Fprintf(w, "<li><a href=\"%s\"%s>%s</a> <span class=\"count\">%d</span>",
				html.EscapeString(href), class, html.EscapeString(kc.Kind), kc.Total); err != nil {
				return err
			}
			if kc.Failed > 0 {
				if _, err := fmt.Fprintf(w, " <span class=\"failed\">%d failed</span>", kc.Failed); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "</li>"); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul></section>")
		return err
	})
}

func commandTable(commands []db.Command, filter historyFilter) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<section class=\"card\">"); err != nil {
			return err
		}
		export := url.Values{}
		export.Set("format", "csv")
		export.Set("limit", strconv.Itoa(filter.Limit))
		if filter.Kind != "" {
			export.Set("kind", filter.Kind)
		}
		if _, err := fmt.Fprintf(w, "<p class=\"actions\"><a href=\"/history/export?%s\">Export CSV</a></p>", html.EscapeString(export.Encode())); err != nil {
			return err
		}
		if len(commands) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">No commands recorded yet.</p></section>")
			return err
		}
		if _, err := io.WriteString(w, "<table><thead><tr><th>Time</th><th>Command</th><th>Argument</th><th>Outcome</th><th>Duration</th><th>Message</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, c := range commands {
			if _, err := fmt.Fprintf(w,
				"<tr class=\"outcome-%s\"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(c.Outcome),
				html.EscapeString(c.StartedAt.Local().Format("2006-01-02 15:04:05")),
				html.EscapeString(c.Kind),
				html.EscapeString(c.Argument),
				html.EscapeString(c.Outcome),
				html.EscapeString(c.Duration.String()),
				html.EscapeString(c.Message),
			); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table></section>")
		return err
	})
}

const layoutStyles = `<style>
:root {
  color-scheme: light;
  --bg: #f6f1e8;
  --bg-accent: #e2eef0;
  --ink: #1f262d;
  --muted: #5c6c73;
  --card: rgba(255, 255, 255, 0.78);
  --stroke: rgba(31, 38, 45, 0.12);
  --accent: #2f6f6d;
  --danger: #9b3b2f;
  --shadow: 0 16px 40px rgba(15, 23, 28, 0.12);
}

* {
  box-sizing: border-box;
}

body {
  margin: 0;
  min-height: 100vh;
  font-family: "Iowan Old Style", "Palatino Linotype", "Book Antiqua", serif;
  color: var(--ink);
  background: radial-gradient(circle at 20% 20%, var(--bg-accent), transparent 45%),
    linear-gradient(135deg, #fbf7ef, var(--bg));
}

.shell {
  max-width: 1080px;
  margin: 0 auto;
  padding: 48px 24px 72px;
  display: grid;
  gap: 24px;
}

.page-header h1 {
  margin: 8px 0 8px;
  font-size: clamp(2rem, 3vw, 2.6rem);
  letter-spacing: -0.02em;
}

.eyebrow {
  text-transform: uppercase;
  letter-spacing: 0.24em;
  font-size: 0.72rem;
  color: var(--muted);
  margin: 0;
}

.subhead {
  margin: 0;
  color: var(--muted);
}

.card {
  background: var(--card);
  border: 1px solid var(--stroke);
  border-radius: 16px;
  padding: 20px 22px;
  box-shadow: var(--shadow);
}

.kinds {
  list-style: none;
  margin: 0;
  padding: 0;
  display: flex;
  flex-wrap: wrap;
  gap: 12px;
}

.kinds a {
  color: var(--accent);
}

.kinds a.active {
  font-weight: bold;
  color: var(--ink);
}

.count {
  color: var(--muted);
}

.failed,
.outcome-error td,
.outcome-partial td:nth-child(4) {
  color: var(--danger);
}

table {
  width: 100%;
  border-collapse: collapse;
  font-size: 0.95rem;
}

th,
td {
  text-align: left;
  padding: 8px 10px;
  border-bottom: 1px solid var(--stroke);
  vertical-align: top;
}

.empty {
  color: var(--muted);
}
</style>`
