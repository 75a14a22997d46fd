package internal

import (
	"chat-board/domain"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Seq       string
	Timestamp string
	Author    string
	Kind      string
	Detail    string
}

type PageData struct {
	Source string
	Items  []InspectRow
	Stats  map[string]any
}

// TranscriptLoader returns the stored transcript in order.
type TranscriptLoader func() ([]domain.Message, error)

// ToRows flattens messages for display; images show their type and size instead of data.
func ToRows(messages []domain.Message) []InspectRow {
	return lo.Map(messages, func(m domain.Message, i int) InspectRow {
		row := InspectRow{
			Seq:       strconv.Itoa(i),
			Timestamp: m.CreatedAt.Format(domain.TimestampLayout),
			Author:    m.Author,
		}
		switch b := m.Body.(type) {
		case domain.Text:
			row.Kind, row.Detail = "TEXT", b.Content
		case domain.Notice:
			row.Kind, row.Detail = "NOTICE", b.Content
		case domain.Image:
			row.Kind, row.Detail = "IMAGE", fmt.Sprintf("%s, %d bytes", b.Encoding, len(b.Data))
		}
		return row
	})
}

// NewInspectHandler renders the transcript as an HTML table on every request.
func NewInspectHandler(source string, load TranscriptLoader, log *slog.Logger) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		messages, err := load()
		if err != nil {
			log.Error("Unable to load transcript", "error", err)
			http.Error(w, "unable to load transcript", http.StatusInternalServerError)
			return
		}
		data := PageData{
			Source: source,
			Items:  ToRows(messages),
			Stats: map[string]any{
				"Messages": len(messages),
				"Authors":  len(lo.Uniq(lo.Map(messages, func(m domain.Message, _ int) string { return m.Author }))),
				"Time":     time.Now().Format(time.RFC822),
			},
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Error("Unable to render transcript", "error", err)
		}
	})
}
