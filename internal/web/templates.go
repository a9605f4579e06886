package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/purchase"
)

//go:embed templates/*.html
var templateFS embed.FS

// statusColors maps purchase statuses to their display color.
var statusColors = map[string]string{
	"PENDING":  "orange",
	"ACCEPTED": "green",
	"APPROVED": "green",
	"REJECTED": "red",
	"ERROR":    "gray",
}

// statusLabels maps purchase statuses to the Spanish label shown in the
// detail view.
var statusLabels = map[string]string{
	"PENDING":  "Pendiente",
	"ACCEPTED": "Aceptado",
	"APPROVED": "Aceptado",
	"REJECTED": "Rechazado",
	"ERROR":    "Error",
}

// loadTemplates parses the embedded view templates with the shared FuncMap.
func loadTemplates() *template.Template {
	funcMap := template.FuncMap{
		"money": func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		},
		"fee": purchase.FormatFee,
		"statusColor": func(status string) string {
			if color, ok := statusColors[strings.ToUpper(status)]; ok {
				return color
			}
			return "orange"
		},
		"statusLabel": func(status string) string {
			if label, ok := statusLabels[strings.ToUpper(status)]; ok {
				return label
			}
			return "Pendiente"
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Local().Format("02-01-2006 15:04")
		},
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"))
}
