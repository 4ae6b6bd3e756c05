package handlers

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"darkGuardAPI/internal/dashboard"
	"darkGuardAPI/internal/types/subscription"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"statusClass": func(status string) string { return dashboard.StatusStyle(status).Class },
	"date":        func(t time.Time) string { return t.Format(subscription.DateLayout) },
	"amount":      func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}).ParseFS(templateFS, "templates/*.html"))

// render executes into a buffer first so a template error never leaves a
// half-written page.
func render(w http.ResponseWriter, code int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[Pages] render %s failed: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

// clerkFrontendAPI derives the Clerk frontend API host, which serves
// clerk-js, from a publishable key.
func clerkFrontendAPI(publishableKey string) string {
	parts := strings.SplitN(publishableKey, "_", 3)
	if len(parts) != 3 || parts[0] != "pk" {
		return ""
	}
	decoded, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(parts[2], "="))
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(string(decoded), "$")
}

// clerkScript is what every page that boots clerk-js needs.
type clerkScript struct {
	PublishableKey string
	FrontendAPI    string
}

func newClerkScript(publishableKey string) clerkScript {
	return clerkScript{PublishableKey: publishableKey, FrontendAPI: clerkFrontendAPI(publishableKey)}
}
