package server

import (
	"embed"
	"log/slog"
	"net/http"
)

//go:embed web/home.html web/chat.html
var pages embed.FS

// servePage writes one of the embedded HTML views.
func servePage(w http.ResponseWriter, name string, logger *slog.Logger) {
	body, err := pages.ReadFile("web/" + name)
	if err != nil {
		logger.Error("Missing embedded page", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(body); err != nil {
		logger.Debug("Error writing HTML response", "page", name, "error", err)
	}
}
