package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"equipment-portal/internal/model"
	"equipment-portal/internal/web"
)

type pageData struct {
	Title string
	Data  any
}

type PagesHandler struct {
	pages     *web.Pages
	dashboard model.Dashboard
}

func NewPagesHandler(pages *web.Pages, dashboard *DashboardHandler) *PagesHandler {
	return &PagesHandler{pages: pages, dashboard: dashboard.data}
}

func (h *PagesHandler) Landing(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "landing", pageData{Title: "Home"})
}

func (h *PagesHandler) Auth(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "auth", pageData{Title: "Welcome"})
}

func (h *PagesHandler) Login(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "login", pageData{Title: "Login"})
}

func (h *PagesHandler) Signup(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "signup", pageData{Title: "Sign up"})
}

func (h *PagesHandler) AdminDashboard(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "admin-dashboard", pageData{Title: "Dashboard", Data: h.dashboard})
}

func (h *PagesHandler) render(w http.ResponseWriter, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.pages.Render(&buf, name, data); err != nil {
		slog.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
