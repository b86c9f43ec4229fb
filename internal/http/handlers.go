package http

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"clinic-assistant/internal/core"
	"clinic-assistant/internal/db"
	"clinic-assistant/pkg"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server bundles the dependencies required by the HTTP handlers.
type Server struct {
	Repo      *db.Repository
	Chat      *core.ChatService
	Templates *template.Template
	Logger    zerolog.Logger
}

// NewServer constructs a Server with the embedded HTML templates parsed.
func NewServer(repo *db.Repository, chat *core.ChatService, logger zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		Repo:      repo,
		Chat:      chat,
		Templates: tmpl,
		Logger:    logger,
	}, nil
}

// Router wires the HTTP surface. Paths match the original application
// exactly; the chat page's browser script posts to the JSON endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(RequestLogger(s.Logger))
	r.Use(Recovery(s.Logger))

	r.Get("/", s.handleLoginForm)
	r.Post("/", s.handleCreatePatient)
	r.Get("/dashboard/{patientID}", s.handleDashboard)
	r.Get("/chat/{patientID}", s.handleChatPage)
	r.Get("/records", s.handleRecords)
	r.Post("/api/send_message", s.handleSendMessage)

	return r
}

type loginData struct {
	Error string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", loginData{})
}

// handleCreatePatient creates a patient from the intake form and redirects
// to the new dashboard. A blank name re-renders the form with an error and
// creates nothing.
func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		s.render(w, "login.html", loginData{Error: "Name is required"})
		return
	}

	var age *int
	if raw := strings.TrimSpace(r.FormValue("age")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			age = &v
		}
	}
	gender := optionalField(r.FormValue("gender"))
	phone := optionalField(r.FormValue("phone"))

	patient, err := s.Repo.CreatePatient(r.Context(), name, age, gender, phone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/dashboard/"+strconv.FormatInt(patient.ID, 10), http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	patient, ok := s.lookupPatient(w, r)
	if !ok {
		return
	}
	s.render(w, "dashboard.html", struct {
		Patient *pkg.Patient
	}{patient})
}

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	patient, ok := s.lookupPatient(w, r)
	if !ok {
		return
	}
	history, err := s.Repo.History(r.Context(), patient.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, "chat.html", struct {
		Patient *pkg.Patient
		History []pkg.ChatTurn
	}{patient, history})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	patients, err := s.Repo.ListPatients(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, "records.html", struct {
		Patients []pkg.Patient
	}{patients})
}

// handleSendMessage accepts {patient_id, message}, persists both sides of
// the exchange, and returns the assistant's reply as JSON. Upstream
// completion failures arrive here already normalized into reply text.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req pkg.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if req.PatientID <= 0 || message == "" {
		respondError(w, http.StatusBadRequest, "patient_id and message are required")
		return
	}

	if _, err := s.Repo.GetPatient(r.Context(), req.PatientID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "patient not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	reply, err := s.Chat.Reply(r.Context(), req.PatientID, message)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	respondJSON(w, http.StatusOK, pkg.SendMessageResponse{Reply: reply})
}

// lookupPatient resolves the {patientID} path parameter. A non-numeric or
// unknown identifier is a 404, matching the original application.
func (s *Server) lookupPatient(w http.ResponseWriter, r *http.Request) (*pkg.Patient, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patientID"), 10, 64)
	if err != nil {
		http.Error(w, "patient not found", http.StatusNotFound)
		return nil, false
	}
	patient, err := s.Repo.GetPatient(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "patient not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return patient, true
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.Templates.ExecuteTemplate(w, name, data); err != nil {
		s.Logger.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func optionalField(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
