package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/rachid48133/studygenie/internal/db"
	"github.com/rachid48133/studygenie/internal/models"
	"github.com/rachid48133/studygenie/internal/rag"
	"github.com/rachid48133/studygenie/internal/studytools"
)

const (
	maxUploadBytes = 64 << 20
	contentTopK    = 30
)

// Service is the course pipeline behind the handlers.
type Service interface {
	IndexCourse(ctx context.Context, userID, courseID, filePath, courseName string) (*models.IndexStats, error)
	Answer(ctx context.Context, req rag.AnswerRequest) (*models.AnswerResult, error)
	CourseContent(ctx context.Context, userID, courseID, lang string, topK int) (string, *models.CourseMetadata, error)
	DeleteCourse(userID, courseID string) error
}

type StudyTools interface {
	Flashcards(ctx context.Context, content string, n int, lang, plan string) ([]studytools.Flashcard, error)
	Quiz(ctx context.Context, content string, n int, lang, plan string) ([]studytools.QuizQuestion, error)
	Summary(ctx context.Context, content, length string, numPages int, lang, plan string) (string, error)
	Explanation(ctx context.Context, question, answer, lang, plan string) (string, error)
}

// History stores answered questions. It is optional.
type History interface {
	Save(ctx context.Context, userID, courseID string, res *models.AnswerResult) error
	List(ctx context.Context, userID, courseID string, limit int) ([]db.QueryRecord, error)
	Delete(ctx context.Context, userID, courseID string) error
}

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	svc     Service
	tools   StudyTools
	history History
}

// NewHandler creates a Handler. history may be nil.
func NewHandler(svc Service, tools StudyTools, history History) *Handler {
	return &Handler{svc: svc, tools: tools, history: history}
}

type askRequest struct {
	Question string `json:"question"`
	Plan     string `json:"plan"`
	TopK     int    `json:"top_k"`
	Language string `json:"language"`
}

type toolRequest struct {
	Plan         string `json:"plan"`
	Language     string `json:"language"`
	NumCards     int    `json:"num_cards"`
	NumQuestions int    `json:"num_questions"`
	Length       string `json:"length"`
	NumPages     int    `json:"num_pages"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
}

func courseIDs(r *http.Request) (string, string) {
	vars := mux.Vars(r)
	return vars["userID"], vars["courseID"]
}

// HandleIndex handles POST .../index with a multipart "file" upload.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	userID, courseID := courseIDs(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(w, http.StatusBadRequest, "Missing file: "+err.Error())
		return
	}
	defer file.Close()

	path, err := saveUpload(file, filepath.Ext(header.Filename))
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.Remove(path)

	stats, err := h.svc.IndexCourse(r.Context(), userID, courseID, path, r.FormValue("course_name"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, stats)
}

func saveUpload(src io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "course-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return tmp.Name(), nil
}

// HandleAsk handles POST .../ask requests.
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	userID, courseID := courseIDs(r)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.Question == "" {
		sendError(w, http.StatusBadRequest, "question is required")
		return
	}

	res, err := h.svc.Answer(r.Context(), rag.AnswerRequest{
		UserID:   userID,
		CourseID: courseID,
		Question: req.Question,
		Plan:     req.Plan,
		TopK:     req.TopK,
		Language: req.Language,
	})
	if err != nil {
		sendFailure(w, r, err)
		return
	}

	if h.history != nil {
		if err := h.history.Save(r.Context(), userID, courseID, res); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to save query history")
		}
	}
	sendJSON(w, http.StatusOK, res)
}

// HandleDelete handles DELETE .../courses/{courseID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, courseID := courseIDs(r)
	if err := h.svc.DeleteCourse(userID, courseID); err != nil {
		sendFailure(w, r, err)
		return
	}
	if h.history != nil {
		if err := h.history.Delete(r.Context(), userID, courseID); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to delete query history")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeTool reads a study tool request and loads the course content.
func (h *Handler) decodeTool(w http.ResponseWriter, r *http.Request) (toolRequest, string, bool) {
	userID, courseID := courseIDs(r)

	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		sendError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return req, "", false
	}
	if req.Plan == "" {
		req.Plan = models.DefaultPlan
	}
	if req.Language == "" {
		req.Language = models.DefaultLanguage
	}

	content, _, err := h.svc.CourseContent(r.Context(), userID, courseID, req.Language, contentTopK)
	if err != nil {
		sendFailure(w, r, err)
		return req, "", false
	}
	return req, content, true
}

// HandleFlashcards handles POST .../flashcards requests.
func (h *Handler) HandleFlashcards(w http.ResponseWriter, r *http.Request) {
	req, content, ok := h.decodeTool(w, r)
	if !ok {
		return
	}
	if req.NumCards <= 0 {
		req.NumCards = 10
	}
	cards, err := h.tools.Flashcards(r.Context(), content, studytools.FlashcardCount(req.Plan, req.NumCards), req.Language, req.Plan)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"flashcards": cards, "count": len(cards)})
}

// HandleQuiz handles POST .../quiz requests.
func (h *Handler) HandleQuiz(w http.ResponseWriter, r *http.Request) {
	req, content, ok := h.decodeTool(w, r)
	if !ok {
		return
	}
	if req.NumQuestions <= 0 {
		req.NumQuestions = 5
	}
	questions, err := h.tools.Quiz(r.Context(), content, studytools.QuizCount(req.Plan, req.NumQuestions), req.Language, req.Plan)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"questions": questions, "count": len(questions)})
}

// HandleSummary handles POST .../summary requests.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	req, content, ok := h.decodeTool(w, r)
	if !ok {
		return
	}
	length := studytools.SummaryLength(req.Plan, req.Length)
	summary, err := h.tools.Summary(r.Context(), content, length, req.NumPages, req.Language, req.Plan)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"summary": summary, "length": length})
}

// HandleExplain handles POST .../explain requests.
func (h *Handler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.Question == "" || req.Answer == "" {
		sendError(w, http.StatusBadRequest, "question and answer are required")
		return
	}
	explanation, err := h.tools.Explanation(r.Context(), req.Question, req.Answer, req.Language, req.Plan)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
}

// HandleHistory handles GET .../history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		sendError(w, http.StatusNotImplemented, "query history is not configured")
		return
	}
	userID, courseID := courseIDs(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.history.List(r.Context(), userID, courseID, limit)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"history": records})
}

// HandleHealth handles GET /health requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusFor maps pipeline errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCourseNotIndexed), errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrExtraction), errors.Is(err, models.ErrEmptyContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrGeneration):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func sendFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("Request failed")
	sendError(w, status, err.Error())
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}

// sendJSON sends a JSON response with the given status code.
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
