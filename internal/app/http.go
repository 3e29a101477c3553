package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const sessionCookieName = "portal_session"

// maxUploadBytes caps attachment uploads at 10 MiB.
const maxUploadBytes = 10 << 20

type HTTPServer struct {
	service      *Service
	corsOrigin   string
	dashboardURL string
	sessionTTL   time.Duration
	log          zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigin, dashboardURL string, sessionTTL time.Duration, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		service:      service,
		corsOrigin:   corsOrigin,
		dashboardURL: dashboardURL,
		sessionTTL:   sessionTTL,
		log:          logger,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
			"redis":    map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		if err := s.service.PingSessions(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["redis"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// OAuth callback is the only route the browser reaches unauthenticated.
	if r.Method == http.MethodGet && (r.URL.Path == "/api/auth/zoho" || r.URL.Path == "/api/auth/zoho/callback") {
		s.handleZohoCallback(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			_ = s.service.Logout(r.Context(), cookie.Value)
		}
		clearSessionCookie(w)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	// Everything below requires a session.
	ident, err := s.identify(r)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) == 0 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	parts = parts[1:]

	switch {
	case len(parts) == 1 && parts[0] == "user":
		s.handleCurrentUser(w, r, ident)
	case len(parts) >= 1 && parts[0] == "ideas":
		s.handleIdeas(w, r, ident, parts[1:])
	case len(parts) >= 1 && parts[0] == "workflow":
		s.handleWorkflow(w, r, ident, parts[1:])
	case len(parts) >= 1 && parts[0] == "departments":
		s.handleDepartments(w, r, ident, parts[1:])
	case len(parts) >= 1 && parts[0] == "form-data":
		s.handleFormData(w, r, parts[1:])
	case len(parts) == 1 && parts[0] == "upload" && r.Method == http.MethodPost:
		s.handleTopLevelUpload(w, r, ident)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) identify(r *http.Request) (Identity, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return Identity{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	return s.service.IdentityFromToken(r.Context(), cookie.Value)
}

// ── Auth ──

func (s *HTTPServer) handleZohoCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if oauthErr := query.Get("error"); oauthErr != "" {
		s.redirectWithError(w, r, oauthErr)
		return
	}

	code := query.Get("code")
	if code == "" {
		s.redirectWithError(w, r, "missing_code")
		return
	}

	token, _, err := s.service.LoginWithZoho(r.Context(), code)
	if err != nil {
		s.log.Warn().Err(err).Msg("zoho login failed")
		s.redirectWithError(w, r, "login_failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.dashboardURL, http.StatusFound)
}

func (s *HTTPServer) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	target := s.dashboardURL
	if parsed, err := url.Parse(target); err == nil {
		q := parsed.Query()
		q.Set("error", reason)
		parsed.RawQuery = q.Encode()
		target = parsed.String()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) handleCurrentUser(w http.ResponseWriter, r *http.Request, ident Identity) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": ident.User,
		"role": ident.Role,
	})
}

// ── Ideas ──

func (s *HTTPServer) handleIdeas(w http.ResponseWriter, r *http.Request, ident Identity, parts []string) {
	// /api/ideas
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			ideas, err := s.service.ListIdeas(r.Context(), ident)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ideas": ideas})
		case http.MethodPost:
			var body CreateIdeaInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			idea, err := s.service.CreateIdea(r.Context(), ident, body)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"idea": idea})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// /api/ideas/search
	if len(parts) == 1 && parts[0] == "search" && r.Method == http.MethodGet {
		query := r.URL.Query()
		limit, err := queryInt(query, "limit", 20)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		offset, err := queryInt(query, "offset", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		payload, err := s.service.SearchIdeas(r.Context(), ident, query.Get("q"), limit, offset)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	ideaID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	// /api/ideas/{id} and /api/ideas/{id}/detail
	if len(parts) == 1 || (len(parts) == 2 && parts[1] == "detail" && r.Method == http.MethodGet) {
		switch r.Method {
		case http.MethodGet:
			detail, err := s.service.GetIdeaDetail(r.Context(), ident, ideaID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, detail)
		case http.MethodPut:
			var body UpdateIdeaInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			idea, err := s.service.UpdateIdea(r.Context(), ident, ideaID, body)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"idea": idea})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// /api/ideas/{id}/...
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "vote":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			VoteType string `json:"vote_type"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Vote(r.Context(), ident, ideaID, body.VoteType)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case "review", "enhanced-review":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body ReviewInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if parts[1] == "enhanced-review" && body.Rubric == nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "idea_scores are required", nil)
			return
		}
		if parts[1] == "review" {
			body.Rubric = nil
		}
		result, err := s.service.ProcessReview(r.Context(), ident, ideaID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case "comments":
		switch r.Method {
		case http.MethodGet:
			comments, err := s.service.ListIdeaComments(r.Context(), ideaID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
		case http.MethodPost:
			var body struct {
				Comment     string `json:"comment"`
				CommentType string `json:"comment_type"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			comment, err := s.service.AddComment(r.Context(), ident, ideaID, body.Comment, body.CommentType)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"comment": comment})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}

	case "upload":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		s.handleUpload(w, r, ident, ideaID)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleTopLevelUpload accepts the idea id as a form field instead of a path
// segment; the submission screen uploads before it knows its route.
func (s *HTTPServer) handleTopLevelUpload(w http.ResponseWriter, r *http.Request, ident Identity) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Expected a multipart upload", nil)
		return
	}
	ideaID, err := strconv.ParseInt(r.FormValue("idea_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "idea_id is required", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	defer file.Close()

	attachment, err := s.service.AttachFile(r.Context(), ident, ideaID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"attachment": attachment})
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request, ident Identity, ideaID int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Expected a multipart upload", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	defer file.Close()

	attachment, err := s.service.AttachFile(r.Context(), ident, ideaID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"attachment": attachment})
}

// ── Workflow views ──

func (s *HTTPServer) handleWorkflow(w http.ResponseWriter, r *http.Request, ident Identity, parts []string) {
	if r.Method != http.MethodGet || len(parts) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[0] {
	case "committee-review":
		ideas, err := s.service.CommitteeQueue(r.Context(), ident)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ideas": ideas})

	case "recent-comments":
		days, err := queryInt(r.URL.Query(), "days", 7)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "days must be an integer", nil)
			return
		}
		ideas, err := s.service.RecentlyCommented(r.Context(), ident, time.Duration(days)*24*time.Hour)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ideas": ideas})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Departments ──

func (s *HTTPServer) handleDepartments(w http.ResponseWriter, r *http.Request, ident Identity, parts []string) {
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			departments, err := s.service.ListDepartments(r.Context())
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"departments": departments})
		case http.MethodPost:
			var body DepartmentInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			department, err := s.service.CreateDepartment(r.Context(), ident, body)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"department": department})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 1 && parts[0] == "sync-locations" {
		var country string
		switch r.Method {
		case http.MethodGet:
			country = r.URL.Query().Get("country")
		case http.MethodPost:
			var body struct {
				Country string `json:"country"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			country = body.Country
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		result, err := s.service.SyncLocations(r.Context(), ident, country)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	departmentID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || len(parts) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var body DepartmentInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		department, err := s.service.UpdateDepartment(r.Context(), ident, departmentID, body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"department": department})
	case http.MethodDelete:
		if err := s.service.DeleteDepartment(r.Context(), ident, departmentID); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// ── Form data ──

func (s *HTTPServer) handleFormData(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	// /api/form-data returns everything the submission form needs at once;
	// the sub-resources serve screens that only want one list.
	if len(parts) == 0 {
		payload, err := s.service.GetFormData(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[0] {
	case "departments":
		departments, err := s.service.ListDepartments(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"departments": departments})
	case "clusters":
		clusters, err := s.service.ListClusters(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
	case "countries":
		countries, err := s.service.ListCountries(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"countries": countries})
	case "api-promoters":
		promoters, err := s.service.ListAPIPromoters(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": promoters})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// ── Middleware and helpers ──

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Allow-Credentials", "true")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func queryInt(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
