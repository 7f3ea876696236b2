package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"secretdrop/internal/store"
)

// notFoundMessage is intentionally the same for ids that never existed,
// were already retrieved, or expired, so a caller cannot probe secret
// lifecycle.
const notFoundMessage = "Secret not found. It may have been viewed already."

type Server struct {
	store   store.Store
	log     zerolog.Logger
	maxBody int64
	mux     *http.ServeMux
}

// NewServer builds the API around a vault. maxBody caps the request body
// for submissions.
func NewServer(s store.Store, logger zerolog.Logger, maxBody int64) *Server {
	srv := &Server{
		store:   s,
		log:     logger,
		maxBody: maxBody,
		mux:     http.NewServeMux(),
	}

	srv.mux.HandleFunc("POST /api/secret", srv.handleStoreSecret)
	srv.mux.HandleFunc("GET /api/secret/{secret_id}", srv.handleRetrieveSecret)
	srv.mux.HandleFunc("GET /stats", srv.handleStats)

	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type storeSecretRequest struct {
	EncryptedData string `json:"encrypted_data"`
}

type storeSecretResponse struct {
	SecretID string `json:"secret_id"`
}

type retrieveSecretResponse struct {
	EncryptedData string `json:"encrypted_data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStoreSecret(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req storeSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "secret too large"})
			return
		}
		// A malformed body and a missing field get the same answer.
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "encrypted_data is required"})
		return
	}

	id, err := s.store.Put(r.Context(), []byte(req.EncryptedData))
	switch {
	case errors.Is(err, store.ErrEmptyPayload):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "encrypted_data is required"})
	case errors.Is(err, store.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "secret too large"})
	case err != nil:
		s.log.Error().Err(err).Msg("store secret failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		writeJSON(w, http.StatusCreated, storeSecretResponse{SecretID: id})
	}
}

func (s *Server) handleRetrieveSecret(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("secret_id")

	payload, err := s.store.Take(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFoundMessage})
	case err != nil:
		s.log.Error().Err(err).Msg("retrieve secret failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		writeJSON(w, http.StatusOK, retrieveSecretResponse{EncryptedData: string(payload)})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
