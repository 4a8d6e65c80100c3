package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kbsnetwork/server/internal/validate"
)

const msgServerError = "Erreur interne du serveur"

// respondJSON writes any payload as a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondWithMessage sends the {"message": ...} error body the client expects.
func respondWithMessage(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"message": message})
}

// respondValidation sends a 400 with the per-field messages.
func respondValidation(w http.ResponseWriter, errs validate.FieldErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"message": "Données invalides",
		"errors":  errs,
	})
}
