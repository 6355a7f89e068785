package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"oraclelab/internal/auth"
)

func runLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

// MyRuns returns the caller's recent attack runs.
func MyRuns(st Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := st.ListRuns(r.Context(), auth.Subject(r.Context()), runLimit(r))
		if err != nil {
			lg.Errorw("list runs", "error", err)
			http.Error(w, "list failed", http.StatusInternalServerError)
			return
		}
		respondJSON(w, runs)
	}
}

// AllRuns returns recent runs of every user.
func AllRuns(st Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := st.ListRuns(r.Context(), "", runLimit(r))
		if err != nil {
			lg.Errorw("list runs", "error", err)
			http.Error(w, "list failed", http.StatusInternalServerError)
			return
		}
		respondJSON(w, runs)
	}
}
