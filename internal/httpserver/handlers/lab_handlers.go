package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"oraclelab/internal/auth"
	"oraclelab/internal/lab"
	"oraclelab/internal/models"
	"oraclelab/internal/util"
)

// MaxWorkers bounds the worker count a caller may request for one attack.
const MaxWorkers = 64

// AttackTimeout bounds a single attack run.
const AttackTimeout = 10 * time.Minute

func labStatus(err error) int {
	switch {
	case errors.Is(err, lab.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lab.ErrUnknownKind), errors.Is(err, lab.ErrUnsupported),
		errors.Is(err, lab.ErrUnsupportedOp), errors.Is(err, lab.ErrMissingPayload):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

// ownedLab resolves the {id} URL parameter to a lab the caller may use.
// Administrators may use every lab.
func ownedLab(w http.ResponseWriter, r *http.Request, reg *lab.Registry) (lab.Info, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid lab id", http.StatusBadRequest)
		return lab.Info{}, false
	}
	info, err := reg.Get(id)
	if err != nil {
		http.Error(w, err.Error(), labStatus(err))
		return lab.Info{}, false
	}
	c := auth.FromContext(r.Context())
	if info.Owner != c.Subject && !c.HasRole(models.RoleAdministrator) {
		http.Error(w, lab.ErrNotFound.Error(), http.StatusNotFound)
		return lab.Info{}, false
	}
	return info, true
}

type createLabReq struct {
	Kind      lab.Kind `json:"kind"`
	Algorithm string   `json:"algorithm"`
}

func CreateLab(reg *lab.Registry, st Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLabReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Algorithm == "" {
			req.Algorithm = "AES"
		}
		sub := auth.Subject(r.Context())
		info, err := reg.Create(req.Kind, req.Algorithm, sub)
		if err != nil {
			http.Error(w, err.Error(), labStatus(err))
			return
		}
		st.Audit(r.Context(), sub, "lab.create", map[string]any{"lab_id": info.ID, "kind": info.Kind, "algorithm": info.Algorithm})
		respondCreated(w, info)
	}
}

// ListLabs returns the caller's labs; administrators pass ?all=1 for every lab.
func ListLabs(reg *lab.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := auth.FromContext(r.Context())
		owner := c.Subject
		if r.URL.Query().Get("all") == "1" && c.HasRole(models.RoleAdministrator) {
			owner = ""
		}
		respondJSON(w, reg.List(owner))
	}
}

func GetLab(reg *lab.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := ownedLab(w, r, reg)
		if !ok {
			return
		}
		respondJSON(w, info)
	}
}

// DeleteLab drops the lab together with its key and secret.
func DeleteLab(reg *lab.Registry, st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := ownedLab(w, r, reg)
		if !ok {
			return
		}
		if err := reg.Delete(info.ID); err != nil {
			http.Error(w, err.Error(), labStatus(err))
			return
		}
		st.Audit(r.Context(), auth.Subject(r.Context()), "lab.delete", map[string]any{"lab_id": info.ID, "kind": info.Kind})
		respondJSON(w, map[string]any{"deleted": true})
	}
}

type queryReq struct {
	Op            string `json:"op"`
	Input         string `json:"input,omitempty"`
	InputHex      string `json:"input_hex,omitempty"`
	CiphertextHex string `json:"ciphertext_hex,omitempty"`
	Offset        int    `json:"offset,omitempty"`
}

type queryResp struct {
	OutputHex string `json:"output_hex,omitempty"`
	Valid     *bool  `json:"valid,omitempty"`
	Admin     *bool  `json:"admin,omitempty"`
	Profile   any    `json:"profile,omitempty"`
	Rejected  string `json:"rejected,omitempty"`
}

// QueryLab forwards one manual call to the lab's oracle.
func QueryLab(reg *lab.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := ownedLab(w, r, reg)
		if !ok {
			return
		}
		var req queryReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		input, err := util.Payload(req.Input, req.InputHex)
		if err != nil {
			http.Error(w, "input: "+err.Error(), http.StatusBadRequest)
			return
		}
		var ct []byte
		if req.CiphertextHex != "" {
			if ct, err = util.DecodeHex(req.CiphertextHex); err != nil {
				http.Error(w, "ciphertext: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		ans, err := reg.Query(info.ID, lab.Query{Op: req.Op, Input: input, Ciphertext: ct, Offset: req.Offset})
		if err != nil {
			http.Error(w, err.Error(), labStatus(err))
			return
		}
		respondJSON(w, queryResp{
			OutputHex: util.HexOrNil(ans.Output),
			Valid:     ans.Valid,
			Admin:     ans.Admin,
			Profile:   ans.Profile,
			Rejected:  ans.Rejected,
		})
	}
}

type attackReq struct {
	Workers int `json:"workers"`
}

// RunAttack runs the lab's attack, records the run and returns the verified
// result.
func RunAttack(reg *lab.Registry, st Store, defaultWorkers int, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := ownedLab(w, r, reg)
		if !ok {
			return
		}
		req := attackReq{Workers: defaultWorkers}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Workers < 1 || req.Workers > MaxWorkers {
			http.Error(w, "workers must be between 1 and 64", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), AttackTimeout)
		defer cancel()
		res, err := reg.Run(ctx, info.ID, req.Workers)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				http.Error(w, "attack cancelled", http.StatusGatewayTimeout)
				return
			}
			http.Error(w, err.Error(), labStatus(err))
			return
		}

		sub := auth.Subject(r.Context())
		run := models.AttackRun{
			UserID:       sub,
			LabID:        info.ID.String(),
			Kind:         string(res.Kind),
			Algorithm:    res.Algorithm,
			Workers:      res.Workers,
			Success:      res.Success,
			Queries:      res.Queries,
			ElapsedMS:    res.ElapsedMS,
			RecoveredHex: res.RecoveredHex,
			Error:        res.Error,
			CreatedAt:    time.Now(),
		}
		if err := st.RecordRun(r.Context(), &run); err != nil {
			lg.Errorw("record run", "lab", info.ID, "error", err)
		}
		st.Audit(r.Context(), sub, "lab.attack", map[string]any{"lab_id": info.ID, "success": res.Success, "queries": res.Queries})
		respondJSON(w, res)
	}
}
