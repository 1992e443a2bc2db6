package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yangwenmai/latentvault/internal/engine"
	"github.com/yangwenmai/latentvault/internal/model"
	"github.com/yangwenmai/latentvault/internal/vault"
)

// ---------------------------------------------------------------------------
// GET /api/vault?domain=X
// ---------------------------------------------------------------------------

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := model.ParseDomainFilter(r.URL.Query().Get("domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := s.vault.List(r.Context(), filter)
	if err != nil {
		s.writeVaultError(w, err, "failed to list vault")
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// ---------------------------------------------------------------------------
// GET /api/vault/summaries
// ---------------------------------------------------------------------------

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	sums, err := s.vault.Summaries(r.Context())
	if err != nil {
		s.writeVaultError(w, err, "failed to summarize vault")
		return
	}
	if sums == nil {
		sums = []model.Summary{}
	}
	writeJSON(w, http.StatusOK, sums)
}

// ---------------------------------------------------------------------------
// GET /api/vault/export
// ---------------------------------------------------------------------------

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := s.vault.Export(r.Context(), &buf); err != nil {
		s.writeVaultError(w, err, "failed to export vault")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+vault.ExportFilename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ---------------------------------------------------------------------------
// POST /api/vault/import
// ---------------------------------------------------------------------------

type importFailure struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type importResponse struct {
	Merged  int             `json:"merged"`
	Failed  []importFailure `json:"failed"`
	Message string          `json:"message"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	res, err := s.vault.Import(r.Context(), r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "import document too large")
			return
		}
		s.writeVaultError(w, err, "failed to import vault")
		return
	}

	resp := importResponse{Merged: res.Merged, Failed: []importFailure{}, Message: res.Message()}
	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, importFailure{Index: f.Index, ID: f.ID, Error: f.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// DELETE /api/vault
// ---------------------------------------------------------------------------

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.vault.Clear(r.Context())
	if err != nil {
		s.writeVaultError(w, err, "failed to clear vault")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// ---------------------------------------------------------------------------
// POST /api/vault/batch/delete
// ---------------------------------------------------------------------------

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, err := s.vault.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		s.writeVaultError(w, err, "failed to delete records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// ---------------------------------------------------------------------------
// GET /api/vault/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.vault.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeVaultError(w, err, "failed to get record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---------------------------------------------------------------------------
// PUT /api/vault/{id}
// ---------------------------------------------------------------------------

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var rec model.Record
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if rec.ID == "" {
		rec.ID = id
	}
	if rec.ID != id {
		writeError(w, http.StatusBadRequest, "id in body does not match path")
		return
	}

	if err := s.vault.Save(r.Context(), rec); err != nil {
		s.writeVaultError(w, err, "failed to save record")
		return
	}
	saved, err := s.vault.Get(r.Context(), id)
	if err != nil {
		s.writeVaultError(w, err, "failed to get record")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ---------------------------------------------------------------------------
// DELETE /api/vault/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.vault.Delete(r.Context(), id); err != nil {
		s.writeVaultError(w, err, "failed to delete record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// ---------------------------------------------------------------------------
// POST /api/vault/{id}/favorite
// ---------------------------------------------------------------------------

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	rec, err := s.vault.ToggleFavorite(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeVaultError(w, err, "failed to toggle favorite")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---------------------------------------------------------------------------
// PUT /api/vault/{id}/grading
// ---------------------------------------------------------------------------

func (s *Server) handleGrading(w http.ResponseWriter, r *http.Request) {
	var g *model.Grading
	if err := decodeBody(r, &g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.vault.CommitGrading(r.Context(), r.PathValue("id"), g)
	if err != nil {
		s.writeVaultError(w, err, "failed to commit grading")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---------------------------------------------------------------------------
// POST /api/usage/{shortId}
// ---------------------------------------------------------------------------

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.vault.IncrementUsage(r.Context(), r.PathValue("shortId"))
	if err != nil {
		s.writeVaultError(w, err, "failed to record usage")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---------------------------------------------------------------------------
// GET /api/slots
// ---------------------------------------------------------------------------

type slotView struct {
	Domain  model.Domain  `json:"domain"`
	Label   string        `json:"label"`
	ShortID string        `json:"shortId"`
	Record  *model.Record `json:"record"`
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.vault.ResolveSlots(r.Context())
	if err != nil {
		s.writeVaultError(w, err, "failed to resolve slots")
		return
	}

	refs := s.vault.Slots().Snapshot()
	out := make([]slotView, 0, len(model.Domains))
	for _, d := range model.Domains {
		out = append(out, slotView{Domain: d, Label: d.Label(), ShortID: refs[d], Record: resolved[d]})
	}
	writeJSON(w, http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// PUT /api/slots/{domain}
// ---------------------------------------------------------------------------

type setSlotRequest struct {
	ShortID string `json:"shortId"`
}

func (s *Server) handleSetSlot(w http.ResponseWriter, r *http.Request) {
	d, err := model.ParseDomain(r.PathValue("domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req setSlotRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.vault.Slots().Set(d, req.ShortID)
	writeJSON(w, http.StatusOK, map[string]string{"domain": d.String(), "shortId": req.ShortID})
}

// ---------------------------------------------------------------------------
// DELETE /api/slots/{domain}
// ---------------------------------------------------------------------------

func (s *Server) handleClearSlot(w http.ResponseWriter, r *http.Request) {
	d, err := model.ParseDomain(r.PathValue("domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.vault.Slots().Clear(d)
	writeJSON(w, http.StatusOK, map[string]string{"domain": d.String(), "shortId": ""})
}

// ---------------------------------------------------------------------------
// POST /api/generate
// ---------------------------------------------------------------------------

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var in engine.RunInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.session.Run(r.Context(), in)
	if err != nil {
		var stepErr *engine.StepError
		if errors.As(err, &stepErr) {
			switch stepErr.StepName() {
			case "validate":
				writeError(w, http.StatusBadRequest, err.Error())
				return
			case "generate":
				s.log.Warn("generation failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, err.Error())
				return
			}
		}
		s.writeVaultError(w, err, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---------------------------------------------------------------------------
// POST /api/commit
// ---------------------------------------------------------------------------

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var in engine.CommitInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.session.Commit(r.Context(), in)
	if err != nil {
		s.writeVaultError(w, err, "failed to commit result")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
