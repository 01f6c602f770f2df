package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CTAG07/hostgen/pkg/dedup"
	"github.com/CTAG07/hostgen/pkg/markov"
	"github.com/CTAG07/hostgen/pkg/store"
)

// maxGenerateCount caps the names returned by one generate request.
const maxGenerateCount = 10000

// maxBodyBytes caps request bodies, including uploaded corpora and models.
const maxBodyBytes = 64 << 20

// ModelAPI holds the dependencies for the model API handlers.
type ModelAPI struct {
	store    *store.Store
	generate GenerateConfig
	logger   *slog.Logger
}

// NewModelAPI creates a new instance of the ModelAPI. gc supplies the
// generation settings a request does not override.
func NewModelAPI(s *store.Store, gc GenerateConfig, logger *slog.Logger) *ModelAPI {
	return &ModelAPI{
		store:    s,
		generate: gc,
		logger:   logger,
	}
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (m *ModelAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/models", m.handleListModels)
	mux.HandleFunc("/api/models/", m.handleModelByName)
	mux.HandleFunc("/api/stats", m.handleStats)
	mux.HandleFunc("/api/version", m.handleVersion)
}

// GenerateRequest is the body of POST /api/models/{name}/generate. Zero
// values keep the server's configured defaults.
type GenerateRequest struct {
	Count        int    `json:"count"`
	Prefix       string `json:"prefix"`
	Suffix       string `json:"suffix"`
	CustomLevels int    `json:"custom_levels"`
	Seed         uint64 `json:"seed"`
}

// GenerateResponse carries the generated names and how they were produced.
type GenerateResponse struct {
	Names      []string `json:"names"`
	Requested  int      `json:"requested"`
	Attempts   int      `json:"attempts"`
	Exhausted  int      `json:"exhausted"`
	Duplicates int      `json:"duplicates"`
}

// ScoreRequest is the body of POST /api/models/{name}/score.
type ScoreRequest struct {
	Names []string `json:"names"`
}

// NameScore is one scored name.
type NameScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// handleListModels lists stored models.
func (m *ModelAPI) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	models, err := m.store.List(r.Context())
	if err != nil {
		m.logger.Error("Failed to list models", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve models: %v", err))
		return
	}
	if models == nil {
		models = []store.ModelInfo{}
	}
	respondWithJSON(w, http.StatusOK, models)
}

// handleModelByName routes actions for a specific model: export, import,
// delete, generate, score and train.
func (m *ModelAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}
	if len(parts) > 2 {
		respondWithError(w, http.StatusNotFound, "Unknown endpoint")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			m.handleExport(w, r, modelName)
		case http.MethodPut:
			m.handleImport(w, r, modelName)
		case http.MethodDelete:
			m.handleDelete(w, r, modelName)
		default:
			w.Header().Set("Allow", "GET, PUT, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case "generate", "score", "train":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		switch action {
		case "generate":
			m.handleGenerate(w, r, modelName)
		case "score":
			m.handleScore(w, r, modelName)
		case "train":
			m.handleTrain(w, r, modelName)
		}
	default:
		respondWithError(w, http.StatusNotFound, "Unknown endpoint")
	}
}

// loadModel loads a stored model, writing the error response on failure.
func (m *ModelAPI) loadModel(w http.ResponseWriter, r *http.Request, name string) (*markov.Model, bool) {
	model, err := m.store.Load(r.Context(), name)
	switch {
	case errors.Is(err, store.ErrModelNotFound):
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Model '%s' not found", name))
		return nil, false
	case err != nil:
		m.logger.Error("Failed to load model", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load model: %v", err))
		return nil, false
	}
	return model, true
}

func (m *ModelAPI) handleExport(w http.ResponseWriter, r *http.Request, name string) {
	model, ok := m.loadModel(w, r, name)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", name))
	if err := model.WriteJSON(w); err != nil {
		m.logger.Error("Failed to write model", "name", name, "error", err)
	}
}

func (m *ModelAPI) handleImport(w http.ResponseWriter, r *http.Request, name string) {
	model, err := markov.ReadJSON(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := m.store.Save(r.Context(), name, model)
	if err != nil {
		m.logger.Error("Failed to import model", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save model: %v", err))
		return
	}
	respondWithJSON(w, http.StatusCreated, info)
}

func (m *ModelAPI) handleDelete(w http.ResponseWriter, r *http.Request, name string) {
	err := m.store.Remove(r.Context(), name)
	switch {
	case errors.Is(err, store.ErrModelNotFound):
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Model '%s' not found", name))
	case err != nil:
		m.logger.Error("Failed to remove model", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove model: %v", err))
	default:
		m.logger.Info("Model removed via API", "name", name)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (m *ModelAPI) handleTrain(w http.ResponseWriter, r *http.Request, name string) {
	trainer := markov.NewTrainer()
	trainer.SetLogger(m.logger)
	model, err := trainer.Train(r.Context(), r.Body)
	switch {
	case errors.Is(err, markov.ErrEmptyCorpus):
		respondWithError(w, http.StatusBadRequest, "Corpus has no usable names")
		return
	case err != nil:
		m.logger.Error("Training failed", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
		return
	}
	info, err := m.store.Save(r.Context(), name, model)
	if err != nil {
		m.logger.Error("Failed to save trained model", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save model: %v", err))
		return
	}
	respondWithJSON(w, http.StatusCreated, info)
}

func (m *ModelAPI) handleGenerate(w http.ResponseWriter, r *http.Request, name string) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	gc := m.generate
	if req.Count != 0 {
		gc.Count = req.Count
	}
	if req.Prefix != "" {
		gc.Prefix = req.Prefix
	}
	if req.Suffix != "" {
		gc.Suffix = req.Suffix
	}
	if req.CustomLevels != 0 {
		gc.CustomLevels = req.CustomLevels
	}
	if req.Seed != 0 {
		gc.Seed = req.Seed
	}
	if gc.Count > maxGenerateCount {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("count must be at most %d", maxGenerateCount))
		return
	}
	if err := gc.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	model, ok := m.loadModel(w, r, name)
	if !ok {
		return
	}
	g, err := newGenerator(model, gc, m.logger)
	if errors.Is(err, markov.ErrEmptyDepthWindow) {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	} else if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	names, stats, err := g.GenerateN(gc.Count, gc.affixes(), dedup.NewBloom(uint(gc.Count), gc.FalsePositiveRate))
	if err != nil {
		m.logger.Error("Generation failed", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, GenerateResponse{
		Names:      names,
		Requested:  stats.Requested,
		Attempts:   stats.Attempts,
		Exhausted:  stats.Exhausted,
		Duplicates: stats.Duplicates,
	})
}

func (m *ModelAPI) handleScore(w http.ResponseWriter, r *http.Request, name string) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	model, ok := m.loadModel(w, r, name)
	if !ok {
		return
	}
	eps := m.generate.Epsilons.epsilons()
	scores := make([]NameScore, 0, len(req.Names))
	for _, n := range req.Names {
		scores = append(scores, NameScore{Name: n, Score: model.Score(n, eps)})
	}
	respondWithJSON(w, http.StatusOK, scores)
}

// handleStats returns entry counts for every stored model.
func (m *ModelAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stats, err := m.store.Stats(r.Context())
	if err != nil {
		m.logger.Error("Failed to get model stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleVersion returns build information.
func (m *ModelAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{Version: Version, Commit: Commit, BuildDate: BuildDate})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}
