package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/RowanDark/cryptex/internal/cipher"
)

// CipherOperationRequest represents a request to execute a cipher operation
type CipherOperationRequest struct {
	Operation string                 `json:"operation"`
	Input     string                 `json:"input"`
	Config    map[string]interface{} `json:"config,omitempty"`
}

// CipherOperationResponse represents the result of a cipher operation
type CipherOperationResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// CipherPipelineRequest represents a request to execute a pipeline of
// operations. With Reverse set the inverse pipeline runs instead.
type CipherPipelineRequest struct {
	Input      string                   `json:"input"`
	Operations []cipher.OperationConfig `json:"operations"`
	Reverse    bool                     `json:"reverse,omitempty"`
}

// CipherPipelineResponse represents the result of a pipeline execution
type CipherPipelineResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// CipherDetectRequest represents a request to auto-detect encoding
type CipherDetectRequest struct {
	Input string `json:"input"`
}

// CipherDetectResponse represents the detection result
type CipherDetectResponse struct {
	Detections []cipher.DetectionResult `json:"detections"`
}

// CipherSmartDecodeResponse represents the smart decode result
type CipherSmartDecodeResponse struct {
	Output     string   `json:"output"`
	Pipeline   []string `json:"pipeline"`
	Confidence float64  `json:"confidence"`
	Error      string   `json:"error,omitempty"`
}

// OperationInfo describes a registered operation
type OperationInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Reversible  bool   `json:"reversible"`
	Insecure    bool   `json:"insecure"`
}

// OperationListResponse lists the registered operations
type OperationListResponse struct {
	Operations []OperationInfo `json:"operations"`
}

// RecipeSaveRequest represents a request to save a recipe
type RecipeSaveRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Tags        []string                 `json:"tags,omitempty"`
	Operations  []cipher.OperationConfig `json:"operations"`
	Reversible  bool                     `json:"reversible"`
}

// RecipeRunRequest runs a stored recipe on Input
type RecipeRunRequest struct {
	Input   string `json:"input"`
	Reverse bool   `json:"reverse,omitempty"`
}

// RecipeListResponse represents the list of recipes
type RecipeListResponse struct {
	Recipes []cipher.Recipe `json:"recipes"`
}

// RecipeExportResponse represents an exported recipe
type RecipeExportResponse struct {
	Recipe cipher.Recipe `json:"recipe"`
}

// writeContextError answers a request whose context ended. It reports
// whether it wrote a response.
func (s *Server) writeContextError(w http.ResponseWriter, ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		http.Error(w, "request canceled", http.StatusRequestTimeout)
	} else {
		http.Error(w, "request timeout", http.StatusGatewayTimeout)
	}
	return true
}

func (s *Server) countOperation(name string, err error) {
	metrics.GetOrRegisterCounter("cipher.operations."+name, s.metrics).Inc(1)
	if err != nil {
		metrics.GetOrRegisterCounter("cipher.errors", s.metrics).Inc(1)
	}
}

// handleCipherExecute handles execution of a single cipher operation
func (s *Server) handleCipherExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CipherOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.Operation == "" {
		http.Error(w, "operation field is required", http.StatusBadRequest)
		return
	}

	op, exists := cipher.GetOperation(req.Operation)
	if !exists {
		s.writeJSON(w, http.StatusBadRequest, CipherOperationResponse{
			Error: "unknown operation: " + req.Operation,
		})
		return
	}

	ctx := r.Context()
	result, err := op.Execute(ctx, []byte(req.Input), req.Config)
	s.countOperation(req.Operation, err)
	if err != nil {
		if s.writeContextError(w, ctx) {
			return
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, CipherOperationResponse{
			Error: err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, CipherOperationResponse{
		Output: string(result),
	})
}

// handleCipherPipeline handles execution of a pipeline of operations
func (s *Server) handleCipherPipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CipherPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if len(req.Operations) == 0 {
		http.Error(w, "operations field is required and must not be empty", http.StatusBadRequest)
		return
	}

	pipeline := &cipher.Pipeline{
		Operations: req.Operations,
		Reversible: req.Reverse,
	}
	s.runPipeline(w, r.Context(), pipeline, req.Input, req.Reverse)
}

func (s *Server) runPipeline(w http.ResponseWriter, ctx context.Context, pipeline *cipher.Pipeline, input string, reverse bool) {
	if reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, CipherPipelineResponse{Error: err.Error()})
			return
		}
		pipeline = reversed
	}

	result, err := pipeline.Execute(ctx, []byte(input))
	s.countOperation("pipeline", err)
	if err != nil {
		if s.writeContextError(w, ctx) {
			return
		}
		status := http.StatusUnprocessableEntity
		if errors.Is(err, cipher.ErrUnknownOperation) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, CipherPipelineResponse{
			Error: err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, CipherPipelineResponse{
		Output: string(result),
	})
}

// handleCipherDetect handles auto-detection of encoding
func (s *Server) handleCipherDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CipherDetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		http.Error(w, "input field is required", http.StatusBadRequest)
		return
	}

	detector := cipher.NewSmartDetector()
	ctx := r.Context()
	detections, err := detector.Detect(ctx, []byte(req.Input))
	if err != nil {
		if s.writeContextError(w, ctx) {
			return
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      err.Error(),
			"detections": []cipher.DetectionResult{},
		})
		return
	}

	s.writeJSON(w, http.StatusOK, CipherDetectResponse{
		Detections: detections,
	})
}

// handleCipherSmartDecode decodes with the most confident detection that
// names a decoding operation
func (s *Server) handleCipherSmartDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CipherDetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		http.Error(w, "input field is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	results, err := cipher.DecodeAll(ctx, []byte(req.Input))
	if err != nil && s.writeContextError(w, ctx) {
		return
	}
	for _, result := range results {
		if !result.Success {
			continue
		}
		s.writeJSON(w, http.StatusOK, CipherSmartDecodeResponse{
			Output:     result.Decoded,
			Pipeline:   []string{result.Detection.Operation},
			Confidence: result.Detection.Confidence,
		})
		return
	}

	s.writeJSON(w, http.StatusUnprocessableEntity, CipherSmartDecodeResponse{
		Error: "could not detect encoding",
	})
}

// handleCipherListOperations handles listing all available operations
func (s *Server) handleCipherListOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var operations []cipher.Operation
	if opType := r.URL.Query().Get("type"); opType != "" {
		operations = cipher.ListOperationsByType(cipher.OperationType(opType))
	} else {
		operations = cipher.ListOperations()
	}

	opList := make([]OperationInfo, 0, len(operations))
	for _, op := range operations {
		_, reversible := op.Reverse()
		opList = append(opList, OperationInfo{
			Name:        op.Name(),
			Type:        string(op.Type()),
			Description: op.Description(),
			Reversible:  reversible,
			Insecure:    op.Insecure(),
		})
	}

	s.writeJSON(w, http.StatusOK, OperationListResponse{Operations: opList})
}

// handleRecipes lists (GET, optional ?q= filter) or saves (POST) recipes
func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleRecipeList(w, r)
	case http.MethodPost:
		s.handleRecipeSave(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRecipeSave handles saving a new recipe
func (s *Server) handleRecipeSave(w http.ResponseWriter, r *http.Request) {
	var req RecipeSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	recipe := &cipher.Recipe{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Pipeline: cipher.Pipeline{
			Operations: req.Operations,
			Reversible: req.Reversible,
		},
	}

	if err := s.recipeManager.SaveRecipe(recipe); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, cipher.ErrInvalidRecipe) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, map[string]string{
			"error": err.Error(),
		})
		return
	}

	s.logger.WithField("recipe", recipe.Name).Info("recipe saved")
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"status": "saved",
	})
}

// handleRecipeList handles listing all recipes
func (s *Server) handleRecipeList(w http.ResponseWriter, r *http.Request) {
	var recipes []*cipher.Recipe
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		recipes = s.recipeManager.SearchRecipes(q)
	} else {
		recipes = s.recipeManager.ListRecipes()
	}

	recipeList := make([]cipher.Recipe, len(recipes))
	for i, r := range recipes {
		recipeList[i] = *r
	}

	s.writeJSON(w, http.StatusOK, RecipeListResponse{
		Recipes: recipeList,
	})
}

// handleRecipeByName returns (GET) or deletes (DELETE) one recipe. GET with
// ?format=yaml answers with the YAML export.
func (s *Server) handleRecipeByName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	recipe, exists := s.recipeManager.GetRecipe(name)
	if !exists {
		http.Error(w, "recipe not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
			data, err := cipher.ExportYAML(recipe)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(data)
			return
		}
		s.writeJSON(w, http.StatusOK, RecipeExportResponse{
			Recipe: *recipe,
		})
	case http.MethodDelete:
		if err := s.recipeManager.DeleteRecipe(name); err != nil {
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": err.Error(),
			})
			return
		}
		s.logger.WithField("recipe", name).Info("recipe deleted")
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "deleted",
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRecipeRun executes a stored recipe
func (s *Server) handleRecipeRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recipe, exists := s.recipeManager.GetRecipe(r.PathValue("name"))
	if !exists {
		http.Error(w, "recipe not found", http.StatusNotFound)
		return
	}

	var req RecipeRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	pipeline := recipe.Pipeline
	s.runPipeline(w, r.Context(), &pipeline, req.Input, req.Reverse)
}
