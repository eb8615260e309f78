package cipher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	atomicfile "github.com/natefinch/atomic"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RecipeManager handles storage and retrieval of recipes. With a store path
// every saved recipe is also written to <store>/<name>.json.
type RecipeManager struct {
	recipes   map[string]*Recipe
	files     map[string]string // recipe name -> file it was loaded from or written to
	storePath string
	mu        sync.RWMutex
}

// NewRecipeManager creates a new recipe manager
func NewRecipeManager(storePath string) *RecipeManager {
	return &RecipeManager{
		recipes:   make(map[string]*Recipe),
		files:     make(map[string]string),
		storePath: storePath,
	}
}

// ErrInvalidRecipe is returned by SaveRecipe for recipes that cannot run.
var ErrInvalidRecipe = errors.New("invalid recipe")

// SaveRecipe validates and stores a recipe
func (rm *RecipeManager) SaveRecipe(recipe *Recipe) error {
	if recipe.Name == "" {
		return errors.Wrap(ErrInvalidRecipe, "recipe name cannot be empty")
	}
	if len(recipe.Pipeline.Operations) == 0 {
		return errors.Wrapf(ErrInvalidRecipe, "recipe %s has no operations", recipe.Name)
	}
	for i, step := range recipe.Pipeline.Operations {
		if _, ok := GetOperation(step.Name); !ok {
			return errors.Wrapf(ErrInvalidRecipe, "recipe %s step %d: unknown operation %s", recipe.Name, i, step.Name)
		}
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	stored := *recipe
	now := time.Now().UTC().Format(time.RFC3339)
	if stored.CreatedAt == "" {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	if rm.storePath != "" {
		path := rm.recipePath(stored.Name)
		for name, file := range rm.files {
			if name != stored.Name && file == path {
				return errors.Wrapf(ErrInvalidRecipe, "recipe %q would share the file %s with recipe %q", stored.Name, filepath.Base(path), name)
			}
		}
		if err := rm.persistRecipe(&stored, path); err != nil {
			return err
		}
		// A recipe first loaded from YAML now lives in its JSON file.
		if old, ok := rm.files[stored.Name]; ok && old != path {
			if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove old recipe file: %w", err)
			}
		}
		rm.files[stored.Name] = path
	}

	recipe.CreatedAt, recipe.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	rm.recipes[stored.Name] = &stored
	return nil
}

func (rm *RecipeManager) recipePath(name string) string {
	return filepath.Join(rm.storePath, sanitizeFilename(name)+".json")
}

// GetRecipe retrieves a recipe by name
func (rm *RecipeManager) GetRecipe(name string) (*Recipe, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipe, exists := rm.recipes[name]
	return recipe, exists
}

// ListRecipes returns all recipes sorted by name
func (rm *RecipeManager) ListRecipes() []*Recipe {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipes := make([]*Recipe, 0, len(rm.recipes))
	for _, recipe := range rm.recipes {
		recipes = append(recipes, recipe)
	}
	sort.Slice(recipes, func(i, j int) bool {
		return recipes[i].Name < recipes[j].Name
	})

	return recipes
}

// DeleteRecipe removes a recipe
func (rm *RecipeManager) DeleteRecipe(name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if path, ok := rm.files[name]; ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete recipe file: %w", err)
		}
		delete(rm.files, name)
	}
	delete(rm.recipes, name)

	return nil
}

var recipeExtensions = []string{".json", ".yaml", ".yml"}

// LoadRecipes loads all JSON and YAML recipes from the store path
func (rm *RecipeManager) LoadRecipes() error {
	if rm.storePath == "" {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}

	entries, err := os.ReadDir(rm.storePath)
	if err != nil {
		return fmt.Errorf("failed to read recipes directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !isRecipeExtension(ext) {
			continue
		}

		recipePath := filepath.Join(rm.storePath, entry.Name())
		data, err := os.ReadFile(recipePath)
		if err != nil {
			return fmt.Errorf("failed to read recipe %s: %w", entry.Name(), err)
		}

		recipe, err := ParseRecipe(data, ext)
		if err != nil {
			return fmt.Errorf("failed to parse recipe %s: %w", entry.Name(), err)
		}
		if recipe.Name == "" {
			recipe.Name = strings.TrimSuffix(entry.Name(), ext)
		}

		rm.recipes[recipe.Name] = recipe
		rm.files[recipe.Name] = recipePath
	}

	return nil
}

// ParseRecipe decodes a recipe from JSON, or YAML when ext is .yaml/.yml.
func ParseRecipe(data []byte, ext string) (*Recipe, error) {
	var recipe Recipe
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &recipe); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &recipe); err != nil {
			return nil, err
		}
	}
	return &recipe, nil
}

// ExportYAML renders a recipe as a YAML document
func ExportYAML(recipe *Recipe) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(recipe); err != nil {
		return nil, fmt.Errorf("failed to serialize recipe: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isRecipeExtension(ext string) bool {
	for _, e := range recipeExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// persistRecipe atomically writes a single recipe to path
func (rm *RecipeManager) persistRecipe(recipe *Recipe, path string) error {
	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}

	data, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize recipe: %w", err)
	}

	if err := atomicfile.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}

	return nil
}

// sanitizeFilename converts a recipe name to a safe filename
func sanitizeFilename(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "recipe"
	}
	return sb.String()
}

// SearchRecipes finds recipes whose name, description or tags contain query,
// ignoring case
func (rm *RecipeManager) SearchRecipes(query string) []*Recipe {
	query = strings.ToLower(query)

	results := make([]*Recipe, 0)
	for _, recipe := range rm.ListRecipes() {
		if strings.Contains(strings.ToLower(recipe.Name), query) ||
			strings.Contains(strings.ToLower(recipe.Description), query) {
			results = append(results, recipe)
			continue
		}

		for _, tag := range recipe.Tags {
			if strings.Contains(strings.ToLower(tag), query) {
				results = append(results, recipe)
				break
			}
		}
	}

	return results
}
