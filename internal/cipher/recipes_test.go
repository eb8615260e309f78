package cipher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRecipe(name string) *Recipe {
	return &Recipe{
		Name:        name,
		Description: "Vigenere then columnar transposition",
		Tags:        []string{"classical", "Example"},
		Pipeline: Pipeline{
			Operations: []OperationConfig{
				{Name: "vigenere_encode", Parameters: map[string]interface{}{"key": "LEMON"}},
				{Name: "transposition_encode", Parameters: map[string]interface{}{"key": 4}},
			},
			Reversible: true,
		},
	}
}

func TestRecipeManagerSaveAndGet(t *testing.T) {
	rm := NewRecipeManager("")

	recipe := testRecipe("test-recipe")
	require.NoError(t, rm.SaveRecipe(recipe))

	retrieved, exists := rm.GetRecipe("test-recipe")
	require.True(t, exists)
	require.Equal(t, recipe.Name, retrieved.Name)
	require.Equal(t, recipe.Description, retrieved.Description)
	require.NotEmpty(t, retrieved.CreatedAt)
	require.NotEmpty(t, retrieved.UpdatedAt)
}

func TestRecipeManagerValidation(t *testing.T) {
	rm := NewRecipeManager("")

	require.ErrorIs(t, rm.SaveRecipe(&Recipe{Pipeline: testRecipe("x").Pipeline}), ErrInvalidRecipe)
	require.ErrorIs(t, rm.SaveRecipe(&Recipe{Name: "empty"}), ErrInvalidRecipe)

	bad := testRecipe("bad")
	bad.Pipeline.Operations = append(bad.Pipeline.Operations, OperationConfig{Name: "base64_encode"})
	require.ErrorIs(t, rm.SaveRecipe(bad), ErrInvalidRecipe)

	require.Empty(t, rm.ListRecipes())
}

func TestRecipePersistence(t *testing.T) {
	dir := t.TempDir()

	rm := NewRecipeManager(dir)
	require.NoError(t, rm.SaveRecipe(testRecipe("my recipe")))
	require.FileExists(t, filepath.Join(dir, "my_recipe.json"))

	reloaded := NewRecipeManager(dir)
	require.NoError(t, reloaded.LoadRecipes())

	recipe, ok := reloaded.GetRecipe("my recipe")
	require.True(t, ok)
	require.Len(t, recipe.Pipeline.Operations, 2)

	// JSON numbers come back as float64 and still decode as int params.
	out, err := recipe.Pipeline.Execute(context.Background(), []byte("ATTACKATDAWN"))
	require.NoError(t, err)
	require.Equal(t, "LPRXVNFEHOFR", string(out))

	require.NoError(t, reloaded.DeleteRecipe("my recipe"))
	_, err = os.Stat(filepath.Join(dir, "my_recipe.json"))
	require.True(t, os.IsNotExist(err))
	_, ok = reloaded.GetRecipe("my recipe")
	require.False(t, ok)
}

func TestSaveRecipeRejectsSharedFile(t *testing.T) {
	dir := t.TempDir()

	rm := NewRecipeManager(dir)
	require.NoError(t, rm.SaveRecipe(testRecipe("a b")))

	err := rm.SaveRecipe(testRecipe("a_b"))
	require.ErrorIs(t, err, ErrInvalidRecipe)
	require.ErrorContains(t, err, "a_b.json")

	_, ok := rm.GetRecipe("a_b")
	require.False(t, ok)

	reloaded := NewRecipeManager(dir)
	require.NoError(t, reloaded.LoadRecipes())
	_, ok = reloaded.GetRecipe("a b")
	require.True(t, ok)

	// Saving the same name again overwrites its own file.
	require.NoError(t, rm.SaveRecipe(testRecipe("a b")))
}

func TestSaveRecipeKeepsMemoryOnWriteFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	rm := NewRecipeManager(filepath.Join(blocker, "recipes"))
	recipe := testRecipe("lost")
	require.Error(t, rm.SaveRecipe(recipe))

	_, ok := rm.GetRecipe("lost")
	require.False(t, ok)
	require.Empty(t, recipe.CreatedAt)
}

func TestDeleteRecipeLeavesOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ab.yaml"), []byte("name: ab\npipeline:\n  operations:\n    - name: rot13\n"), 0o644))

	rm := NewRecipeManager(dir)
	require.NoError(t, rm.LoadRecipes())
	require.NoError(t, rm.SaveRecipe(testRecipe("a/b")))
	require.FileExists(t, filepath.Join(dir, "ab.json"))

	require.NoError(t, rm.DeleteRecipe("a/b"))
	require.NoFileExists(t, filepath.Join(dir, "ab.json"))
	require.FileExists(t, filepath.Join(dir, "ab.yaml"))

	_, ok := rm.GetRecipe("ab")
	require.True(t, ok)
}

func TestLoadYAMLRecipe(t *testing.T) {
	dir := t.TempDir()
	doc := `name: shout
description: rot13 then caesar
pipeline:
  reversible: true
  operations:
    - name: rot13
    - name: caesar_encode
      parameters:
        shift: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shout.yaml"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	rm := NewRecipeManager(dir)
	require.NoError(t, rm.LoadRecipes())
	require.Len(t, rm.ListRecipes(), 1)

	recipe, ok := rm.GetRecipe("shout")
	require.True(t, ok)

	out, err := recipe.Pipeline.Execute(context.Background(), []byte("HELLO"))
	require.NoError(t, err)
	require.Equal(t, "XUBBE", string(out))

	reversed, err := recipe.Pipeline.Reverse()
	require.NoError(t, err)
	back, err := reversed.Execute(context.Background(), out)
	require.NoError(t, err)
	require.Equal(t, "HELLO", string(back))
}

func TestLoadRecipesRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	rm := NewRecipeManager(dir)
	require.Error(t, rm.LoadRecipes())
}

func TestExportYAMLRoundTrip(t *testing.T) {
	recipe := testRecipe("yaml-out")

	data, err := ExportYAML(recipe)
	require.NoError(t, err)
	require.Contains(t, string(data), "name: yaml-out")
	require.Contains(t, string(data), "vigenere_encode")

	parsed, err := ParseRecipe(data, ".yml")
	require.NoError(t, err)
	require.Equal(t, recipe.Name, parsed.Name)
	require.Equal(t, recipe.Tags, parsed.Tags)
	require.Equal(t, recipe.Pipeline.Operations[1].Name, parsed.Pipeline.Operations[1].Name)
}

func TestSearchRecipes(t *testing.T) {
	rm := NewRecipeManager("")
	require.NoError(t, rm.SaveRecipe(testRecipe("alpha")))

	other := testRecipe("beta")
	other.Description = "just rot13"
	other.Tags = []string{"toy"}
	other.Pipeline = Pipeline{Operations: []OperationConfig{{Name: "rot13"}}}
	require.NoError(t, rm.SaveRecipe(other))

	require.Len(t, rm.SearchRecipes("EXAMPLE"), 1)
	require.Len(t, rm.SearchRecipes("rot13"), 1)
	require.Len(t, rm.SearchRecipes("a"), 2)
	require.Empty(t, rm.SearchRecipes("zzz"))
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "my_recipe", sanitizeFilename("my recipe"))
	require.Equal(t, "etcpasswd", sanitizeFilename("../etc/passwd"))
	require.Equal(t, "recipe", sanitizeFilename("///"))
}
