package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeLifecycle(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "")

	out, err := runCtlWithConfig(t, cfg, "", "recipe", "save",
		"--name", "lemon",
		"--description", "vigenere then transposition",
		"--tag", "classic",
		"--step", "vigenere_encode:key=LEMON,alphabet=ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"--step", "transposition_encode:key=4")
	require.NoError(t, err)
	assert.Equal(t, "saved recipe lemon (2 steps)\n", out)
	assert.FileExists(t, filepath.Join(dir, "recipes", "lemon.json"))

	out, err = runCtlWithConfig(t, cfg, "", "recipe", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "lemon")
	assert.Contains(t, out, "vigenere then transposition")

	out, err = runCtlWithConfig(t, cfg, "", "recipe", "list", "--query", "nomatch")
	require.NoError(t, err)
	assert.NotContains(t, out, "lemon")

	out, err = runCtlWithConfig(t, cfg, "", "recipe", "run", "lemon", "ATTACKATDAWN")
	require.NoError(t, err)
	assert.Equal(t, "LPRXVNFEHOFR\n", out)

	out, err = runCtlWithConfig(t, cfg, "LPRXVNFEHOFR\n", "recipe", "run", "--reverse", "lemon")
	require.NoError(t, err)
	assert.Equal(t, "ATTACKATDAWN\n", out)

	out, err = runCtlWithConfig(t, cfg, "", "recipe", "show", "lemon")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "lemon"`)

	exported := filepath.Join(dir, "lemon.yaml")
	_, err = runCtlWithConfig(t, cfg, "", "recipe", "export", "--output", exported, "lemon")
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: lemon")

	out, err = runCtlWithConfig(t, cfg, "", "recipe", "delete", "lemon")
	require.NoError(t, err)
	assert.Equal(t, "deleted recipe lemon\n", out)

	_, err = runCtlWithConfig(t, cfg, "", "recipe", "show", "lemon")
	require.ErrorContains(t, err, "not found")

	out, err = runCtlWithConfig(t, cfg, "", "recipe", "save", "--file", exported, "--name", "imported")
	require.NoError(t, err)
	assert.Equal(t, "saved recipe imported (2 steps)\n", out)
}

func TestRecipeSaveRejectsUnknownOperation(t *testing.T) {
	_, err := runCtl(t, "", "recipe", "save", "--name", "bad", "--step", "enigma")
	require.ErrorContains(t, err, "invalid recipe")
}

func TestRecipeSaveRequiresName(t *testing.T) {
	_, err := runCtl(t, "", "recipe", "save", "--step", "rot13")
	require.Error(t, err)
}
