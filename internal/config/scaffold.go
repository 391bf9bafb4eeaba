package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScaffoldProject prepares dir for bbutil: a default bbutil.json, the
// locales directory for compiled catalogs and a .gitignore entry for the
// database file and the intermediate .locales templates. Existing files are
// left untouched. Returns the list of created or modified paths.
func ScaffoldProject(dir string) ([]string, error) {
	var created []string

	cfgPath := filepath.Join(dir, FileNames[0])
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if _, initErr := InitFile(dir); initErr != nil {
			return created, initErr
		}
		created = append(created, cfgPath)
	}

	cfg := Defaults()
	localesDir := filepath.Join(dir, "locales")
	if _, err := os.Stat(localesDir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(localesDir, 0755); mkErr != nil {
			return created, fmt.Errorf("scaffold: create %s: %w", localesDir, mkErr)
		}
		created = append(created, localesDir)
	}

	entries := []string{cfg.Database.Filename, ".locales/"}
	gitignorePath := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return created, fmt.Errorf("scaffold: read %s: %w", gitignorePath, err)
	}

	content := string(existing)
	changed := false
	for _, entry := range entries {
		if containsLine(content, entry) {
			continue
		}
		if len(content) > 0 && content[len(content)-1] != '\n' {
			content += "\n"
		}
		content += entry + "\n"
		changed = true
	}
	if changed {
		if writeErr := os.WriteFile(gitignorePath, []byte(content), 0644); writeErr != nil {
			return created, fmt.Errorf("scaffold: write %s: %w", gitignorePath, writeErr)
		}
		created = append(created, gitignorePath)
	}

	return created, nil
}

func containsLine(content, line string) bool {
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) == line {
			return true
		}
	}
	return false
}
