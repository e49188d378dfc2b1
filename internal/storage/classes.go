package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const classesFile = "classes.json"

// Classes returns the project's class list. A missing or unreadable file is
// an empty list.
func (l *Library) Classes() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(l.Layout().AnnotationDir, classesFile))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read classes: %w", err)
	}
	var classes []string
	if err := json.Unmarshal(data, &classes); err != nil {
		return []string{}, nil
	}
	return classes, nil
}

// SaveClasses replaces the project's class list.
func (l *Library) SaveClasses(classes []string) error {
	if classes == nil {
		classes = []string{}
	}
	data, err := json.MarshalIndent(classes, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(l.Layout().AnnotationDir, classesFile), data); err != nil {
		return fmt.Errorf("failed to write classes: %w", err)
	}
	return nil
}
