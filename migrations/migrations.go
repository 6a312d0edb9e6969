// Package migrations embeds the schema scripts for every supported driver.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql sqlite3/*.sql
var files embed.FS

// Direction selects up or down scripts
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection parses "up" or "down"
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	default:
		return "", fmt.Errorf("invalid migration direction %q (allowed: up, down)", s)
	}
}

// Script is a single named migration
type Script struct {
	Name string
	SQL  string
}

// Load returns the scripts for driver in execution order.
// Up scripts run ascending, down scripts descending.
func Load(driver string, direction Direction) ([]Script, error) {
	entries, err := fs.ReadDir(files, driver)
	if err != nil {
		return nil, fmt.Errorf("no migrations for driver %q: %w", driver, err)
	}

	suffix := "." + string(direction) + ".sql"
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no %s migrations for driver %q", direction, driver)
	}

	sort.Strings(names)
	if direction == Down {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	scripts := make([]Script, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(files, path.Join(driver, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		scripts = append(scripts, Script{Name: path.Join(driver, name), SQL: string(content)})
	}

	return scripts, nil
}
