package migrations

import (
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite3"} {
		t.Run(driver, func(t *testing.T) {
			up, err := Load(driver, Up)
			if err != nil {
				t.Fatalf("Load(up) error = %v", err)
			}
			if len(up) == 0 || !strings.Contains(up[0].SQL, "CREATE TABLE IF NOT EXISTS measurement") {
				t.Errorf("up scripts = %+v", up)
			}

			down, err := Load(driver, Down)
			if err != nil {
				t.Fatalf("Load(down) error = %v", err)
			}
			if len(down) == 0 || !strings.Contains(down[0].SQL, "DROP TABLE") {
				t.Errorf("down scripts = %+v", down)
			}
		})
	}

	if _, err := Load("mysql", Up); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection(" UP "); err != nil || d != Up {
		t.Errorf("ParseDirection(UP) = %v, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error")
	}
}
