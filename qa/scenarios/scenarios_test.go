package scenarios

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "sc*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(body); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	return tmp.Name()
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(writeScenario(t, ":")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if _, err := Load(writeScenario(t, "devices: []\n")); err == nil {
		t.Fatal("expected error for missing name")
	}
	unordered := "name: x\nsteps:\n  - {at_seconds: 10, watts: 0}\n  - {at_seconds: 5, watts: 0}\n"
	if _, err := Load(writeScenario(t, unordered)); err == nil {
		t.Fatal("expected error for unordered steps")
	}
}

func TestControlDefToGate(t *testing.T) {
	g := ControlDef{HeadroomWatts: 100, SpanWatts: 50, IncreaseSeconds: 60, DecreaseSeconds: 30}.ToGate()
	if g.HeadroomWatts != 100 || g.SpanWatts != 50 || g.IncreaseDelay.Seconds() != 60 || g.DecreaseDelay.Seconds() != 30 {
		t.Fatalf("unexpected gate config %#v", g)
	}
}
