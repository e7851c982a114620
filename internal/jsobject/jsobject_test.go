package jsobject

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const playerConfig = `{
	title: 'Launch day',
	sources: [
		{src: "https://cdn.example.com/v/400.mp4", bitrate: 400000},
		{'src': 'https://cdn.example.com/v/800.mp4', "bitrate": 8e5,},
	],
	autoplay: false,
}`

func checkConfig(t *testing.T, v any) {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("Expected object, got %T", v)
	}
	if m["title"] != "Launch day" {
		t.Errorf("Unexpected title %v", m["title"])
	}
	sources, ok := m["sources"].([]any)
	if !ok || len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %#v", m["sources"])
	}
	second := sources[1].(map[string]any)
	if second["bitrate"] != float64(800000) {
		t.Errorf("Expected bitrate 800000 as float64, got %#v", second["bitrate"])
	}
	if m["autoplay"] != false {
		t.Errorf("Expected autoplay false, got %#v", m["autoplay"])
	}
}

func TestEval(t *testing.T) {
	v, err := Eval(playerConfig + ";")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	checkConfig(t, v)
}

// strictConfig avoids trailing commas so both runtimes accept it.
const strictConfig = `{
	title: 'Launch day',
	sources: [
		{src: "https://cdn.example.com/v/400.mp4", bitrate: 400000},
		{'src': 'https://cdn.example.com/v/800.mp4', "bitrate": 8e5}
	],
	autoplay: false
}`

func TestEngines(t *testing.T) {
	for _, e := range Engines() {
		t.Run(e.Name(), func(t *testing.T) {
			v, err := e.Eval(strictConfig, time.Second)
			if err != nil {
				t.Fatalf("%s: %v", e.Name(), err)
			}
			checkConfig(t, v)
		})
	}
}

type failingEngine struct{}

func (failingEngine) Name() string { return "failing" }
func (failingEngine) Eval(string, time.Duration) (any, error) {
	return nil, errors.New("nope")
}

func TestEvalWith_Fallback(t *testing.T) {
	v, err := EvalWith([]Engine{failingEngine{}, OttoEngine{}}, `{a: 1}`, time.Second)
	if err != nil {
		t.Fatalf("Expected fallback to succeed: %v", err)
	}
	if v.(map[string]any)["a"] != float64(1) {
		t.Errorf("Unexpected value %#v", v)
	}
}

func TestEvalWith_AllFail(t *testing.T) {
	_, err := EvalWith([]Engine{failingEngine{}, failingEngine{}}, `{a: 1}`, time.Second)
	if err == nil || !strings.Contains(err.Error(), "failing: nope") {
		t.Fatalf("Expected joined error, got %v", err)
	}
}

func TestEval_Errors(t *testing.T) {
	if _, err := Eval("   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty, got %v", err)
	}
	if _, err := Eval("{broken: "); err == nil {
		t.Error("Expected syntax error")
	}
	if _, err := Eval("null"); err == nil {
		t.Error("Expected error for null")
	}
}

func TestEval_Timeout(t *testing.T) {
	start := time.Now()
	_, err := EvalWith(Engines(), `(function(){ for(;;){} })()`, 50*time.Millisecond)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Timeout not enforced, took %v", time.Since(start))
	}
}
