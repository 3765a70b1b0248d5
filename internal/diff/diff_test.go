package diff

import (
	"slices"
	"testing"

	"github.com/thoreinstein/truffaldino/internal/model"
)

func entry(name, command string) *model.Entry {
	return &model.Entry{Name: name, Command: command}
}

func configOf(entries ...*model.Entry) *model.Config {
	cfg := model.NewConfig()
	for _, e := range entries {
		cfg.Set(e)
	}
	return cfg
}

func TestCompute_SelfIsEmpty(t *testing.T) {
	cfg := configOf(entry("a", "1"), entry("b", "2"))

	r := Compute(cfg, cfg)
	if !r.Empty() {
		t.Errorf("Compute(x, x) not empty: %+v", r)
	}
	if !slices.Equal(r.Unchanged, []string{"a", "b"}) {
		t.Errorf("Unchanged = %v, want [a b]", r.Unchanged)
	}
}

func TestCompute_Categories(t *testing.T) {
	// Source {A, B} vs target {B', C}.
	source := configOf(entry("A", "cmd-a"), entry("B", "cmd-b"))
	target := configOf(entry("B", "cmd-b-different"), entry("C", "cmd-c"))

	r := Compute(source, target)

	if !slices.Equal(r.Added, []string{"A"}) {
		t.Errorf("Added = %v, want [A]", r.Added)
	}
	if len(r.Unchanged) != 0 {
		t.Errorf("Unchanged = %v, want empty", r.Unchanged)
	}
	if !slices.Equal(r.Conflicting, []string{"B"}) {
		t.Errorf("Conflicting = %v, want [B]", r.Conflicting)
	}
	if !slices.Equal(r.TargetOnly, []string{"C"}) {
		t.Errorf("TargetOnly = %v, want [C]", r.TargetOnly)
	}
}

func TestCompute_OrderFollowsSource(t *testing.T) {
	source := configOf(entry("z", "1"), entry("m", "2"), entry("a", "3"))
	target := model.NewConfig()

	r := Compute(source, target)
	if !slices.Equal(r.Added, []string{"z", "m", "a"}) {
		t.Errorf("Added = %v, want source insertion order [z m a]", r.Added)
	}
}

func TestCompute_EmptySource(t *testing.T) {
	source := model.NewConfig()
	target := configOf(entry("a", "1"))

	r := Compute(source, target)
	if !r.Empty() {
		t.Errorf("empty source should yield empty diff, got %+v", r)
	}
	if !slices.Equal(r.TargetOnly, []string{"a"}) {
		t.Errorf("TargetOnly = %v, want [a]", r.TargetOnly)
	}
}

func TestCompute_Pure(t *testing.T) {
	source := configOf(entry("a", "1"))
	target := configOf(entry("b", "2"))

	_ = Compute(source, target)

	if source.Len() != 1 || target.Len() != 1 {
		t.Error("Compute modified its inputs")
	}
}

func TestResultEmpty(t *testing.T) {
	tests := []struct {
		name  string
		r     Result
		empty bool
	}{
		{"zero value", Result{}, true},
		{"only unchanged", Result{Unchanged: []string{"a"}}, true},
		{"only target-only", Result{TargetOnly: []string{"a"}}, true},
		{"with added", Result{Added: []string{"a"}}, false},
		{"with conflicting", Result{Conflicting: []string{"a"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Empty(); got != tt.empty {
				t.Errorf("Empty() = %v, want %v", got, tt.empty)
			}
		})
	}
}
