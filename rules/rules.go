package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/levelkit/levels"
)

var ErrRuleViolation = errors.New("rule violation")

// Script limits. Rules are small content checks, not programs.
const (
	maxAllocs   = 1 << 20
	runTimeout  = time.Second
	scriptGlobs = "*.tengo"
)

// Violation is one message appended by a rule script.
type Violation struct {
	Rule    string
	Level   uint32
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("level %d: rule %s: %s", v.Level, v.Rule, v.Message)
}

func (v *Violation) Unwrap() error {
	return ErrRuleViolation
}

// Rule is a compiled tengo script. It sees the level as the global `level`
// and reports problems by appending strings to the global `violations`.
type Rule struct {
	Name     string
	compiled *tengo.Compiled
}

func Compile(name string, src []byte) (*Rule, error) {
	script := tengo.NewScript(src)
	_ = script.Add("level", map[string]interface{}{})
	_ = script.Add("violations", []interface{}{})
	script.SetImports(stdlib.GetModuleMap("text", "math", "fmt"))
	script.SetMaxAllocs(maxAllocs)

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("rules: compile %s: %w", name, err)
	}
	return &Rule{Name: name, compiled: compiled}, nil
}

// Check runs the rule against one level. Each call works on its own clone of
// the compiled script, so a Rule can be shared between goroutines.
func (r *Rule) Check(def *levels.Definition) ([]string, error) {
	c := r.compiled.Clone()
	if err := c.Set("level", levelObject(def)); err != nil {
		return nil, fmt.Errorf("rules: %s: set level: %w", r.Name, err)
	}
	if err := c.Set("violations", []interface{}{}); err != nil {
		return nil, fmt.Errorf("rules: %s: set violations: %w", r.Name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if err := c.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("rules: %s: run level %d: %w", r.Name, def.Number, err)
	}

	var out []string
	for _, v := range c.Get("violations").Array() {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}

func levelObject(def *levels.Definition) map[string]interface{} {
	cells := make([]interface{}, len(def.Matrix))
	width := 0
	for i, row := range def.Matrix {
		r := make([]interface{}, len(row))
		for j, c := range row {
			r[j] = int(c)
		}
		cells[i] = r
		width = max(width, len(row))
	}

	obj := map[string]interface{}{
		"number": int(def.Number),
		"width":  width,
		"height": len(def.Matrix),
		"cells":  cells,
	}
	if p := def.Presentation; p != nil {
		obj["ground_profile"] = p.GroundProfile
		obj["background_profile"] = p.BackgroundProfile
		obj["sidewall_profile"] = p.SidewallProfile
		obj["notes"] = p.Notes
	}
	return obj
}

// Set is an ordered list of rules.
type Set []*Rule

// Check runs every rule and returns all violations joined, or nil.
func (s Set) Check(def *levels.Definition) error {
	var errs []error
	for _, r := range s {
		msgs, err := r.Check(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, m := range msgs {
			errs = append(errs, &Violation{Rule: r.Name, Level: def.Number, Message: m})
		}
	}
	return errors.Join(errs...)
}

// LoadDir compiles every .tengo file in dir, in file name order. A missing
// directory yields an empty set.
func LoadDir(fsys fs.FS, dir string) (Set, error) {
	names, err := fs.Glob(fsys, path.Join(dir, scriptGlobs))
	if err != nil {
		return nil, fmt.Errorf("rules: glob %s: %w", dir, err)
	}
	sort.Strings(names)

	set := make(Set, 0, len(names))
	for _, name := range names {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("rules: read %s: %w", name, err)
		}
		r, err := Compile(strings.TrimSuffix(path.Base(name), ".tengo"), src)
		if err != nil {
			return nil, err
		}
		set = append(set, r)
	}
	return set, nil
}
