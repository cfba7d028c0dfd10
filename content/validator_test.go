package content

import (
	"errors"
	"testing"

	"github.com/milk9111/levelkit/grid"
	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/material"
	"github.com/milk9111/levelkit/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var small = grid.Dimensions{Width: 3, Height: 2}

func testManifest(t *testing.T, extra ...material.Profile) *material.Manifest {
	t.Helper()
	base := []material.Profile{
		{ID: "ground/default", AlbedoPath: "g.png", Roughness: 0.9, UVScale: material.Vec2{4, 3}},
		{ID: "ground/cobble_01", AlbedoPath: "c.png", Roughness: 0.9, UVScale: material.Vec2{4, 3}, FallbackChain: []material.Ref{"ground/default"}},
		{ID: "ground/worn", UVScale: material.DefaultUVScale, FallbackChain: []material.Ref{"ground/cobble_01"}},
		{ID: "background/default", AlbedoPath: "b.png", UVScale: material.DefaultUVScale},
		{ID: "sidewall/default", AlbedoPath: "s.png", UVScale: material.DefaultUVScale},
	}
	m, err := material.NewManifest(append(base, extra...)...)
	require.NoError(t, err)
	return m
}

func testLevel(number uint32, ground string) *levels.Definition {
	def := &levels.Definition{
		Number: number,
		Matrix: []levels.Row{
			{levels.SimpleBrick, levels.SimpleBrick, levels.SimpleBrick},
			{levels.Empty, levels.Paddle, levels.Ball},
		},
	}
	if ground != "" {
		def.Presentation = &levels.Presentation{LevelNumber: number, GroundProfile: ground}
	}
	return def
}

func TestValidateAccepts(t *testing.T) {
	v := Validator{Dims: small, RequiredCategories: DefaultCategories}
	report, err := v.Validate(testManifest(t), []*levels.Definition{
		testLevel(1, "ground/cobble_01"),
		testLevel(2, "ground/worn"),
		testLevel(3, ""),
	})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 3, report.Levels)
	assert.Equal(t, 5, report.Profiles)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]*levels.Definition) []*levels.Definition
		extra  []material.Profile
		want   error
		level  uint32
	}{
		{
			name: "short matrix",
			mutate: func(defs []*levels.Definition) []*levels.Definition {
				defs[0].Matrix = defs[0].Matrix[:1]
				return defs
			},
			want:  ErrDimensionMismatch,
			level: 1,
		},
		{
			name: "ragged row",
			mutate: func(defs []*levels.Definition) []*levels.Definition {
				defs[1].Matrix[1] = append(defs[1].Matrix[1], levels.Empty)
				return defs
			},
			want:  ErrDimensionMismatch,
			level: 2,
		},
		{
			name: "duplicate number",
			mutate: func(defs []*levels.Definition) []*levels.Definition {
				return append(defs, testLevel(2, ""))
			},
			want:  ErrDuplicateLevelNumber,
			level: 2,
		},
		{
			name: "presentation mismatch",
			mutate: func(defs []*levels.Definition) []*levels.Definition {
				defs[0].Presentation.LevelNumber = 7
				return defs
			},
			want:  ErrPresentationLevelMismatch,
			level: 1,
		},
		{
			name: "unknown profile",
			mutate: func(defs []*levels.Definition) []*levels.Definition {
				defs[0].Presentation.GroundProfile = "ground/missing"
				return defs
			},
			want:  material.ErrUnknownProfile,
			level: 1,
		},
		{
			name: "cyclic profile",
			mutate: func(defs []*levels.Definition) []*levels.Definition {
				defs[1].Presentation.GroundProfile = "ground/a"
				return defs
			},
			extra: []material.Profile{
				{ID: "ground/a", UVScale: material.DefaultUVScale, FallbackChain: []material.Ref{"ground/b"}},
				{ID: "ground/b", UVScale: material.DefaultUVScale, FallbackChain: []material.Ref{"ground/a"}},
			},
			want:  material.ErrCyclicFallbackChain,
			level: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := tt.mutate([]*levels.Definition{
				testLevel(1, "ground/default"),
				testLevel(2, "ground/cobble_01"),
			})
			v := Validator{Dims: small}
			report, err := v.Validate(testManifest(t, tt.extra...), defs)
			require.ErrorIs(t, err, tt.want)
			require.Len(t, report.Violations, 1)

			var le *LevelError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.level, le.Level)
		})
	}
}

func TestValidateUnknownProfileNamesSurface(t *testing.T) {
	def := testLevel(4, "")
	def.Presentation = &levels.Presentation{LevelNumber: 4, SidewallProfile: "sidewall/missing"}

	_, err := (&Validator{Dims: small}).Validate(testManifest(t), []*levels.Definition{def})
	require.ErrorIs(t, err, material.ErrUnknownProfile)
	assert.EqualError(t, err, `level 4: sidewall: unknown profile "sidewall/missing"`)
}

func TestValidateNoDefaultProfile(t *testing.T) {
	m, err := material.NewManifest(
		material.Profile{ID: "ground/default", AlbedoPath: "g.png", UVScale: material.DefaultUVScale},
		material.Profile{ID: "background/night", UVScale: material.DefaultUVScale, FallbackChain: []material.Ref{"ground/default"}},
	)
	require.NoError(t, err)

	v := Validator{Dims: small, RequiredCategories: []string{"ground", "background"}}
	_, err = v.Validate(m, []*levels.Definition{testLevel(1, "")})
	require.ErrorIs(t, err, ErrNoDefaultProfile)
	assert.Contains(t, err.Error(), `"background"`)
}

func TestValidateFailFastStopsAtFirst(t *testing.T) {
	a := testLevel(1, "ground/missing")
	a.Matrix = a.Matrix[:1]
	b := testLevel(1, "")

	report, err := (&Validator{Dims: small}).Validate(testManifest(t), []*levels.Definition{a, b})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.NotErrorIs(t, err, ErrDuplicateLevelNumber)
	assert.Len(t, report.Violations, 1)
}

func TestValidateReportAll(t *testing.T) {
	a := testLevel(1, "ground/missing")
	a.Matrix = a.Matrix[:1]
	b := testLevel(1, "")
	c := testLevel(3, "ground/default")
	c.Presentation.LevelNumber = 9

	v := Validator{Dims: small, ReportAll: true, RequiredCategories: []string{"ground", "lava"}}
	report, err := v.Validate(testManifest(t), []*levels.Definition{a, b, c})
	require.Error(t, err)
	assert.Len(t, report.Violations, 5)
	for _, want := range []error{
		ErrDimensionMismatch,
		ErrDuplicateLevelNumber,
		ErrPresentationLevelMismatch,
		material.ErrUnknownProfile,
		ErrNoDefaultProfile,
	} {
		assert.ErrorIs(t, err, want)
	}
}

func TestValidateRules(t *testing.T) {
	r, err := rules.Compile("spawns", []byte(`
found := false
for row in level.cells { for cell in row { if cell == 1 { found = true } } }
if !found { violations = append(violations, "no paddle") }
`))
	require.NoError(t, err)

	noPaddle := testLevel(2, "")
	noPaddle.Matrix[1][1] = levels.Empty

	v := Validator{Dims: small, ReportAll: true, Rules: rules.Set{r}}
	report, err := v.Validate(testManifest(t), []*levels.Definition{testLevel(1, ""), noPaddle})
	require.ErrorIs(t, err, rules.ErrRuleViolation)
	require.Len(t, report.Violations, 1)
	assert.EqualError(t, report.Violations[0], "level 2: rule spawns: no paddle")
}

func TestValidateDefaultDims(t *testing.T) {
	_, err := (&Validator{}).Validate(testManifest(t), []*levels.Definition{testLevel(1, "")})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "2 rows, want 20")
}
