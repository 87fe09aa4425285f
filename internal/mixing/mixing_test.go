package mixing

import (
	"errors"
	"strings"
	"testing"

	"sermonmux/internal/segments"
)

func mustSet(t *testing.T, text string) segments.Set {
	t.Helper()
	set, rejected := segments.ParseDetailed(text)
	if len(rejected) > 0 {
		t.Fatalf("unexpected rejections for %q: %v", text, rejected)
	}
	return set
}

func TestGainsFollowSegmentMembership(t *testing.T) {
	levels := DefaultLevels()
	for _, text := range []string{"30-90", "60-300,450-600", "10-20,15-40,100-101.5"} {
		set := mustSet(t, text)
		gains := BuildGains(set, levels)
		for ts := -1.0; ts <= 700; ts += 0.25 {
			inside := set.Contains(ts)
			orig := gains.Original.Eval(ts)
			trans := gains.Translation.Eval(ts)
			if (orig == DefaultDucked) != inside {
				t.Fatalf("%s: original gain %v at t=%v, inside=%v", text, orig, ts, inside)
			}
			if (trans == DefaultPrimary) != inside {
				t.Fatalf("%s: translation gain %v at t=%v, inside=%v", text, trans, ts, inside)
			}
			if !inside && (orig != DefaultPrimary || trans != DefaultShouts) {
				t.Fatalf("%s: outside levels wrong at t=%v: %v/%v", text, ts, orig, trans)
			}
		}
	}
}

func TestGainsWithEmptySet(t *testing.T) {
	gains := BuildGains(segments.Set{}, DefaultLevels())
	for _, ts := range []float64{0, 1, 59.5, 3600} {
		if got := gains.Original.Eval(ts); got != DefaultPrimary {
			t.Fatalf("original at %v = %v", ts, got)
		}
		if got := gains.Translation.Eval(ts); got != DefaultShouts {
			t.Fatalf("translation at %v = %v", ts, got)
		}
	}
	if got := gains.Original.String(); got != "if(0,0.15,1.0)" {
		t.Fatalf("unexpected empty original expression %q", got)
	}
	if got := gains.Translation.String(); got != "if(0,1.0,0.5)" {
		t.Fatalf("unexpected empty translation expression %q", got)
	}
}

func TestScenarioBOriginalGain(t *testing.T) {
	gains := BuildGains(mustSet(t, "30-90"), DefaultLevels())
	if got := gains.For(RoleOriginal).Eval(60); got != DefaultDucked {
		t.Fatalf("expected ducked at t=60, got %v", got)
	}
	if got := gains.For(RoleOriginal).Eval(10); got != DefaultPrimary {
		t.Fatalf("expected primary at t=10, got %v", got)
	}
}

func TestComposeProducesEngineSyntax(t *testing.T) {
	graph := Compose(BuildGains(mustSet(t, "60-300,450-600"), DefaultLevels()), 0)
	want := strings.Join([]string{
		"[1:a]volume='if(between(t,60.0,300.0)+between(t,450.0,600.0),0.15,1.0)':eval=frame[a_orig_vol]",
		"[2:a]volume='if(between(t,60.0,300.0)+between(t,450.0,600.0),1.0,0.5)':eval=frame[a_trans_vol]",
		"[a_orig_vol][a_trans_vol]amix=inputs=2:duration=longest:dropout_transition=0.5[a_mixed]",
	}, ";")
	if graph.Expression != want {
		t.Fatalf("unexpected graph:\n got %s\nwant %s", graph.Expression, want)
	}
	if graph.OutputMap() != "[a_mixed]" {
		t.Fatalf("unexpected output map %q", graph.OutputMap())
	}
	if len(graph.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(graph.Bindings))
	}
	if graph.Bindings[0].Input != 1 || graph.Bindings[0].Role != RoleOriginal {
		t.Fatalf("unexpected first binding %+v", graph.Bindings[0])
	}
	if graph.Bindings[1].Input != 2 || graph.Bindings[1].Role != RoleTranslation {
		t.Fatalf("unexpected second binding %+v", graph.Bindings[1])
	}
}

func TestComposeDurationPolicyIsLongest(t *testing.T) {
	graph := Compose(BuildGains(segments.Set{}, DefaultLevels()), DefaultDropoutTransition)
	if graph.Duration != DurationLongest {
		t.Fatalf("expected longest duration policy, got %q", graph.Duration)
	}
	if got := graph.DeclaredDuration(100, 40); got != 100 {
		t.Fatalf("expected declared duration 100, got %v", got)
	}
	if !strings.Contains(graph.Expression, "duration=longest") {
		t.Fatalf("graph does not request longest duration: %s", graph.Expression)
	}
}

func TestDeclaredDurationFollowsPolicy(t *testing.T) {
	cases := []struct {
		policy DurationPolicy
		want   float64
	}{
		{DurationLongest, 100},
		{DurationShortest, 40},
		{DurationFirst, 70},
		{"", 100},
	}
	for _, tc := range cases {
		graph := Graph{Duration: tc.policy}
		if got := graph.DeclaredDuration(70, 100, 40); got != tc.want {
			t.Fatalf("%q: declared duration = %v, want %v", tc.policy, got, tc.want)
		}
	}
	if got := (Graph{Duration: DurationShortest}).DeclaredDuration(); got != 0 {
		t.Fatalf("no inputs: declared duration = %v", got)
	}
}

func TestComposeCustomDropout(t *testing.T) {
	graph := Compose(BuildGains(segments.Set{}, DefaultLevels()), 1.25)
	if !strings.Contains(graph.Expression, "dropout_transition=1.25[") {
		t.Fatalf("dropout not applied: %s", graph.Expression)
	}
}

func TestLevelsValidate(t *testing.T) {
	if err := DefaultLevels().Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	if err := (Levels{Primary: 4, Ducked: 0, Shouts: 2}).Validate(); err != nil {
		t.Fatalf("boundary levels rejected: %v", err)
	}
	for _, bad := range []Levels{
		{Primary: 4.01, Ducked: 0.1, Shouts: 0.5},
		{Primary: 1, Ducked: -0.1, Shouts: 0.5},
		{Primary: 1, Ducked: 0.1, Shouts: 10},
	} {
		if err := bad.Validate(); !errors.Is(err, ErrLevelOutOfRange) {
			t.Fatalf("expected ErrLevelOutOfRange for %+v, got %v", bad, err)
		}
	}
}

func TestCustomLevelsAppearInExpression(t *testing.T) {
	gains := BuildGains(mustSet(t, "5-10"), Levels{Primary: 2, Ducked: 0.25, Shouts: 0})
	if got := gains.Original.String(); got != "if(between(t,5.0,10.0),0.25,2.0)" {
		t.Fatalf("unexpected original expression %q", got)
	}
	if got := gains.Translation.String(); got != "if(between(t,5.0,10.0),2.0,0.0)" {
		t.Fatalf("unexpected translation expression %q", got)
	}
}
