package resolve

import (
	"errors"
	"reflect"
	"testing"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/platform"
)

func TestMergeExecProperties_GroupAndDefaultMaps(t *testing.T) {
	platformProps := map[string]string{
		"watermelon.ripeness": "unripe",
		"watermelon.color":    "red",
	}
	targetProps := map[string]string{
		"color":             "orange",
		"watermelon.color":  "pink",
		"watermelon.season": "summer",
	}

	watermelon := MergeExecProperties("watermelon", platformProps, targetProps)
	wantWatermelon := map[string]string{
		"color":    "pink",
		"season":   "summer",
		"ripeness": "unripe",
	}
	if !reflect.DeepEqual(watermelon, wantWatermelon) {
		t.Errorf("Expected watermelon properties %v, got %v", wantWatermelon, watermelon)
	}

	def := MergeExecProperties(execgroup.DefaultGroupName, platformProps, targetProps)
	wantDefault := map[string]string{"color": "orange"}
	if !reflect.DeepEqual(def, wantDefault) {
		t.Errorf("Expected default properties %v, got %v", wantDefault, def)
	}
}

func TestMergeExecProperties_PrefixedOverridesUnprefixedWithinLayer(t *testing.T) {
	props := map[string]string{
		"color":            "orange",
		"watermelon.color": "pink",
	}
	merged := MergeExecProperties("watermelon", nil, props)
	if merged["color"] != "pink" {
		t.Errorf("Expected group-prefixed entry to win, got %q", merged["color"])
	}
}

func TestMergeExecProperties_TargetOverridesPlatform(t *testing.T) {
	platformProps := map[string]string{"color": "red", "season": "winter"}
	targetProps := map[string]string{"color": "orange"}

	merged := MergeExecProperties(execgroup.DefaultGroupName, platformProps, targetProps)
	if merged["color"] != "orange" {
		t.Errorf("Expected target entry to override platform entry, got %q", merged["color"])
	}
	if merged["season"] != "winter" {
		t.Errorf("Expected platform entry without override to survive, got %q", merged["season"])
	}
}

func TestMergeExecProperties_UnprefixedAppliesToEveryGroup(t *testing.T) {
	targetProps := map[string]string{"ripeness": "ripe"}

	for _, group := range []string{execgroup.DefaultGroupName, "watermelon"} {
		merged := MergeExecProperties(group, nil, targetProps)
		if merged["ripeness"] != "ripe" {
			t.Errorf("Expected unprefixed entry in group %s, got %v", group, merged)
		}
	}
}

func TestMergeExecProperties_OtherGroupsPrefixSkipped(t *testing.T) {
	targetProps := map[string]string{
		"watermelon.color": "pink",
		"melon.color":      "green",
	}
	merged := MergeExecProperties("watermelon", nil, targetProps)
	want := map[string]string{"color": "pink"}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("Expected only this group's namespace, got %v", merged)
	}
}

func TestSplitPropertyKey_EdgeCases(t *testing.T) {
	cases := []struct {
		key        string
		wantPrefix string
		wantOK     bool
	}{
		{"watermelon.color", "watermelon", true},
		{"watermelon.color.hue", "watermelon", true},
		{"color", "", false},
		{".color", "", false},
		{"watermelon.", "", false},
	}
	for _, tc := range cases {
		prefix, _, ok := splitPropertyKey(tc.key)
		if ok != tc.wantOK || prefix != tc.wantPrefix {
			t.Errorf("splitPropertyKey(%q) = (%q, %t), want (%q, %t)",
				tc.key, prefix, ok, tc.wantPrefix, tc.wantOK)
		}
	}
}

func TestValidateExecProperties_UnknownPrefix(t *testing.T) {
	index := mustBuildIndex(t, execgroup.RuleSpec{
		Groups: map[string]execgroup.Decl{"watermelon": {}},
	})

	props := map[string]string{
		"watermelno.color":  "pink",
		"watermelno.season": "summer",
		"color":             "orange",
	}
	errs := ValidateExecProperties("//demo:my_target", props, index)
	if len(errs) != 1 {
		t.Fatalf("Expected one error per unknown prefix, got %v", errs)
	}
	if !IsKind(errs[0], KindMalformedPropertyNamespace) {
		t.Fatalf("Expected MalformedPropertyNamespace, got %v", errs[0])
	}

	var resErr *Error
	if !errors.As(errs[0], &resErr) {
		t.Fatal("Expected *Error")
	}
	if resErr.Unknown != "watermelno" {
		t.Errorf("Expected unknown prefix watermelno, got %q", resErr.Unknown)
	}
	if resErr.Suggestion != "watermelon" {
		t.Errorf("Expected suggestion watermelon, got %q", resErr.Suggestion)
	}
}

func TestValidateExecProperties_KnownPrefixesPass(t *testing.T) {
	index := mustBuildIndex(t, execgroup.RuleSpec{
		Groups: map[string]execgroup.Decl{"watermelon": {}},
	})

	props := map[string]string{
		"watermelon.color": "pink",
		"default.color":    "orange",
		"color":            "orange",
	}
	if errs := ValidateExecProperties("//demo:my_target", props, index); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
}

func TestValidateGroupCompatibleWith_NoSuggestionWhenFarAway(t *testing.T) {
	index := mustBuildIndex(t, execgroup.RuleSpec{
		Groups: map[string]execgroup.Decl{"my_group": {}},
	})

	compat := map[string][]platform.Label{
		"completely_unrelated": {"//platform:constraint_1"},
	}
	errs := ValidateGroupCompatibleWith("//demo:my_target", compat, index)
	if len(errs) != 1 {
		t.Fatalf("Expected one error, got %v", errs)
	}

	var resErr *Error
	if !errors.As(errs[0], &resErr) {
		t.Fatal("Expected *Error")
	}
	if resErr.Suggestion != "" {
		t.Errorf("Expected no suggestion for a distant name, got %q", resErr.Suggestion)
	}
}
