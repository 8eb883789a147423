package validator

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hartzell-stephen-me/hdf5schema/dtype"
	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
	"github.com/hartzell-stephen-me/hdf5schema/tree/memtree"
)

func mustLoad(t *testing.T, raw string) *schema.Document {
	t.Helper()
	doc, err := schema.Load([]byte(raw))
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return doc
}

func mustSimple(t *testing.T, code string) dtype.Descriptor {
	t.Helper()
	s, err := dtype.ParseSimple(code)
	if err != nil {
		t.Fatalf("dtype.ParseSimple(%q): %v", code, err)
	}
	return dtype.Descriptor{Simple: s}
}

func kinds(errs []ErrorRecord) []ErrorKind {
	out := make([]ErrorKind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

// S1 - Simple dataset type match.
func TestScenarioS1SimpleMatch(t *testing.T) {
	doc := mustLoad(t, `{
		"type": "group",
		"members": {"data": {"type": "dataset", "dtype": "<f8", "shape": [100, 50]}},
		"required": ["data"]
	}`)
	root := memtree.NewGroup()
	root.AddDataset("data", mustSimple(t, "<f8"), tree.Shape{100, 50})

	errs, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected 0 errors, got %v", errs)
	}
}

// S2 - Shape mismatch.
func TestScenarioS2ShapeMismatch(t *testing.T) {
	doc := mustLoad(t, `{
		"type": "group",
		"members": {"data": {"type": "dataset", "dtype": "<f8", "shape": [100, 3]}},
		"required": ["data"]
	}`)
	root := memtree.NewGroup()
	root.AddDataset("data", mustSimple(t, "<f8"), tree.Shape{100, 50})

	errs, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Kind != ShapeMismatch || errs[0].Path != "/data" {
		t.Fatalf("expected single ShapeMismatch at /data, got %v", errs)
	}
}

// S3 - Pattern members: literal sensor groups match the pattern, a
// dtype mismatch under sensor_1 is reported, other is unconstrained.
func TestScenarioS3PatternMembers(t *testing.T) {
	doc := mustLoad(t, `{
		"type": "group",
		"patternMembers": {
			"^sensor_[0-9]+$": {
				"type": "group",
				"members": {"readings": {"type": "dataset", "dtype": "<f4", "shape": [-1]}},
				"required": ["readings"]
			}
		}
	}`)

	root := memtree.NewGroup()
	s1 := root.AddGroup("sensor_1")
	s1.AddDataset("readings", mustSimple(t, "<f8"), tree.Shape{10})
	s2 := root.AddGroup("sensor_2")
	s2.AddDataset("readings", mustSimple(t, "<f4"), tree.Shape{10})
	other := root.AddGroup("other")
	other.AddDataset("readings", mustSimple(t, "<i4"), tree.Shape{10})

	errs, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 error, got %v", errs)
	}
	if errs[0].Kind != DtypeMismatch || errs[0].Path != "/sensor_1/readings" {
		t.Fatalf("expected DtypeMismatch at /sensor_1/readings, got %+v", errs[0])
	}
}

// S4 - Recursive $ref, three levels deep, terminating cleanly.
func TestScenarioS4RecursiveRef(t *testing.T) {
	doc := mustLoad(t, `{
		"$defs": {
			"observables": {
				"type": "group",
				"patternMembers": {"^observables$": {"$ref": "#/$defs/observables"}}
			}
		},
		"$ref": "#/$defs/observables"
	}`)

	root := memtree.NewGroup()
	lvl1 := root.AddGroup("observables")
	lvl2 := lvl1.AddGroup("observables")
	lvl2.AddGroup("observables")

	errs, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected 0 errors, got %v", errs)
	}
}

// S5 - oneOf mutual exclusion: both branches present triggers
// OneOfMultipleMatched with both indices.
func TestScenarioS5OneOfMutualExclusion(t *testing.T) {
	doc := mustLoad(t, `{
		"type": "group",
		"oneOf": [
			{"type": "group", "required": ["raw_data"]},
			{"type": "group", "required": ["processed_data"]}
		]
	}`)

	root := memtree.NewGroup()
	root.AddDataset("raw_data", mustSimple(t, "<f8"), tree.Shape{1})
	root.AddDataset("processed_data", mustSimple(t, "<f8"), tree.Shape{1})

	errs, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Kind != OneOfMultipleMatched {
		t.Fatalf("expected 1 OneOfMultipleMatched, got %v", errs)
	}
	idx, _ := errs[0].Context["matchedIndexes"].([]int)
	if !reflect.DeepEqual(idx, []int{0, 1}) {
		t.Fatalf("expected matchedIndexes [0 1], got %v", idx)
	}
}

// S6 - if/then/else: the then-branch's missing required attribute is
// reported when the if-condition (sensor_type == "temperature") holds.
func TestScenarioS6IfThenElse(t *testing.T) {
	doc := mustLoad(t, `{
		"type": "dataset",
		"if": {"type": "dataset", "attrs": [{"name": "sensor_type", "const": "temperature"}]},
		"then": {"type": "dataset", "attrs": [{"name": "units", "required": true}]}
	}`)

	root := memtree.NewGroup()
	ds := root.AddDataset("sensor", mustSimple(t, "<f8"), tree.Shape{1})
	ds.AddAttr(tree.AttrValue{Name: "sensor_type", Dtype: mustSimple(t, "S16"), Scalar: true, Values: []tree.Value{"temperature"}})

	errs, err := Validate(ds, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Kind != MissingAttribute {
		t.Fatalf("expected 1 MissingAttribute, got %v", errs)
	}
}

// Property 1: determinism.
func TestPropertyDeterminism(t *testing.T) {
	doc := mustLoad(t, `{
		"type": "group",
		"patternMembers": {"^s[0-9]+$": {"type": "dataset", "dtype": "<f8"}},
		"required": ["s1", "s2"]
	}`)
	root := memtree.NewGroup()
	root.AddDataset("s1", mustSimple(t, "<i4"), tree.Shape{1})
	root.AddDataset("s2", mustSimple(t, "<i4"), tree.Shape{1})

	first, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	second, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two validate calls diverged:\n%v\n%v", first, second)
	}
}

// Property 2: schema-absence neutrality.
func TestPropertySchemaAbsenceNeutrality(t *testing.T) {
	doc := mustLoad(t, `{"type": "group", "members": {"x": {"type": "dataset"}}}`)
	root := memtree.NewGroup()
	root.AddDataset("x", mustSimple(t, "<f8"), tree.Shape{3, 4}).WithValues(1.0, 2.0, 3.0)

	errs, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected 0 errors for an unconstrained dataset schema, got %v", errs)
	}
}

// Property 3: literal-over-pattern.
func TestPropertyLiteralOverPattern(t *testing.T) {
	doc := mustLoad(t, `{
		"type": "group",
		"members": {"sensor_1": {"type": "dataset", "dtype": "<f8"}},
		"patternMembers": {"^sensor_[0-9]+$": {"type": "dataset", "dtype": "<i4"}}
	}`)
	root := memtree.NewGroup()
	root.AddDataset("sensor_1", mustSimple(t, "<f8"), tree.Shape{1})

	errs, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("literal members entry should have suppressed the also-matching pattern, got %v", errs)
	}
}

// Property 4: cycle safety.
func TestPropertyCycleSafety(t *testing.T) {
	doc := mustLoad(t, `{
		"$defs": {"node": {"type": "group", "members": {"next": {"$ref": "#/$defs/node"}}}},
		"$ref": "#/$defs/node"
	}`)
	root := memtree.NewGroup()
	a := root.AddGroup("next")
	b := a.AddGroup("next")
	b.AddGroup("next")

	done := make(chan struct{})
	var errs []ErrorRecord
	var err error
	go func() {
		errs, err = Validate(root, doc)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Validate did not terminate on a recursive $ref schema")
	}
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected 0 errors, got %v", errs)
	}
}

// Property 4b: cycle safety against a schema-side cycle that never
// descends to a new tree path (allOf referencing its own $defs entry),
// the case the visit-set guard exists for rather than finite tree depth.
func TestPropertyCycleSafetySamePath(t *testing.T) {
	doc := mustLoad(t, `{
		"$defs": {"loop": {"type": "group", "allOf": [{"$ref": "#/$defs/loop"}]}},
		"$ref": "#/$defs/loop"
	}`)
	root := memtree.NewGroup()

	done := make(chan struct{})
	var errs []ErrorRecord
	var err error
	go func() {
		errs, err = Validate(root, doc)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Validate did not terminate on an allOf self-reference at a fixed path")
	}
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected 0 errors, got %v", errs)
	}
}

// Property 5: not duality.
func TestPropertyNotDuality(t *testing.T) {
	inner := `{"type": "dataset", "dtype": "<f8"}`
	notDoc := mustLoad(t, `{"type": "dataset", "not": `+inner+`}`)
	plainDoc := mustLoad(t, inner)

	matching := memtree.NewGroup().AddDataset("d", mustSimple(t, "<f8"), tree.Shape{1})
	mismatching := memtree.NewGroup().AddDataset("d", mustSimple(t, "<i4"), tree.Shape{1})

	for _, tc := range []struct {
		name string
		ds   *memtree.Dataset
	}{{"matching", matching}, {"mismatching", mismatching}} {
		plainErrs, err := Validate(tc.ds, plainDoc)
		if err != nil {
			t.Fatalf("Validate(plain): %v", err)
		}
		notErrs, err := Validate(tc.ds, notDoc)
		if err != nil {
			t.Fatalf("Validate(not): %v", err)
		}
		plainFails := len(plainErrs) > 0
		notSucceeds := len(notErrs) == 0
		if plainFails != notSucceeds {
			t.Fatalf("%s: not-duality violated: plainErrs=%v notErrs=%v", tc.name, plainErrs, notErrs)
		}
	}
}

// Property 6: allOf associativity.
func TestPropertyAllOfAssociativity(t *testing.T) {
	s1 := `{"type": "dataset", "dtype": "<f8"}`
	s2 := `{"type": "dataset", "minLength": 2}`
	s3 := `{"type": "dataset", "maxLength": 1}`

	flat := mustLoad(t, `{"type": "dataset", "allOf": [`+s1+`, `+s2+`, `+s3+`]}`)
	nested := mustLoad(t, `{"type": "dataset", "allOf": [`+s1+`, {"type": "dataset", "allOf": [`+s2+`, `+s3+`]}]}`)

	ds := memtree.NewGroup().AddDataset("d", mustSimple(t, "<f8"), tree.Shape{1}).WithValues("ab")

	flatErrs, err := Validate(ds, flat)
	if err != nil {
		t.Fatalf("Validate(flat): %v", err)
	}
	nestedErrs, err := Validate(ds, nested)
	if err != nil {
		t.Fatalf("Validate(nested): %v", err)
	}
	if !sameKindSet(flatErrs, nestedErrs) {
		t.Fatalf("allOf associativity violated: flat=%v nested=%v", kinds(flatErrs), kinds(nestedErrs))
	}
}

func sameKindSet(a, b []ErrorRecord) bool {
	ak, bk := kinds(a), kinds(b)
	if len(ak) != len(bk) {
		return false
	}
	count := map[ErrorKind]int{}
	for _, k := range ak {
		count[k]++
	}
	for _, k := range bk {
		count[k]--
	}
	for _, c := range count {
		if c != 0 {
			return false
		}
	}
	return true
}

// Property 8: shape wildcard.
func TestPropertyShapeWildcard(t *testing.T) {
	doc := mustLoad(t, `{"type": "dataset", "shape": [-1, -1, -1]}`)
	ds := memtree.NewGroup().AddDataset("d", mustSimple(t, "<f8"), tree.Shape{7, 1, 42})

	errs, err := Validate(ds, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected wildcard shape to match any rank-3 dataset, got %v", errs)
	}
}

func TestMissingRequiredMember(t *testing.T) {
	doc := mustLoad(t, `{"type": "group", "required": ["data"]}`)
	root := memtree.NewGroup()

	errs, err := Validate(root, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Kind != MissingMember {
		t.Fatalf("expected 1 MissingMember, got %v", errs)
	}
}

func TestDependentRequired(t *testing.T) {
	doc := mustLoad(t, `{
		"type": "dataset",
		"dependentRequired": {"units": ["scale"]},
		"attrs": [{"name": "units"}, {"name": "scale"}]
	}`)
	ds := memtree.NewGroup().AddDataset("d", mustSimple(t, "<f8"), tree.Shape{1})
	ds.AddAttr(tree.AttrValue{Name: "units", Scalar: true, Values: []tree.Value{"m"}})

	errs, err := Validate(ds, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Kind != DependentRequiredFailed {
		t.Fatalf("expected 1 DependentRequiredFailed, got %v", errs)
	}
}

func TestIoErrorOnReadValues(t *testing.T) {
	doc := mustLoad(t, `{"type": "dataset", "minLength": 1}`)
	base := memtree.NewGroup().AddDataset("d", mustSimple(t, "S8"), tree.Shape{1})
	failing := &memtree.FailingDataset{Dataset: base, Err: errors.New("disk gone")}

	errs, err := Validate(failing, doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 || errs[0].Kind != KindIoError {
		t.Fatalf("expected 1 IoError, got %v", errs)
	}
}
