package batch

import (
	"testing"

	"github.com/hartzell-stephen-me/hdf5schema/dtype"
	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
	"github.com/hartzell-stephen-me/hdf5schema/tree/memtree"
)

func TestRunCollectsResultsInOrder(t *testing.T) {
	doc, err := schema.Load([]byte(`{"type": "group", "required": ["data"]}`))
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	f8, err := dtype.ParseSimple("<f8")
	if err != nil {
		t.Fatalf("ParseSimple: %v", err)
	}

	var jobs []Job
	for i := 0; i < 5; i++ {
		root := memtree.NewGroup()
		if i%2 == 0 {
			root.AddDataset("data", dtype.Descriptor{Simple: f8}, tree.Shape{1})
		}
		jobs = append(jobs, Job{Name: string(rune('a' + i)), Tree: root, Doc: doc})
	}

	results := Run(jobs, 3)
	if len(results) != len(jobs) {
		t.Fatalf("expected %d results, got %d", len(jobs), len(results))
	}
	for i, r := range results {
		if r.Name != jobs[i].Name {
			t.Fatalf("result %d out of order: got name %q, want %q", i, r.Name, jobs[i].Name)
		}
		wantErr := i%2 != 0
		if wantErr && len(r.Errs) == 0 {
			t.Fatalf("job %d: expected a MissingMember error, got none", i)
		}
		if !wantErr && len(r.Errs) != 0 {
			t.Fatalf("job %d: expected no errors, got %v", i, r.Errs)
		}
	}
}
