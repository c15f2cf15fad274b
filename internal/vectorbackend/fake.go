package vectorbackend

import "context"

// Fake is an in-memory Backend for tests that need deterministic vector
// results without a child process, per SPEC_FULL.md's test-tooling plan.
type Fake struct {
	QueryResults map[string]QueryResult // keyed by collection name
	QueryErr     error
	Collections  map[string][]Point
}

// NewFake builds an empty Fake.
func NewFake() *Fake {
	return &Fake{QueryResults: map[string]QueryResult{}, Collections: map[string][]Point{}}
}

func (f *Fake) EnsureCollection(ctx context.Context, name string) error {
	if _, ok := f.Collections[name]; !ok {
		f.Collections[name] = nil
	}
	return nil
}

func (f *Fake) Upsert(ctx context.Context, name string, points []Point) error {
	f.Collections[name] = append(f.Collections[name], points...)
	return nil
}

func (f *Fake) Query(ctx context.Context, name, text string, k int, where Filter) (QueryResult, error) {
	if f.QueryErr != nil {
		return QueryResult{}, f.QueryErr
	}
	return f.QueryResults[name], nil
}

func (f *Fake) Stats(ctx context.Context, name string) (Stats, error) {
	return Stats{Count: len(f.Collections[name])}, nil
}

func (f *Fake) DeleteCollection(ctx context.Context, name string) error {
	delete(f.Collections, name)
	return nil
}
