package resolver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pdfengine/core"
)

// mockReader serves objects from a map and counts lookups.
type mockReader struct {
	objects map[core.IndirectRef]core.Object
	calls   int
}

func newMockReader() *mockReader {
	return &mockReader{objects: make(map[core.IndirectRef]core.Object)}
}

func (m *mockReader) add(num int, obj core.Object) {
	m.objects[core.IndirectRef{Number: num}] = obj
}

func (m *mockReader) GetObject(objNum int) (core.Object, error) {
	return m.ResolveReference(core.IndirectRef{Number: objNum})
}

func (m *mockReader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	m.calls++
	obj, ok := m.objects[ref]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", ref, core.ErrNotFound)
	}
	return obj, nil
}

func ref(n int) core.IndirectRef { return core.IndirectRef{Number: n} }

func TestResolvePrimitives(t *testing.T) {
	r := NewResolver(newMockReader())

	tests := []struct {
		name string
		obj  core.Object
	}{
		{"Bool", core.Bool(true)},
		{"Int", core.Int(123)},
		{"Real", core.Real(3.14)},
		{"String", core.String("hello")},
		{"Name", core.Name("Test")},
		{"Null", core.Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.obj)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got != tt.obj {
				t.Errorf("Resolve() = %v, want %v", got, tt.obj)
			}
		})
	}
}

func TestResolveChain(t *testing.T) {
	m := newMockReader()
	m.add(1, ref(2))
	m.add(2, ref(3))
	m.add(3, core.Int(42))

	got, err := NewResolver(m).Resolve(ref(1))
	if err != nil {
		t.Fatal(err)
	}
	if got != core.Int(42) {
		t.Errorf("Resolve() = %v, want 42", got)
	}
}

func TestResolveShallowLeavesNestedRefs(t *testing.T) {
	m := newMockReader()
	m.add(10, core.String("Value"))
	dict := core.Dict{"Direct": core.Int(1), "Ref": ref(10)}

	got, err := NewResolver(m).Resolve(dict)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(core.Dict)["Ref"].(core.IndirectRef); !ok {
		t.Error("shallow resolution should leave nested references alone")
	}
}

func TestResolveDeep(t *testing.T) {
	m := newMockReader()
	m.add(10, core.String("Value"))
	m.add(11, core.Array{core.Int(1), ref(10)})
	m.add(12, &core.Stream{Dict: core.Dict{"Length": ref(13)}, Data: []byte("abc")})
	m.add(13, core.Int(3))

	input := core.Dict{
		"Direct": core.Int(123),
		"Ref":    ref(10),
		"Arr":    ref(11),
		"Nested": core.Dict{"Inner": ref(10)},
		"Stream": ref(12),
	}

	got, err := NewResolver(m).ResolveDict(input)
	if err != nil {
		t.Fatal(err)
	}
	want := core.Dict{
		"Direct": core.Int(123),
		"Ref":    core.String("Value"),
		"Arr":    core.Array{core.Int(1), core.String("Value")},
		"Nested": core.Dict{"Inner": core.String("Value")},
		"Stream": &core.Stream{Dict: core.Dict{"Length": core.Int(3)}, Data: []byte("abc")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveDict() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := input["Ref"].(core.IndirectRef); !ok {
		t.Error("input dictionary was modified")
	}
}

func TestResolveDeepSharedObject(t *testing.T) {
	m := newMockReader()
	m.add(5, core.Dict{"Type": core.Name("Font")})

	// the same object reached twice through siblings is not a cycle
	got, err := NewResolver(m).ResolveArray(core.Array{ref(5), ref(5)})
	if err != nil {
		t.Fatalf("ResolveArray() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestResolveCycles(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *mockReader)
		deep  bool
	}{
		{
			name: "self reference",
			setup: func(m *mockReader) {
				m.add(1, ref(1))
			},
		},
		{
			name: "reference loop",
			setup: func(m *mockReader) {
				m.add(1, ref(2))
				m.add(2, ref(1))
			},
		},
		{
			name: "dictionary back pointer",
			setup: func(m *mockReader) {
				m.add(1, core.Dict{"Kids": core.Array{ref(2)}})
				m.add(2, core.Dict{"Parent": ref(1)})
			},
			deep: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockReader()
			tt.setup(m)
			r := NewResolver(m)

			var err error
			if tt.deep {
				_, err = r.ResolveDeep(ref(1))
			} else {
				_, err = r.Resolve(ref(1))
			}
			if !errors.Is(err, core.ErrCircularReference) {
				t.Errorf("err = %v, want ErrCircularReference", err)
			}
		})
	}
}

func TestResolveMaxDepth(t *testing.T) {
	m := newMockReader()
	for i := 1; i < 20; i++ {
		m.add(i, core.Array{ref(i + 1)})
	}
	m.add(20, core.Int(0))

	if _, err := NewResolver(m, WithMaxDepth(10)).ResolveDeep(ref(1)); !errors.Is(err, core.ErrMaxDepth) {
		t.Errorf("err = %v, want ErrMaxDepth", err)
	}
	if _, err := NewResolver(m).ResolveDeep(ref(1)); err != nil {
		t.Errorf("default depth: %v", err)
	}
}

func TestResolveErrors(t *testing.T) {
	m := newMockReader()
	m.add(1, core.Dict{"Missing": ref(99)})

	r := NewResolver(m)
	_, err := r.ResolveDeep(ref(1))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// a failed resolution leaves the resolver usable
	m.add(99, core.Int(7))
	got, err := r.ResolveDeep(ref(1))
	if err != nil {
		t.Fatalf("after error: %v", err)
	}
	if diff := cmp.Diff(core.Dict{"Missing": core.Int(7)}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestObjectHelpers(t *testing.T) {
	m := newMockReader()
	m.add(1, ref(2))
	m.add(2, core.Dict{"A": ref(3)})
	m.add(3, core.Int(9))
	r := NewResolver(m)

	obj, err := r.GetObject(1)
	if err != nil || obj != ref(2) {
		t.Errorf("GetObject(1) = %v, %v", obj, err)
	}

	shallow, err := r.GetObjectResolved(1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := shallow.(core.Dict)["A"].(core.IndirectRef); !ok {
		t.Errorf("GetObjectResolved(1) = %v", shallow)
	}

	deep, err := r.GetObjectResolvedDeep(1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(core.Dict{"A": core.Int(9)}, deep); diff != "" {
		t.Errorf("GetObjectResolvedDeep(1) mismatch (-want +got):\n%s", diff)
	}

	one, err := r.ResolveReference(ref(1))
	if err != nil || one != ref(2) {
		t.Errorf("ResolveReference(1) = %v, %v", one, err)
	}

	full, err := r.ResolveReferenceDeep(ref(2))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(core.Dict{"A": core.Int(9)}, full); diff != "" {
		t.Errorf("ResolveReferenceDeep mismatch (-want +got):\n%s", diff)
	}
}
