package capture

import "testing"

func TestRect_DisjunctUnionsBoth(t *testing.T) {
	a := Rect{X: 0, Y: 0, CX: 10, CY: 10}
	b := Rect{X: 20, Y: 20, CX: 5, CY: 5}
	got := a.Disjunct(b)
	want := Rect{X: 0, Y: 0, CX: 25, CY: 25}
	if got != want {
		t.Fatalf("Disjunct = %+v, want %+v", got, want)
	}
}

func TestRect_DisjunctWithEmptyIsIdentity(t *testing.T) {
	a := Rect{X: 1, Y: 2, CX: 3, CY: 4}
	if got := a.Disjunct(Rect{}); got != a {
		t.Fatalf("Disjunct(empty) = %+v, want %+v", got, a)
	}
	if got := (Rect{}).Disjunct(a); got != a {
		t.Fatalf("empty.Disjunct(a) = %+v, want %+v", got, a)
	}
}

func TestRect_IntersectDisjointIsEmpty(t *testing.T) {
	a := Rect{X: 0, Y: 0, CX: 5, CY: 5}
	b := Rect{X: 10, Y: 10, CX: 5, CY: 5}
	if got := a.Intersect(b); !got.IsEmpty() {
		t.Fatalf("Intersect = %+v, want empty", got)
	}
}

func TestRect_Contains(t *testing.T) {
	bounds := Rect{X: 0, Y: 0, CX: 800, CY: 600}
	inside := Rect{X: 200, Y: 150, CX: 401, CY: 301}
	if !bounds.Contains(inside) {
		t.Fatal("expected bounds to contain inside")
	}
	outside := Rect{X: 700, Y: 0, CX: 200, CY: 50}
	if bounds.Contains(outside) {
		t.Fatal("expected bounds to not contain outside")
	}
}
