package core

import "testing"

func TestPointAdd(t *testing.T) {
	if got := Pt(3, 4).Add(Pt(1, -2)); got != (Point{X: 4, Y: 2}) {
		t.Errorf("Add() = %v, want {4 2}", got)
	}
}
