package metadata

import (
	"errors"
	"path/filepath"
	"testing"
)

type level uint8

func TestScalarsRoundTripThroughYAML(t *testing.T) {
	root := New("")
	Set(root, "name", "crate")
	Set(root, "radius", float32(0.25))
	Set(root, "count", 3)
	Set(root, "visible", true)
	Set(root, "level", level(4))
	list := root.SetChild("points")
	Set(list.Append(), "x", 1.5)
	Set(list.Append(), "x", -2.0)

	raw, err := MarshalYAML(root)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalYAML(raw)
	if err != nil {
		t.Fatalf("UnmarshalYAML(%s): %v", raw, err)
	}

	var (
		name    string
		radius  float32
		count   int
		visible bool
		lvl     level
	)
	for _, err := range []error{
		Get(back, "name", &name),
		Get(back, "radius", &radius),
		Get(back, "count", &count),
		Get(back, "visible", &visible),
		Get(back, "level", &lvl),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	if name != "crate" || radius != 0.25 || count != 3 || !visible || lvl != 4 {
		t.Fatalf("decoded %q %v %d %v %d", name, radius, count, visible, lvl)
	}

	points := back.Child("points")
	if points == nil || len(points.Children) != 2 {
		t.Fatalf("points = %+v", points)
	}
	var x float64
	if err := Get(points.Children[1], "x", &x); err != nil || x != -2 {
		t.Fatalf("points[1].x = %v, %v", x, err)
	}
}

func TestGetMissingLeavesValue(t *testing.T) {
	root := New("")
	v := float32(7)
	if err := Get(root, "absent", &v); err != nil || v != 7 {
		t.Fatalf("Get absent = %v, %v", v, err)
	}
	if err := Require(root, "absent", &v); !errors.Is(err, ErrMissingChild) {
		t.Fatalf("Require absent err = %v", err)
	}
}

func TestGetRejectsMalformedValue(t *testing.T) {
	root := New("")
	Set(root, "radius", "wide")
	var r float32
	if err := Get(root, "radius", &r); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSetChildReplacesExisting(t *testing.T) {
	root := New("")
	Set(root, "a", 1)
	Set(root, "a", 2)
	if len(root.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(root.Children))
	}
	if !root.RemoveChild("a") || root.Child("a") != nil {
		t.Fatal("RemoveChild failed")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	root := New("")
	Set(root, "title", "demo")
	if err := SaveFile(path, root); err != nil {
		t.Fatal(err)
	}
	back, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var title string
	if err := Require(back, "title", &title); err != nil || title != "demo" {
		t.Fatalf("title = %q, %v", title, err)
	}
}
