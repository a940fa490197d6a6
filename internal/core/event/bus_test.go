package event

import "testing"

func TestBusDeliversNextFrameInOrder(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(e SceneLoaded) { got = append(got, "scene:"+e.Name) })
	Subscribe(b, func(e SurfaceResized) { got = append(got, "resize") })

	Emit(b, SurfaceResized{Width: 1, Height: 1})
	Emit(b, SceneLoaded{Name: "a"})
	Emit(b, SceneLoaded{Name: "b"})

	if n := b.DispatchAll(); n != 0 || len(got) != 0 {
		t.Fatalf("events delivered before swap: %v", got)
	}
	if b.Pending() != 3 {
		t.Fatalf("Pending = %d, want 3", b.Pending())
	}

	b.SwapBuffers()
	if n := b.DispatchAll(); n != 3 {
		t.Fatalf("DispatchAll = %d, want 3", n)
	}
	want := []string{"resize", "scene:a", "scene:b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	b.SwapBuffers()
	got = nil
	if n := b.DispatchAll(); n != 0 {
		t.Fatalf("stale events redelivered: %v", got)
	}
}
