package render

import "testing"

func TestLogViewportSetLinesReportsChange(t *testing.T) {
	vp := NewLogViewport(10, 2)
	if !vp.SetLines(nil) {
		t.Fatalf("first SetLines should count as a change")
	}
	if vp.SetLines(nil) {
		t.Fatalf("identical content should not count as a change")
	}
	if !vp.SetLines([]string{"a"}) {
		t.Fatalf("new content should count as a change")
	}
	if vp.SetLines([]string{"a"}) {
		t.Fatalf("same lines again should not count as a change")
	}
}

func TestLogViewportGotoBottomAfterAppend(t *testing.T) {
	vp := NewLogViewport(8, 2)
	vp.SetLines([]string{"a", "b", "c"})
	vp.GotoTop()
	if vp.AtBottom() {
		t.Fatalf("viewport should not be at bottom after GotoTop")
	}

	if vp.SetLines([]string{"a", "b", "c", "d"}) {
		vp.GotoBottom()
	}
	if !vp.AtBottom() {
		t.Fatalf("viewport should be anchored at bottom")
	}
	if vp.YOffset != 2 {
		t.Fatalf("unexpected YOffset: %d", vp.YOffset)
	}
}

func TestLogViewportResize(t *testing.T) {
	vp := NewLogViewport(8, 2)
	vp.SetLines([]string{"a", "b", "c"})

	if vp.Resize(8, 2) {
		t.Fatalf("same size should not report a change")
	}
	if !vp.Resize(12, 3) {
		t.Fatalf("new size should report a change")
	}
	if vp.Width != 12 || vp.Height != 3 {
		t.Fatalf("size not applied: %dx%d", vp.Width, vp.Height)
	}
	if got := vp.Lines(); len(got) != 3 {
		t.Fatalf("resize should keep content, got %v", got)
	}
}

func TestLogViewportScrollPages(t *testing.T) {
	vp := NewLogViewport(8, 2)
	vp.SetLines([]string{"a", "b", "c", "d", "e"})
	vp.GotoTop()

	vp.ScrollPageDown()
	if vp.YOffset != 2 {
		t.Fatalf("page down YOffset=%d want 2", vp.YOffset)
	}
	vp.ScrollPageUp()
	if vp.YOffset != 0 {
		t.Fatalf("page up YOffset=%d want 0", vp.YOffset)
	}
}
