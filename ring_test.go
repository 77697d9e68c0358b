package memacs

import "testing"

func TestRingPushAndGet(t *testing.T) {
	r := NewRing(RingKill, 3)
	r.Push([]byte("a"), true)
	r.Push([]byte("b"), true)
	r.Push([]byte("c"), true)
	if r.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", r.Size())
	}
	if !r.checkInvariant() {
		t.Fatal("ring invariant violated after three pushes")
	}
	got, st := r.Get(0)
	if !st.OK() || string(got) != "c" {
		t.Errorf("Get(0) = %q, %v, want c", got, st)
	}
	got, st = r.Get(-2)
	if !st.OK() || string(got) != "a" {
		t.Errorf("Get(-2) = %q, %v, want a", got, st)
	}
}

func TestRingPushOverwritesOldestWhenFull(t *testing.T) {
	r := NewRing(RingKill, 2)
	r.Push([]byte("a"), true)
	r.Push([]byte("b"), true)
	r.Push([]byte("c"), true)
	if r.Size() != 2 {
		t.Fatalf("Size() = %d, want 2 (bounded)", r.Size())
	}
	if !r.checkInvariant() {
		t.Fatal("ring invariant violated after overflow push")
	}
	got, _ := r.Get(-1)
	if string(got) != "b" {
		t.Errorf("oldest surviving entry = %q, want b", got)
	}
}

func TestRingPushDedupWithoutForce(t *testing.T) {
	r := NewRing(RingKill, 5)
	r.Push([]byte("a"), false)
	r.Push([]byte("b"), false)
	r.Push([]byte("a"), false)
	if r.Size() != 2 {
		t.Errorf("Size() = %d, want 2 (dup moved to top, not duplicated)", r.Size())
	}
	got, _ := r.Get(0)
	if string(got) != "a" {
		t.Errorf("Get(0) = %q, want a", got)
	}
}

func TestRingGetOutOfRange(t *testing.T) {
	r := NewRing(RingKill, 3)
	r.Push([]byte("a"), true)
	if _, st := r.Get(1); st.OK() {
		t.Error("Get with positive index should fail")
	}
	if _, st := r.Get(-1); st.OK() {
		t.Error("Get beyond size should fail")
	}
}

func TestRingAppendAndPrepend(t *testing.T) {
	r := NewRing(RingKill, 3)
	r.Push([]byte("bc"), true)
	r.Append([]byte("d"))
	got, _ := r.Get(0)
	if string(got) != "bcd" {
		t.Errorf("after Append = %q, want bcd", got)
	}
	r.Prepend([]byte("a"))
	got, _ = r.Get(0)
	if string(got) != "abcd" {
		t.Errorf("after Prepend = %q, want abcd", got)
	}
}

func TestRingCycle(t *testing.T) {
	r := NewRing(RingKill, 3)
	r.Push([]byte("a"), true)
	r.Push([]byte("b"), true)
	r.Push([]byte("c"), true)
	r.Cycle(-1)
	got, _ := r.Get(0)
	if string(got) != "b" {
		t.Errorf("after Cycle(-1) = %q, want b", got)
	}
	r.Cycle(1)
	got, _ = r.Get(0)
	if string(got) != "c" {
		t.Errorf("after Cycle(1) = %q, want c", got)
	}
}

func TestRingDelete(t *testing.T) {
	r := NewRing(RingKill, 3)
	r.Push([]byte("a"), true)
	r.Push([]byte("b"), true)
	r.Delete(1)
	if r.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", r.Size())
	}
	got, _ := r.Get(0)
	if string(got) != "a" {
		t.Errorf("surviving entry = %q, want a", got)
	}
	r.Delete(0)
	if r.Size() != 0 {
		t.Errorf("Delete(0) should clear the ring, size = %d", r.Size())
	}
}

func TestRingSetSizeRefusesShrinkBelowCurrent(t *testing.T) {
	r := NewRing(RingKill, 5)
	r.Push([]byte("a"), true)
	r.Push([]byte("b"), true)
	if st := r.SetSize(1); st.OK() {
		t.Error("SetSize below current size should fail")
	}
	if st := r.SetSize(10); !st.OK() {
		t.Errorf("SetSize above current size should succeed: %v", st)
	}
}

func TestRingKillPrepStartsNewEntryOnFamilyBreak(t *testing.T) {
	r := NewRing(RingKill, 5)
	r.KillPrep(0) // no prior kill command: starts a fresh top entry
	r.Append([]byte("a"))
	r.KillPrep(CmdYank) // family break: fresh entry again
	r.Append([]byte("b"))
	got, _ := r.Get(0)
	if string(got) != "b" {
		t.Errorf("Get(0) = %q, want b (fresh entry after family break)", got)
	}
	got, _ = r.Get(-1)
	if string(got) != "a" {
		t.Errorf("Get(-1) = %q, want a", got)
	}
}

func TestRingKillPrepContinuesFamily(t *testing.T) {
	r := NewRing(RingKill, 5)
	r.KillPrep(0)
	r.Append([]byte("a"))
	r.KillPrep(CmdKill) // same family: no new entry
	r.Append([]byte("b"))
	if r.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (appended to same entry)", r.Size())
	}
	got, _ := r.Get(0)
	if string(got) != "ab" {
		t.Errorf("Get(0) = %q, want ab", got)
	}
}

func TestYankInsertsEntryAtPoint(t *testing.T) {
	b := newTestBuffer(t, "")
	r := NewRing(RingKill, 3)
	r.Push([]byte("hello"), true)
	b.Point = Point{Line: b.header, Offset: 0}
	n, st := Yank(b, nil, r, 0)
	if !st.OK() {
		t.Fatalf("Yank: %v", st)
	}
	if n != 5 {
		t.Errorf("Yank returned size %d, want 5", n)
	}
	if got := string(b.arena.Bytes(b.Point.Line)); got != "hello" {
		t.Errorf("buffer content = %q, want hello", got)
	}
}
