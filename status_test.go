package memacs

import "testing"

func TestStatusOK(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want bool
	}{
		{"success", Ok, true},
		{"not found", NotFoundStatus("x"), false},
		{"failure", Fail("bad"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusQuiet(t *testing.T) {
	if !Ok.Quiet() {
		t.Error("Success should be quiet")
	}
	if !NotFoundStatus("x").Quiet() {
		t.Error("NotFound should be quiet")
	}
	if Fail("x").Quiet() {
		t.Error("Failure should not be quiet")
	}
}

func TestStatusError(t *testing.T) {
	st := ScriptFail(12, "bad expr %q", "foo")
	want := `script error (line 12): bad expr "foo"`
	if got := st.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFirst(t *testing.T) {
	if got := First(Ok, Ok, Ok); got != Ok {
		t.Errorf("First of all-Ok = %v, want Ok", got)
	}
	bad := Fail("boom")
	if got := First(Ok, bad, Fail("second")); got != bad {
		t.Errorf("First should return the first non-success status")
	}
}
