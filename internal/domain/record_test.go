package domain

import (
	"testing"
)

func i64(v int64) *int64 { return &v }

func TestDuration_Finished(t *testing.T) {
	t.Parallel()

	r := &Record{Start: i64(1577880000), End: i64(1577883600)}
	d := r.Duration(1600000000)
	if d == nil || *d != 3600 {
		t.Fatalf("duration = %v, want 3600", d)
	}
}

func TestDuration_Unfinished_GrowsWithNow(t *testing.T) {
	t.Parallel()

	r := &Record{Start: i64(1000)}
	d1 := r.Duration(2000)
	d2 := r.Duration(3000)
	if d1 == nil || d2 == nil {
		t.Fatalf("unfinished past record must have duration")
	}
	if *d1 != 1000 || *d2 != 2000 {
		t.Fatalf("durations = %d, %d; want 1000, 2000", *d1, *d2)
	}
	if *d2 <= *d1 {
		t.Fatalf("duration must grow as now advances")
	}
}

func TestDuration_FutureRecord_Undefined(t *testing.T) {
	t.Parallel()

	r := &Record{Start: i64(5000)}
	if d := r.Duration(2000); d != nil {
		t.Fatalf("future record duration = %v, want nil", *d)
	}
}

func TestDuration_NoStart_Undefined(t *testing.T) {
	t.Parallel()

	r := &Record{End: i64(5000)}
	if d := r.Duration(9000); d != nil {
		t.Fatalf("no-start duration = %v, want nil", *d)
	}
}

func TestDuration_FutureButEndedLater(t *testing.T) {
	t.Parallel()

	// start 在 now 之后、但 end 更晚：按 end 截止仍有定义
	r := &Record{Start: i64(5000), End: i64(6000)}
	d := r.Duration(2000)
	if d == nil || *d != 1000 {
		t.Fatalf("duration = %v, want 1000", d)
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"", ""},
		{"   ", ""},
		{"Demo Test", "demo test"},
		{"foo,bar;baz", "foobarbaz"},
		{"  A  \t B\nC ", "a b c"},
		{"work-item #42", "workitem 42"},
	}
	for _, c := range cases {
		if got := NormalizeTags(c.in); got != c.want {
			t.Errorf("NormalizeTags(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeTags_Idempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"Demo, Test!", "a  b   c", "MIXED case-42"} {
		once := NormalizeTags(in)
		twice := NormalizeTags(once)
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestRecordPatch_Apply_PartialOnly(t *testing.T) {
	t.Parallel()

	r := &Record{Name: "old", Start: i64(100), End: i64(200), Tags: "x y"}
	name := "  new name "
	RecordPatch{Name: &name}.Apply(r)

	if r.Name != "new name" {
		t.Fatalf("name = %q", r.Name)
	}
	if *r.Start != 100 || *r.End != 200 || r.Tags != "x y" {
		t.Fatalf("untouched fields changed: %+v", r)
	}
}
