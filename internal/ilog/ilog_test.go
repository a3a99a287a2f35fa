package ilog

import "testing"

type recordingLogger struct {
	levels []Level
}

func (r *recordingLogger) Log(level Level, msg string) {
	r.levels = append(r.levels, level)
}

func TestFilterDropsBelowMinimum(t *testing.T) {
	rec := &recordingLogger{}
	f := NewFilter(rec, FilterLevel(LevelWarn))
	h := NewHelper(f)

	h.Debugf("debug")
	h.Infof("info")
	h.Warnf("warn")
	h.Errorf("error")

	if len(rec.levels) != 2 {
		t.Fatalf("got %d records, want 2 (warn, error): %v", len(rec.levels), rec.levels)
	}
	if rec.levels[0] != LevelWarn || rec.levels[1] != LevelError {
		t.Fatalf("unexpected levels: %v", rec.levels)
	}
}
