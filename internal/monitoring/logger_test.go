package monitoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/kahfeatures/kahfeatures/internal/timeutil"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("loaded %s", "singlechannel")
	if len(got) != 1 || got[0] != "loaded singlechannel" {
		t.Fatalf("custom logger got %q", got)
	}

	// nil mutes
	SetLogger(nil)
	Logf("dropped")
	if len(got) != 1 {
		t.Errorf("muted logger still forwarded: %q", got)
	}
}

func TestTimed(t *testing.T) {
	original, originalClock := Logf, Clock
	defer func() { Logf, Clock = original, originalClock }()

	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	Clock = clock

	var line string
	SetLogger(func(format string, v ...interface{}) {
		line = fmt.Sprintf(format, v...)
	})

	done := Timed("theta classification")
	if line != "" {
		t.Fatalf("Timed logged before completion: %q", line)
	}
	clock.Advance(2500 * time.Microsecond)
	done()
	if line != "theta classification took 2.5ms" {
		t.Errorf("unexpected timing line %q", line)
	}
}
