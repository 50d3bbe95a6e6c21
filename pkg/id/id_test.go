package id

import (
	"strings"
	"testing"
	"time"
)

func TestParseDumpID(t *testing.T) {
	t.Run("successful parse", func(t *testing.T) {
		s, err := NewDumpID()
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(s, "dump-") {
			t.Errorf("id '%s' lacks prefix", s)
		}
		if _, err := ParseDumpID(s); err != nil {
			t.Errorf("unable to parse generated id: %v", err)
		}
	})

	t.Run("error when prefix is missing", func(t *testing.T) {
		d, _ := NewDumpIDAt(time.Now())
		raw := strings.TrimPrefix(d.String(), "dump-")
		if _, err := ParseDumpID(raw); err == nil {
			t.Errorf("was able to parse '%s' as a dump id", raw)
		}
	})

	t.Run("error when trying to parse non-id", func(t *testing.T) {
		bad := "dump-foobar"
		if _, err := ParseDumpID(bad); err == nil {
			t.Errorf("was able to parse '%s' as a dump id", bad)
		}
	})
}

func TestDumpIDTime(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	d, err := NewDumpIDAt(start)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseDumpID(d.String())
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Time().Equal(start) {
		t.Errorf("expected %s, got %s", start, parsed.Time())
	}
}

func TestThatProbablyNoCollisionsHappen(t *testing.T) {
	now := time.Now()
	length := 10000
	m := make(map[string]struct{}, length)
	prev := ""
	for i := 0; i < length; i++ {
		d, _ := NewDumpIDAt(now)
		s := d.String()
		if s <= prev {
			t.Fatalf("ids not increasing: '%s' after '%s'", s, prev)
		}
		prev = s
		m[s] = struct{}{}
	}

	if len(m) != length {
		t.Error("ids collided!!")
	}
}
