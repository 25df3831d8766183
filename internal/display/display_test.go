package display_test

import (
	"testing"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/display"
	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "Agora"},
		{-5 * time.Second, "Agora"},
		{59 * time.Second, "Menos de 1 min"},
		{90 * time.Second, "1m 30s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{2*24*time.Hour + 5*time.Hour + 7*time.Minute + 9*time.Second, "2d 5h 7m"},
		{60 * time.Second, "1m 0s"},
	}
	for _, c := range cases {
		if got := display.FormatCountdown(c.in); got != c.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCountdownRelativeToNow(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	future := models.Bunker{Timestamp: now.Add(90 * time.Second).UnixMilli()}
	if got := display.Countdown(future, now); got != "1m 30s" {
		t.Fatalf("expected 1m 30s, got %q", got)
	}

	past := models.Bunker{Timestamp: now.Add(-time.Second).UnixMilli()}
	if got := display.Remaining(past, now); got != 0 {
		t.Fatalf("expected remaining clamped to 0, got %v", got)
	}
	if got := display.Countdown(past, now); got != display.LabelNow {
		t.Fatalf("expected %q, got %q", display.LabelNow, got)
	}

	if got := display.Countdown(models.Bunker{}, now); got != display.LabelUnknown {
		t.Fatalf("expected %q for unknown timestamp, got %q", display.LabelUnknown, got)
	}
}

func TestSort(t *testing.T) {
	in := []models.Bunker{
		{Name: "a", IsActive: false, Timestamp: 10},
		{Name: "b", IsActive: true, Timestamp: 20},
		{Name: "c", IsActive: true, Timestamp: 5},
	}

	got := display.Sort(in)
	want := []string{"c", "b", "a"}
	for i, b := range got {
		if b.Name != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, b.Name, want[i])
		}
	}
	if in[0].Name != "a" {
		t.Fatal("Sort must not modify its input")
	}
}

func TestSortIsStable(t *testing.T) {
	in := []models.Bunker{
		{Name: "first", Timestamp: 7},
		{Name: "second", Timestamp: 7},
		{Name: "third", Timestamp: 7},
	}

	got := display.Sort(in)
	for i, b := range got {
		if b.Name != in[i].Name {
			t.Fatalf("tie order changed: %+v", got)
		}
	}
}
