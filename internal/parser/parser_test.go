package parser_test

import (
	"testing"

	"github.com/raffaelramalhorosa/bunker-status/internal/models"
	"github.com/raffaelramalhorosa/bunker-status/internal/parser"
)

func fields(values ...string) []models.Field {
	out := make([]models.Field, len(values))
	for i, v := range values {
		out[i] = models.Field{Value: v}
	}
	return out
}

func statusMessage(id string, values ...string) models.Message {
	return models.Message{
		ID: id,
		Embeds: []models.Embed{{
			Title:  ":bar_chart: BUNKER STATUS",
			Fields: fields(values...),
		}},
	}
}

func TestExtractTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"<t:1700000000:R>", 1700000000000},
		{"Closes <t:1700000000:R> (approx)", 1700000000000},
		{"Next Activation: <t:1700000000:R>", 1700000000000},
		{"", 0},
		{"no token here", 0},
		{"<t:1700000000:F>", 0},
		{"<t:abc:R>", 0},
		{"<t::R>", 0},
		{"<t:99999999999999999999999:R>", 0},
	}
	for _, c := range cases {
		if got := parser.ExtractTimestamp(c.in); got != c.want {
			t.Errorf("ExtractTimestamp(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseTwoGroups(t *testing.T) {
	msgs := []models.Message{statusMessage("1",
		"A1 Bunker", "Active", "<t:1700000000:R>",
		"B2 Bunker", "Inactive", "Next Activation: <t:1700003600:R>",
	)}

	res := parser.ParseMessages(msgs)
	if len(res.Bunkers) != 2 {
		t.Fatalf("expected 2 bunkers, got %d", len(res.Bunkers))
	}
	if res.MatchedMessages != 1 {
		t.Fatalf("expected 1 matched message, got %d", res.MatchedMessages)
	}

	want := []models.Bunker{
		{Name: "A1 Bunker", IsActive: true, Timestamp: 1700000000000},
		{Name: "B2 Bunker", IsActive: false, Timestamp: 1700003600000},
	}
	for i, b := range res.Bunkers {
		if b != want[i] {
			t.Fatalf("bunker %d: got %+v, want %+v", i, b, want[i])
		}
	}
}

func TestParseDropsTrailingPartialGroup(t *testing.T) {
	msgs := []models.Message{statusMessage("1",
		"A1", "Active", "<t:1:R>",
		"A2", "Active", "<t:2:R>",
		"A3",
	)}

	res := parser.ParseMessages(msgs)
	if len(res.Bunkers) != 2 {
		t.Fatalf("expected 2 bunkers, got %d", len(res.Bunkers))
	}
}

func TestParseStatusIsCaseSensitive(t *testing.T) {
	msgs := []models.Message{statusMessage("1",
		"A1", "active", "<t:1700000000:R>",
		"A2", " Active ", "<t:1700000000:R>",
		"A3", "Active!", "<t:1700000000:R>",
	)}

	res := parser.ParseMessages(msgs)
	if res.Bunkers[0].IsActive {
		t.Fatal("lowercase 'active' must be inactive")
	}
	if res.Bunkers[0].Timestamp != 0 {
		t.Fatalf("inactive bunker without next activation should have no timestamp, got %d", res.Bunkers[0].Timestamp)
	}
	if !res.Bunkers[1].IsActive {
		t.Fatal("surrounding whitespace should be trimmed")
	}
	if res.Bunkers[2].IsActive {
		t.Fatal("near-match 'Active!' must be inactive")
	}
}

func TestParseTrimsName(t *testing.T) {
	res := parser.ParseMessages([]models.Message{statusMessage("1", "  C3 Bunker \n", "Inactive", "")})
	if res.Bunkers[0].Name != "C3 Bunker" {
		t.Fatalf("expected trimmed name, got %q", res.Bunkers[0].Name)
	}
}

func TestParseIgnoresUnmarkedEmbeds(t *testing.T) {
	msgs := []models.Message{
		{ID: "1"},
		{ID: "2", Embeds: []models.Embed{{Title: "Server restart", Fields: fields("a", "Active", "<t:1:R>")}}},
		{ID: "3", Embeds: []models.Embed{{Title: "BUNKER STATUS"}}},
		{ID: "4", Embeds: []models.Embed{{Title: "bunker status", Fields: fields("a", "Active", "<t:1:R>")}}},
	}

	res := parser.ParseMessages(msgs)
	if len(res.Bunkers) != 0 {
		t.Fatalf("expected no bunkers, got %d", len(res.Bunkers))
	}
	if res.MatchedMessages != 1 {
		t.Fatalf("expected only the empty status embed to match, got %d", res.MatchedMessages)
	}
}

func TestParseKeepsDuplicatesAcrossMessages(t *testing.T) {
	msgs := []models.Message{
		statusMessage("1", "A1", "Active", "<t:10:R>"),
		statusMessage("2", "A1", "Inactive", "Next Activation: <t:20:R>"),
	}

	res := parser.ParseMessages(msgs)
	if len(res.Bunkers) != 2 {
		t.Fatalf("expected duplicates kept, got %d bunkers", len(res.Bunkers))
	}
	if res.Bunkers[0].Timestamp != 10000 || res.Bunkers[1].Timestamp != 20000 {
		t.Fatalf("unexpected order: %+v", res.Bunkers)
	}
	if res.MatchedMessages != 2 {
		t.Fatalf("expected 2 matched messages, got %d", res.MatchedMessages)
	}
}

func TestParseEmptyBatch(t *testing.T) {
	res := parser.ParseMessages(nil)
	if res.Bunkers == nil {
		t.Fatal("expected empty, non-nil bunker list")
	}
}
