// Package parser turns Discord channel messages into bunker records.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

const (
	// StatusMarker identifies an embed as a machine-parseable status report.
	StatusMarker = "BUNKER STATUS"

	activeValue    = "Active"
	nextActivation = "Next Activation:"

	// fields per bunker: sector, status, time
	groupSize = 3
)

var relativeTimestamp = regexp.MustCompile(`<t:(\d+):R>`)

// ExtractTimestamp returns the instant encoded by the first <t:SECONDS:R>
// token in text, in epoch milliseconds, or 0 when there is none.
func ExtractTimestamp(text string) int64 {
	m := relativeTimestamp.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	secs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || secs > (1<<63-1)/1000 {
		return 0
	}
	return secs * 1000
}

// Result is the output of ParseMessages.
type Result struct {
	Bunkers []models.Bunker
	// MatchedMessages counts messages carrying at least one status embed.
	MatchedMessages int
}

// ParseMessages extracts bunkers from every status embed in msgs, in
// encounter order. Embeds without the marker, empty field lists and a
// trailing incomplete group are ignored.
func ParseMessages(msgs []models.Message) Result {
	res := Result{Bunkers: []models.Bunker{}}

	for _, msg := range msgs {
		matched := false
		for _, embed := range msg.Embeds {
			if !isStatusEmbed(embed) {
				continue
			}
			matched = true
			res.Bunkers = append(res.Bunkers, parseEmbed(embed)...)
		}
		if matched {
			res.MatchedMessages++
		}
	}
	return res
}

func isStatusEmbed(e models.Embed) bool {
	return strings.Contains(e.Title, StatusMarker)
}

func parseEmbed(e models.Embed) []models.Bunker {
	var out []models.Bunker
	for i := 0; i+groupSize <= len(e.Fields); i += groupSize {
		out = append(out, parseGroup(e.Fields[i], e.Fields[i+1], e.Fields[i+2]))
	}
	return out
}

func parseGroup(sector, status, when models.Field) models.Bunker {
	b := models.Bunker{
		Name:     strings.TrimSpace(sector.Value),
		IsActive: strings.TrimSpace(status.Value) == activeValue,
	}
	if b.IsActive || strings.Contains(when.Value, nextActivation) {
		b.Timestamp = ExtractTimestamp(when.Value)
	}
	return b
}
