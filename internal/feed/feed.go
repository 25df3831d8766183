// Package feed renders a bunker snapshot as an Atom document.
//
// Each entry carries the raw state in the bunker: extension namespace so
// feed readers can reconstruct the snapshot without the JSON API.
package feed

import (
	"encoding/xml"
	"io"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/display"
	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

const (
	// AtomNS is the Atom 1.0 namespace.
	AtomNS = "http://www.w3.org/2005/Atom"
	// Namespace of the bunker: extension elements.
	Namespace = "https://github.com/raffaelramalhorosa/bunker-status/ns/1.0"
	// Prefix is the element prefix bound to Namespace.
	Prefix = "bunker"

	// ContentType is the media type served for the feed.
	ContentType = "application/atom+xml; charset=utf-8"
)

type atomFeed struct {
	XMLName      xml.Name    `xml:"feed"`
	Xmlns        string      `xml:"xmlns,attr"`
	XmlnsBunker  string      `xml:"xmlns:bunker,attr"`
	Title        string      `xml:"title"`
	Subtitle     string      `xml:"subtitle,omitempty"`
	ID           string      `xml:"id"`
	Updated      string      `xml:"updated"`
	MessageCount int         `xml:"bunker:messageCount"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string       `xml:"title"`
	ID        string       `xml:"id"`
	Updated   string       `xml:"updated"`
	Category  atomCategory `xml:"category"`
	Summary   string       `xml:"summary"`
	Active    bool         `xml:"bunker:active"`
	Timestamp int64        `xml:"bunker:timestamp"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// Category terms used for entries.
const (
	TermActive   = "active"
	TermInactive = "inactive"
)

type idBunker struct {
	id     string
	bunker models.Bunker
}

// ordered pairs every bunker with an ID derived from its name and its
// position among bunkers of the same name, then sorts for display. The ID
// does not change when timestamps or states reorder the list.
func ordered(bunkers []models.Bunker) []idBunker {
	seen := make(map[string]int, len(bunkers))
	out := make([]idBunker, len(bunkers))
	for i, b := range bunkers {
		n := seen[b.Name]
		seen[b.Name] = n + 1
		out[i] = idBunker{
			id:     "urn:bunker-status:bunker:" + url.PathEscape(b.Name) + ":" + strconv.Itoa(n),
			bunker: b,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return display.Less(out[i].bunker, out[j].bunker) })
	return out
}

// Write encodes status to w. Entries are listed in display order and the
// summaries are rendered against now.
func Write(w io.Writer, status models.BunkerStatus, now time.Time) error {
	updated := time.UnixMilli(status.LastUpdate).UTC().Format(time.RFC3339)

	f := atomFeed{
		Xmlns:        AtomNS,
		XmlnsBunker:  Namespace,
		Title:        "Bunker Status",
		Subtitle:     status.Source,
		ID:           "urn:bunker-status:feed",
		Updated:      updated,
		MessageCount: status.MessageCount,
	}
	for _, e := range ordered(status.Bunkers) {
		b := e.bunker
		term, state := TermInactive, "Bloqueado"
		if b.IsActive {
			term, state = TermActive, "Ativo"
		}
		f.Entries = append(f.Entries, atomEntry{
			Title:     b.Name,
			ID:        e.id,
			Updated:   updated,
			Category:  atomCategory{Term: term},
			Summary:   state + " · " + display.Countdown(b, now),
			Active:    b.IsActive,
			Timestamp: b.Timestamp,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(f)
}
