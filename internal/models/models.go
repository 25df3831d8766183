package models

// Bunker is a single sector parsed from a status report.
// Timestamp is epoch milliseconds; 0 means unknown.
type Bunker struct {
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`
	Timestamp int64  `json:"timestamp"`
}

// BunkerStatus is the result of one fetch+parse cycle.
type BunkerStatus struct {
	Bunkers      []Bunker `json:"bunkers"`
	LastUpdate   int64    `json:"lastUpdate"`
	Source       string   `json:"source,omitempty"`
	MessageCount int      `json:"messageCount,omitempty"`
}

// Message is the subset of a Discord channel message the parser reads.
type Message struct {
	ID     string  `json:"id"`
	Embeds []Embed `json:"embeds,omitempty"`
}

// Embed is a titled panel attached to a message.
type Embed struct {
	Title  string  `json:"title,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// Field is one name/value row of an embed. Only Value is trusted.
type Field struct {
	Name   string `json:"name,omitempty"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// ErrorResponse is the body written for every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
