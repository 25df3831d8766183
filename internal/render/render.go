// Package render prints poller views to a terminal or as JSON lines.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/raffaelramalhorosa/bunker-status/internal/display"
	"github.com/raffaelramalhorosa/bunker-status/internal/poller"
)

const clearScreen = "\033[H\033[2J"

// DefaultFormat is "table" when stdout is a terminal and "json" otherwise.
func DefaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "table"
	}
	return "json"
}

// Renderer writes views in one format. Safe for concurrent use.
type Renderer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	clear  bool

	lastUpdate int64
	lastErr    string
}

// New returns a Renderer for format "table" or "json". An empty format
// picks DefaultFormat.
func New(w io.Writer, format string) (*Renderer, error) {
	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		format = DefaultFormat()
	}
	if format != "table" && format != "json" {
		return nil, errors.New("invalid format, want table or json")
	}

	r := &Renderer{w: w, format: format}
	if f, ok := w.(*os.File); ok && format == "table" {
		r.clear = isatty.IsTerminal(f.Fd())
	}
	return r, nil
}

// Render writes v. In json mode a line is written only when the snapshot
// or the error changed, so countdown ticks do not flood the output.
func (r *Renderer) Render(v poller.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.format == "json" {
		return r.renderJSON(v)
	}
	return r.renderTable(v)
}

type jsonRow struct {
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`
	Timestamp int64  `json:"timestamp"`
	Countdown string `json:"countdown"`
}

type jsonView struct {
	LastUpdate   int64     `json:"lastUpdate"`
	Source       string    `json:"source,omitempty"`
	MessageCount int       `json:"messageCount,omitempty"`
	Error        string    `json:"error,omitempty"`
	Bunkers      []jsonRow `json:"bunkers"`
}

func (r *Renderer) renderJSON(v poller.View) error {
	errText := ""
	if v.Err != nil {
		errText = v.Err.Error()
	}
	if v.Loading || (v.Status.LastUpdate == r.lastUpdate && errText == r.lastErr) {
		return nil
	}
	r.lastUpdate, r.lastErr = v.Status.LastUpdate, errText

	out := jsonView{
		LastUpdate:   v.Status.LastUpdate,
		Source:       v.Status.Source,
		MessageCount: v.Status.MessageCount,
		Error:        errText,
		Bunkers:      make([]jsonRow, len(v.Rows)),
	}
	for i, row := range v.Rows {
		out.Bunkers[i] = jsonRow{
			Name:      row.Bunker.Name,
			IsActive:  row.Bunker.IsActive,
			Timestamp: row.Bunker.Timestamp,
			Countdown: row.Countdown,
		}
	}
	return json.NewEncoder(r.w).Encode(out)
}

func (r *Renderer) renderTable(v poller.View) error {
	var b strings.Builder
	if r.clear {
		b.WriteString(clearScreen)
	}

	if v.Status.LastUpdate > 0 {
		fmt.Fprintf(&b, "Última atualização: %s", time.UnixMilli(v.Status.LastUpdate).Format("15:04:05"))
	} else {
		b.WriteString("Última atualização: -")
	}
	if v.Status.Source != "" {
		fmt.Fprintf(&b, "  Fonte: %s", v.Status.Source)
	}
	if v.Status.MessageCount > 0 {
		fmt.Fprintf(&b, "  Mensagens: %d", v.Status.MessageCount)
	}
	b.WriteString("\n")

	switch {
	case v.Loading:
		b.WriteString("Atualizando...\n")
	case !v.NextRefresh.IsZero():
		fmt.Fprintf(&b, "Próxima atualização: %s\n", v.NextRefresh.Format("15:04"))
	}
	if v.Err != nil {
		fmt.Fprintf(&b, "Erro ao carregar dados: %v\n", v.Err)
	}
	b.WriteString("\n")

	if len(v.Rows) == 0 {
		b.WriteString("Nenhum bunker encontrado\n")
		_, err := io.WriteString(r.w, b.String())
		return err
	}

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tBUNKER\tTEMPO")
	for _, row := range v.Rows {
		state := "Bloqueado"
		if row.Bunker.IsActive {
			state = "Ativo"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", state, row.Bunker.Name, row.Countdown)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// Summary is a one-line description of v, used in logs.
func Summary(v poller.View) string {
	active := 0
	for _, row := range v.Rows {
		if row.Bunker.IsActive {
			active++
		}
	}
	next := display.LabelUnknown
	if len(v.Rows) > 0 {
		next = v.Rows[0].Bunker.Name + " " + v.Rows[0].Countdown
	}
	return fmt.Sprintf("%d bunkers, %d active, next: %s", len(v.Rows), active, next)
}
