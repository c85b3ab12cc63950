package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Tone colours a whole row by what it says about a combo, crew or node.
type Tone int

const (
	ToneDefault Tone = iota
	ToneGood         // optimal combo, solved node
	ToneWarn         // breaks the alpha or one-hand rule
	ToneInfo         // awaiting confirmation
	ToneFaded        // valid but not optimal
)

// Table collects rows for a titled lipgloss table.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	tones   []Tone
}

// NewTable creates a table with the given title and headers.
func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers}
}

// AddRow adds a row coloured by tone.
func (t *Table) AddRow(tone Tone, cells ...string) {
	t.Rows = append(t.Rows, cells)
	t.tones = append(t.tones, tone)
}

// View renders the table. An empty table renders as "".
func (t *Table) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}
	tbl := table.New().
		Border(styles.TableBorder).
		BorderStyle(styles.Muted).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			return t.cellStyle(styles, row)
		})

	out := tbl.Render() + "\n\n"
	if t.Title != "" {
		out = styles.Title.Render(t.Title) + "\n" + out
	}
	return out
}

func (t *Table) cellStyle(styles Styles, row int) lipgloss.Style {
	if row == table.HeaderRow {
		return styles.Bold.Padding(0, 1)
	}
	var s lipgloss.Style
	switch t.toneOf(row) {
	case ToneGood:
		s = styles.Success
	case ToneWarn:
		s = styles.Warning
	case ToneInfo:
		s = styles.Info
	case ToneFaded:
		s = styles.Muted
	default:
		s = styles.Body
	}
	return s.Padding(0, 1)
}

func (t *Table) toneOf(row int) Tone {
	if row < 0 || row >= len(t.tones) {
		return ToneDefault
	}
	return t.tones[row]
}
