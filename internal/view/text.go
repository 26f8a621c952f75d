package view

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// TextOptions controls WriteText.
type TextOptions struct {
	// Bars draws an availability bar next to each book.
	Bars     bool
	BarWidth int
}

// WriteText renders page as aligned plain-text tables.
func WriteText(w io.Writer, page Page, opts TextOptions) error {
	if opts.BarWidth <= 0 {
		opts.BarWidth = 20
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if page.Banner != nil {
		fmt.Fprintf(tw, "warning: %s\n\n", page.Banner.Message)
	}
	if page.Loading {
		fmt.Fprintln(tw, page.LoadingText)
		return tw.Flush()
	}

	switch {
	case page.Dashboard != nil:
		for _, card := range page.Dashboard.Cards {
			fmt.Fprintf(tw, "%s\t%d\n", card.Label, card.Value)
		}
	case page.Books != nil:
		header := "TITLE\tAUTHOR\tYEAR\tAVAILABLE"
		if opts.Bars {
			header += "\t"
		}
		fmt.Fprintln(tw, header)
		for _, row := range page.Books.Rows {
			line := strings.Join([]string{row.Title, row.Author, strconv.Itoa(row.Year), row.Availability}, "\t")
			if opts.Bars {
				line += "\t" + Bar(row.Percent, opts.BarWidth)
			}
			fmt.Fprintln(tw, line)
		}
		if page.Books.EmptyText != "" {
			fmt.Fprintln(tw, page.Books.EmptyText)
		}
	case page.Members != nil:
		fmt.Fprintln(tw, "NAME\tEMAIL\tJOINED")
		for _, row := range page.Members.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Name, row.Email, row.Joined)
		}
		if page.Members.EmptyText != "" {
			fmt.Fprintln(tw, page.Members.EmptyText)
		}
	}
	return tw.Flush()
}

// Bar draws percent (0..100) as a fixed-width ASCII bar.
func Bar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
