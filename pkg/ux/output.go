// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the govcodes CLI.
package ux

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text, borders

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes styled output at one personality level.
//
// # Thread Safety
//
// Not safe for concurrent use; one Printer per command invocation.
type Printer struct {
	w     io.Writer
	level PersonalityLevel
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, level PersonalityLevel) *Printer {
	return &Printer{w: w, level: level}
}

// Level returns the printer's level.
func (p *Printer) Level() PersonalityLevel { return p.level }

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.w }

func (p *Printer) style(s lipgloss.Style, text string) string {
	if p.level != PersonalityFull {
		return text
	}
	return s.Render(text)
}

func (p *Printer) icon(i Icon) string {
	if p.level != PersonalityFull {
		return string(i)
	}
	return i.Render()
}

// Title prints a styled title. Machine output omits it.
func (p *Printer) Title(text string) {
	if p.level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.w, p.style(Styles.Title, text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconSuccess), p.style(Styles.Success, text))
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconWarning), p.style(Styles.Warning, text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconError), p.style(Styles.Error, text))
}

// Muted prints secondary text. Machine output omits it.
func (p *Printer) Muted(text string) {
	if p.level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.w, p.style(Styles.Muted, text))
}

// Code prints one resolved code. Machine output is
// "code<TAB>family<TAB>name".
func (p *Printer) Code(code, family, name string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.w, "%s\t%s\t%s\n", code, family, name)
		return
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.style(Styles.Highlight, code),
		p.style(Styles.Bold, name),
		p.style(Styles.Muted, "("+family+")"))
}

// Missing prints a code that did not resolve, with an optional reason.
func (p *Printer) Missing(code, reason string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.w, "%s\t-\tnot found\n", code)
		return
	}
	line := fmt.Sprintf("%s %s not found", p.icon(IconError), code)
	if reason != "" {
		line += " " + p.style(Styles.Muted, "("+reason+")")
	}
	fmt.Fprintln(p.w, line)
}

// Detail prints an indented label/value line under a code.
func (p *Printer) Detail(label, value string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.w, "\t%s\t%s\n", label, value)
		return
	}
	fmt.Fprintf(p.w, "  %s %s %s\n", p.icon(IconArrow), p.style(Styles.Muted, label+":"), value)
}

// Table prints rows aligned in columns. The header is omitted from
// machine output.
func (p *Printer) Table(header []string, rows [][]string) {
	if p.level == PersonalityMachine {
		for _, r := range rows {
			fmt.Fprintln(p.w, strings.Join(r, "\t"))
		}
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

// Box prints text in a rounded box
func (p *Printer) Box(title, content string) {
	if p.level != PersonalityFull {
		fmt.Fprintf(p.w, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Width(60).Render(Styles.Title.Render(title)+"\n"+content))
}

// Summary prints a found/missing count line.
func (p *Printer) Summary(found, missing int) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.w, "SUMMARY: found=%d missing=%d\n", found, missing)
		return
	}
	fmt.Fprintf(p.w, "\n%s %s  %s %s\n",
		p.style(Styles.Success, fmt.Sprintf("%d", found)), p.style(Styles.Muted, "found"),
		p.style(Styles.Error, fmt.Sprintf("%d", missing)), p.style(Styles.Muted, "missing"),
	)
}
