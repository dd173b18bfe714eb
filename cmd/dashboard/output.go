package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/dashboard"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	headerColor  = color.New(color.FgCyan, color.Bold)
	mutedColor   = color.New(color.Faint)
)

func printSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✓ "+format+"\n", args...)
}

func printError(w io.Writer, format string, args ...any) {
	errorColor.Fprintf(w, "✗ "+format+"\n", args...)
}

func statusColor(status domain.DocumentStatus) *color.Color {
	switch status {
	case domain.StatusProcessed:
		return color.New(color.FgGreen)
	case domain.StatusUnknown:
		return color.New(color.FgYellow)
	case domain.StatusArchived:
		return mutedColor
	default:
		return color.New(color.FgBlue)
	}
}

func renderDocuments(w io.Writer, snap dashboard.Snapshot) {
	names := categoryNames(snap.Categories)
	title := "All categories"
	if snap.SelectedCategory != "" {
		title = names[snap.SelectedCategory]
	}
	headerColor.Fprintf(w, "%s / %s\n", title, snap.Tab)

	if len(snap.Visible) == 0 {
		mutedColor.Fprintln(w, "no documents")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tCATEGORY\tSTATUS\tCREATED")
	for _, doc := range snap.Visible {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			doc.ID, doc.Filename, names[doc.CategoryID],
			statusColor(doc.Status).Sprint(doc.Status), doc.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
	if snap.HasMore {
		mutedColor.Fprintf(w, "more documents available, use --pages %d\n", snap.Pages[snap.Tab]+1)
	}
}

func renderDocument(w io.Writer, doc *domain.Document) {
	headerColor.Fprintln(w, doc.Filename)
	fmt.Fprintf(w, "  id:       %s\n", doc.ID)
	fmt.Fprintf(w, "  status:   %s\n", statusColor(doc.Status).Sprint(doc.Status))
	if doc.CategoryID != "" {
		fmt.Fprintf(w, "  category: %s\n", doc.CategoryID)
	}
	for _, kv := range doc.KeyValues {
		fmt.Fprintf(w, "  %s: %s\n", kv.Key, kv.Value)
	}
}

func renderCategories(w io.Writer, categories []domain.Category) {
	if len(categories) == 0 {
		mutedColor.Fprintln(w, "no categories")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDOCUMENTS\tDESCRIPTION")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Name, c.DocumentCount, c.Description)
	}
	_ = tw.Flush()
}

func renderStats(w io.Writer, update dashboard.StatsUpdate) {
	health := successColor.Sprint(update.Status)
	if update.Status != dashboard.HealthOK {
		health = errorColor.Sprint(update.Status)
	}
	fmt.Fprintf(w, "[%s] health %s\n", update.At.Format("15:04:05"), health)
	if update.Stats == nil {
		return
	}
	s := update.Stats
	fmt.Fprintf(w, "  documents %d  processed %d  pending %d  unknown %d  archived %d\n",
		s.TotalDocuments, s.ProcessedCount, s.PendingCount, s.UnknownCount, s.ArchivedCount)
	fmt.Fprintf(w, "  accuracy %.2f%%  avg processing %.2fs\n", s.ProcessingAccuracy, s.AvgProcessingSeconds)
	for _, p := range s.Pools {
		fmt.Fprintf(w, "  %-20s %3d docs  %6.2f%%  %s\n", p.Name, p.DocumentCount, p.Accuracy, p.Status)
	}
}

func categoryNames(categories []domain.Category) map[string]string {
	out := make(map[string]string, len(categories))
	for _, c := range categories {
		out[c.ID] = c.Name
	}
	return out
}

// resolveCategory accepts a category id or a case-insensitive name.
func resolveCategory(categories []domain.Category, ref string) (string, bool) {
	for _, c := range categories {
		if c.ID == ref || strings.EqualFold(c.Name, ref) {
			return c.ID, true
		}
	}
	return "", false
}
