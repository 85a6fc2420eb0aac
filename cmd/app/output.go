package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/AREA-equipe/app/internal/domain"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSettings(settings map[string]any) string {
	if len(settings) == 0 {
		return "{}"
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func printPlaygrounds(items []domain.Playground) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			item.Name,
			formatTime(item.UpdatedAt),
		})
	}
	printTable([]string{"ID", "NAME", "UPDATED_AT"}, rows)
}

func printPlayground(item domain.Playground) {
	printKV([][2]string{
		{"id", strconv.FormatUint(uint64(item.ID), 10)},
		{"name", item.Name},
		{"owner", strconv.FormatUint(uint64(item.UserID), 10)},
		{"created_at", formatTime(item.CreatedAt)},
	})
}

func printGraph(g domain.PlaygroundGraph) {
	printPlayground(g.Playground)
	fmt.Println()
	fmt.Println("actions:")
	printActionInstances(g.Actions)
	fmt.Println()
	fmt.Println("reactions:")
	printReactionInstances(g.Reactions)
	fmt.Println()
	fmt.Println("action links:")
	printLinks(g.ActionLinks)
	fmt.Println()
	fmt.Println("reaction links:")
	rows := make([]domain.ActionLink, 0, len(g.ReactionLinks))
	for _, l := range g.ReactionLinks {
		rows = append(rows, domain.ActionLink(l))
	}
	printLinks(rows)
}

func printActionInstances(items []domain.ActionInstance) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			strconv.FormatUint(uint64(item.ActionKindID), 10),
			formatCoord(item.X),
			formatCoord(item.Y),
		})
	}
	printTable([]string{"ID", "KIND_ID", "X", "Y"}, rows)
}

func printReactionInstances(items []domain.ReactionInstance) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			strconv.FormatUint(uint64(item.ReactionKindID), 10),
			formatCoord(item.X),
			formatCoord(item.Y),
			formatSettings(item.Settings),
		})
	}
	printTable([]string{"ID", "KIND_ID", "X", "Y", "SETTINGS"}, rows)
}

func printLinks(items []domain.ActionLink) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			strconv.FormatUint(uint64(item.TriggerID), 10),
			strconv.FormatUint(uint64(item.ReactionID), 10),
		})
	}
	printTable([]string{"ID", "TRIGGER", "REACTION"}, rows)
}

func printActionKinds(items []domain.ActionKind) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			item.Name,
			item.Description,
		})
	}
	printTable([]string{"ID", "NAME", "DESCRIPTION"}, rows)
}

func printReactionKinds(items []domain.ReactionKind) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			item.Name,
			item.Description,
		})
	}
	printTable([]string{"ID", "NAME", "DESCRIPTION"}, rows)
}
