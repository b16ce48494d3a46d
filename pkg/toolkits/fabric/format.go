package fabric

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/txn2/mcp-fabric/pkg/delta"
	fabricclient "github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/session"
)

const notAvailable = "N/A"

// markdownTable renders a titled Markdown table.
func markdownTable(title string, header []string, rows [][]string) (string, error) {
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}

	table := tablewriter.NewWriter(&b)
	table.Options(
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeader(header),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return "", fmt.Errorf("failed to append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("failed to render table: %w", err)
	}
	return b.String(), nil
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func formatWorkspaces(workspaces []fabricclient.Workspace) (string, error) {
	rows := make([][]string, 0, len(workspaces))
	for _, ws := range workspaces {
		rows = append(rows, []string{ws.ID, ws.DisplayName, orNA(ws.CapacityID)})
	}
	return markdownTable("# Fabric Workspaces", []string{"ID", "Name", "Capacity"}, rows)
}

// formatItems renders items, with a type column when they may be mixed.
func formatItems(title string, items []fabricclient.Item, withType bool) (string, error) {
	header := []string{"ID", "Name", "Description"}
	if withType {
		header = []string{"ID", "Name", "Type", "Description"}
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		if withType {
			rows = append(rows, []string{it.ID, it.DisplayName, string(it.Type), orNA(it.Description)})
			continue
		}
		rows = append(rows, []string{it.ID, it.DisplayName, orNA(it.Description)})
	}
	return markdownTable(title, header, rows)
}

func formatTables(title string, tables []fabricclient.Table) (string, error) {
	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, []string{t.Name, t.Type, t.Format, t.Location})
	}
	return markdownTable(title, []string{"Name", "Type", "Format", "Location"}, rows)
}

func formatContext(values map[session.Key]string) (string, error) {
	rows := make([][]string, 0, len(values))
	for _, k := range session.Keys {
		if v, ok := values[k]; ok {
			rows = append(rows, []string{string(k), v})
		}
	}
	return markdownTable("# Session Context", []string{"Key", "Value"}, rows)
}

// formatJSON renders v as indented JSON.
func formatJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(b), nil
}

// formatSchema renders one Delta table: its schema as a table followed by
// the table metadata.
func formatSchema(t fabricclient.Table, md *delta.Metadata) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## Delta Table: `%s`\n\n", t.Name)
	fmt.Fprintf(&b, "**Type:** %s\n\n", t.Type)
	fmt.Fprintf(&b, "**Location:** `%s`\n\n", t.Location)

	rows := make([][]string, 0, len(md.Schema.Fields))
	for _, f := range md.Schema.Fields {
		rows = append(rows, []string{f.Name, f.Type, fmt.Sprintf("%t", f.Nullable), f.Comment})
	}
	columns, err := markdownTable("### Schema", []string{"Column Name", "Data Type", "Nullable", "Comment"}, rows)
	if err != nil {
		return "", err
	}
	b.WriteString(columns)
	b.WriteString("\n")
	b.WriteString(formatMetadata(md))
	return b.String(), nil
}

func formatMetadata(md *delta.Metadata) string {
	var b strings.Builder
	b.WriteString("### Metadata\n\n")
	fmt.Fprintf(&b, "- **ID:** %s\n", md.ID)
	if md.Name != "" {
		fmt.Fprintf(&b, "- **Name:** %s\n", md.Name)
	}
	if md.Description != "" {
		fmt.Fprintf(&b, "- **Description:** %s\n", md.Description)
	}
	if len(md.PartitionColumns) > 0 {
		fmt.Fprintf(&b, "- **Partition Columns:** %s\n", strings.Join(md.PartitionColumns, ", "))
	}
	if !md.CreatedTime.IsZero() {
		fmt.Fprintf(&b, "- **Created:** %s\n", md.CreatedTime.UTC().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "- **Version:** %d (latest %d)\n", md.Version, md.LatestVersion)
	if len(md.Configuration) > 0 {
		keys := make([]string, 0, len(md.Configuration))
		for k := range md.Configuration {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("- **Configuration:**\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  - `%s` = `%s`\n", k, md.Configuration[k])
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
