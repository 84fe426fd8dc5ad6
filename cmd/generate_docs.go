package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/assistant"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tool"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate the MCP and agent tool reference",
		Long: `Generate a markdown reference of what the assistant exposes: the MCP
tools (marked read-only or --yolo), the MCP resources, and the tools the
reasoner can propose inside a session with their review policy and the
decisions a reviewer can make.

The reference is built from the registered tools of a default assistant,
so it always matches the binary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := buildDocs(cmd.Context())
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// mcpSurface is what one MCP server registration exposes.
type mcpSurface struct {
	tools     []mcp.Tool
	readOnly  map[string]bool
	resources []mcp.Resource
	templates []mcp.ResourceTemplate
}

// buildDocs registers everything twice, read-only and with --yolo, on
// throwaway servers and renders the difference.
func buildDocs(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := assistant.New(ctx, assistant.DefaultConfig(), assistant.Options{})
	if err != nil {
		return "", fmt.Errorf("failed to create assistant: %w", err)
	}
	sc := server.NewServerContext(ctx, a, server.NewSessionStore(time.Hour, nil, nil))
	defer func() { _ = sc.Shutdown() }()

	newServer := func(readOnly bool) (*mcpserver.MCPServer, error) {
		s := mcpserver.NewMCPServer("inboxagent", version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, false),
		)
		return s, registerAll(s, sc, readOnly)
	}

	full, err := newServer(false)
	if err != nil {
		return "", err
	}
	inspect, err := newServer(true)
	if err != nil {
		return "", err
	}

	surface := mcpSurface{readOnly: make(map[string]bool)}
	for name := range inspect.ListTools() {
		surface.readOnly[name] = true
	}
	for _, st := range full.ListTools() {
		surface.tools = append(surface.tools, st.Tool)
	}
	sort.Slice(surface.tools, func(i, j int) bool { return surface.tools[i].Name < surface.tools[j].Name })

	if err := listOver(ctx, full, mcp.MethodResourcesList, &struct {
		Resources *[]mcp.Resource `json:"resources"`
	}{&surface.resources}); err != nil {
		return "", err
	}
	if err := listOver(ctx, full, mcp.MethodResourcesTemplatesList, &struct {
		Templates *[]mcp.ResourceTemplate `json:"resourceTemplates"`
	}{&surface.templates}); err != nil {
		return "", err
	}
	sort.Slice(surface.resources, func(i, j int) bool { return surface.resources[i].URI < surface.resources[j].URI })

	var d docWriter
	d.header()
	d.mcpTools(surface)
	d.mcpResources(surface)
	d.agentTools(a.Registry().List())
	d.decisions()
	return d.String(), nil
}

// listOver sends a list request through the server's own message handler,
// the same path an MCP client takes, and decodes the result into out.
func listOver(ctx context.Context, s *mcpserver.MCPServer, method mcp.MCPMethod, out any) error {
	req := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":%q}`, method)
	resp := s.HandleMessage(ctx, json.RawMessage(req))
	result, ok := resp.(mcp.JSONRPCResponse)
	if !ok {
		return fmt.Errorf("%s failed: %+v", method, resp)
	}
	raw, err := json.Marshal(result.Result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type docWriter struct {
	strings.Builder
}

func (d *docWriter) f(format string, args ...any) {
	fmt.Fprintf(&d.Builder, format, args...)
}

func (d *docWriter) header() {
	d.f("# inboxagent Reference\n\n")
	d.f("Generated from the tool definitions of inboxagent %s.\n\n", version)
	d.f("- [MCP Tools](#mcp-tools)\n- [MCP Resources](#mcp-resources)\n")
	d.f("- [Agent Tools](#agent-tools)\n- [Review Decisions](#review-decisions)\n\n")
}

func (d *docWriter) mcpTools(s mcpSurface) {
	d.f("## MCP Tools\n\n")
	d.f("Tools marked *read-only* are registered by `serve` by default. The others need `--yolo`.\n\n")
	for _, t := range s.tools {
		mode := "requires --yolo"
		if s.readOnly[t.Name] {
			mode = "read-only"
		}
		d.f("### %s\n\n*%s*\n\n", t.Name, mode)
		d.tool(t)
	}
}

func (d *docWriter) mcpResources(s mcpSurface) {
	d.f("## MCP Resources\n\n")
	d.f("| URI | Name | Description |\n|---|---|---|\n")
	for _, r := range s.resources {
		d.f("| `%s` | %s | %s |\n", r.URI, r.Name, r.Description)
	}
	for _, r := range s.templates {
		uri := ""
		if r.URITemplate != nil && r.URITemplate.Template != nil {
			uri = r.URITemplate.Raw()
		}
		d.f("| `%s` | %s | %s |\n", uri, r.Name, r.Description)
	}
	d.f("\n")
}

// agentTools documents the registry with review policy and terminal flag.
func (d *docWriter) agentTools(tools []tool.Tool) {
	d.f("## Agent Tools\n\n")
	d.f("Tools the reasoner can propose. Calls with the `review` policy wait for a human decision before they run.\n\n")

	sorted := append([]tool.Tool(nil), tools...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, t := range sorted {
		d.f("### %s\n\n", t.Name)
		d.tool(t.MCPTool(""))
		d.f("**Review policy:** %s", t.Policy)
		if t.Terminal {
			d.f(" (ends the session)")
		}
		d.f("\n\n")
	}
}

func (d *docWriter) decisions() {
	d.f("## Review Decisions\n\n")
	d.f("| Review | Allowed decisions |\n|---|---|\n")
	for _, kind := range []agent.ReviewKind{agent.ReviewToolCall, agent.ReviewNotification} {
		allowed := (&agent.Review{Kind: kind}).Allowed()
		names := make([]string, len(allowed))
		for i, k := range allowed {
			names[i] = "`" + string(k) + "`"
		}
		d.f("| %s | %s |\n", kind, strings.Join(names, ", "))
	}
	d.f("\n")
}

// tool writes the description and one line per argument.
func (d *docWriter) tool(t mcp.Tool) {
	if t.Description != "" {
		d.f("%s\n\n", t.Description)
	}
	props := t.InputSchema.Properties
	if len(props) == 0 {
		return
	}

	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, name := range t.InputSchema.Required {
		required[name] = true
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	d.f("**Arguments:**\n")
	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		need := "optional"
		if required[name] {
			need = "required"
		}
		d.f("- `%s` (%s, %s)", name, need, propertyType(prop))
		if desc, ok := prop["description"].(string); ok && desc != "" {
			d.f(": %s", desc)
		}
		if r := propertyRange(prop); r != "" {
			d.f(" [%s]", r)
		}
		d.f("\n")
	}
	d.f("\n")
}

func propertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

// propertyRange renders numeric bounds such as "1..1440".
func propertyRange(prop map[string]any) string {
	lo, hasLo := prop["minimum"]
	hi, hasHi := prop["maximum"]
	switch {
	case hasLo && hasHi:
		return fmt.Sprintf("%v..%v", lo, hi)
	case hasLo:
		return fmt.Sprintf(">= %v", lo)
	case hasHi:
		return fmt.Sprintf("<= %v", hi)
	}
	return ""
}
