package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperengineering/praxis"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with praxis tools.
type Server struct {
	client    *praxis.Client
	mcpServer *server.MCPServer
}

// ToolResult represents the result of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo represents a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

type toolHandler func(ctx context.Context, args map[string]any) (*ToolResult, error)

// NewServer creates a new MCP server with praxis tools registered.
func NewServer(client *praxis.Client, version string) *Server {
	s := &Server{client: client}

	s.mcpServer = server.NewMCPServer(
		"praxis",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message and returns a response.
// This is primarily for testing the MCP protocol layer.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "praxis_capabilities", Description: "Report which local AI capabilities are available"},
		{Name: "praxis_generate_scenario", Description: "Generate a clinical practice scenario for a specialty and difficulty"},
		{Name: "praxis_start_dialogue", Description: "Start a simulated patient consultation for a scenario"},
		{Name: "praxis_send_message", Description: "Say something to the simulated patient and get the reply"},
		{Name: "praxis_translate", Description: "Translate a medical term between English and German"},
		{Name: "praxis_check_grammar", Description: "Check German text for grammar and spelling mistakes"},
	}
}

// CallTool executes a tool by name with the given arguments.
// This is used for testing and direct invocation.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	handler, ok := s.handlers()[name]
	if !ok {
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
	return handler(ctx, args)
}

func (s *Server) handlers() map[string]toolHandler {
	return map[string]toolHandler{
		"praxis_capabilities":      s.handleCapabilities,
		"praxis_generate_scenario": s.handleGenerateScenario,
		"praxis_start_dialogue":    s.handleStartDialogue,
		"praxis_send_message":      s.handleSendMessage,
		"praxis_translate":         s.handleTranslate,
		"praxis_check_grammar":     s.handleCheckGrammar,
	}
}

func (s *Server) registerTools() {
	specialties := make([]string, 0, len(praxis.ValidSpecialties()))
	for _, sp := range praxis.ValidSpecialties() {
		specialties = append(specialties, string(sp))
	}
	difficulties := make([]string, 0, len(praxis.ValidDifficulties()))
	for _, d := range praxis.ValidDifficulties() {
		difficulties = append(difficulties, string(d))
	}

	s.mcpServer.AddTool(mcp.NewTool("praxis_capabilities",
		mcp.WithDescription("Report which local AI capabilities (prompt, translator, rewriter) are available. Unavailable capabilities fall back to bundled content."),
	), s.wrap(s.handleCapabilities))

	s.mcpServer.AddTool(mcp.NewTool("praxis_generate_scenario",
		mcp.WithDescription("Generate a clinical practice scenario. Returns a session reference (S1, S2, ...) usable with praxis_start_dialogue."),
		mcp.WithString("specialty",
			mcp.Description("Clinical specialty. Unlisted specialties get a generic scenario."),
			mcp.Enum(specialties...),
			mcp.Required(),
		),
		mcp.WithString("difficulty",
			mcp.Description("Scenario difficulty"),
			mcp.Enum(difficulties...),
			mcp.Required(),
		),
	), s.wrap(s.handleGenerateScenario))

	s.mcpServer.AddTool(mcp.NewTool("praxis_start_dialogue",
		mcp.WithDescription("Start a simulated patient consultation, replacing any active one."),
		mcp.WithString("scenario",
			mcp.Description("Session reference (S1), scenario ID or title snippet (default: current scenario)"),
		),
	), s.wrap(s.handleStartDialogue))

	s.mcpServer.AddTool(mcp.NewTool("praxis_send_message",
		mcp.WithDescription("Say something to the simulated patient in the active consultation. The patient answers in German."),
		mcp.WithString("message",
			mcp.Description("What the doctor says"),
			mcp.Required(),
		),
	), s.wrap(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("praxis_translate",
		mcp.WithDescription("Translate a medical term. Falls back to a small bundled dictionary when no translator is available."),
		mcp.WithString("term",
			mcp.Description("The term to translate"),
			mcp.Required(),
		),
		mcp.WithString("from",
			mcp.Description("Source language code (default: en)"),
		),
		mcp.WithString("to",
			mcp.Description("Target language code (default: de)"),
		),
	), s.wrap(s.handleTranslate))

	s.mcpServer.AddTool(mcp.NewTool("praxis_check_grammar",
		mcp.WithDescription("Check German text for grammar, spelling and punctuation. Returns suggestions with positions and a score out of 100."),
		mcp.WithString("text",
			mcp.Description("The text to check"),
			mcp.Required(),
		),
	), s.wrap(s.handleCheckGrammar))
}

// wrap adapts an internal handler to the mcp-go handler signature.
func (s *Server) wrap(h toolHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(result), nil
	}
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
	}
	if r.IsError {
		result.IsError = true
	}
	return result
}

// Internal handlers

func (s *Server) handleCapabilities(ctx context.Context, args map[string]any) (*ToolResult, error) {
	caps := s.client.CheckCapabilities(ctx)
	return &ToolResult{Content: formatCapabilities(caps)}, nil
}

func (s *Server) handleGenerateScenario(ctx context.Context, args map[string]any) (*ToolResult, error) {
	specialty, _ := args["specialty"].(string)
	difficulty, _ := args["difficulty"].(string)
	if specialty == "" {
		return &ToolResult{Content: "specialty is required", IsError: true}, nil
	}
	if difficulty == "" {
		return &ToolResult{Content: "difficulty is required", IsError: true}, nil
	}

	res, err := s.client.GenerateScenario(ctx, praxis.ScenarioParams{
		Specialty:  praxis.Specialty(specialty),
		Difficulty: praxis.Difficulty(difficulty),
	})
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("generate scenario failed: %v", err), IsError: true}, nil
	}
	if !res.OK() {
		return &ToolResult{Content: res.Message(), IsError: true}, nil
	}

	ref, _ := s.client.Session().RefFor(res.Data.ID)
	return &ToolResult{Content: formatScenario(ref, res.Data, res.Fallback)}, nil
}

func (s *Server) handleStartDialogue(ctx context.Context, args map[string]any) (*ToolResult, error) {
	ref, _ := args["scenario"].(string)

	d, err := s.client.StartDialogue(ctx, ref)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("start dialogue failed: %v", err), IsError: true}, nil
	}

	var sb strings.Builder
	sb.WriteString("Consultation started.\n")
	if d.Scenario != nil {
		fmt.Fprintf(&sb, "Scenario: %s\nChief complaint: %s\n", d.Scenario.Title, d.Scenario.ChiefComplaint)
	}
	sb.WriteString("Use praxis_send_message to talk to the patient.")
	return &ToolResult{Content: sb.String()}, nil
}

func (s *Server) handleSendMessage(ctx context.Context, args map[string]any) (*ToolResult, error) {
	message, _ := args["message"].(string)
	if strings.TrimSpace(message) == "" {
		return &ToolResult{Content: "message is required", IsError: true}, nil
	}

	res, err := s.client.SendMessage(ctx, message)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("send message failed: %v", err), IsError: true}, nil
	}
	if !res.OK() {
		return &ToolResult{Content: res.Message(), IsError: true}, nil
	}
	return &ToolResult{Content: formatReply(res.Data, res.Fallback)}, nil
}

func (s *Server) handleTranslate(ctx context.Context, args map[string]any) (*ToolResult, error) {
	term, _ := args["term"].(string)
	if strings.TrimSpace(term) == "" {
		return &ToolResult{Content: "term is required", IsError: true}, nil
	}
	from, _ := args["from"].(string)
	to, _ := args["to"].(string)

	res, err := s.client.TranslateTerm(ctx, praxis.TranslationParams{
		Term:           term,
		SourceLanguage: from,
		TargetLanguage: to,
	})
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("translate failed: %v", err), IsError: true}, nil
	}
	if !res.OK() {
		return &ToolResult{Content: res.Message(), IsError: true}, nil
	}

	t := res.Data
	out := fmt.Sprintf("%s (%s) → %s (%s)", t.Original, t.SourceLanguage, t.Translated, t.TargetLanguage)
	if len(t.Alternatives) > 0 {
		out += "\nAlternatives: " + strings.Join(t.Alternatives, ", ")
	}
	if res.Fallback {
		out += "\n(bundled dictionary)"
	}
	return &ToolResult{Content: out}, nil
}

func (s *Server) handleCheckGrammar(ctx context.Context, args map[string]any) (*ToolResult, error) {
	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return &ToolResult{Content: "text is required", IsError: true}, nil
	}

	res, err := s.client.CheckGrammar(ctx, text)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("grammar check failed: %v", err), IsError: true}, nil
	}
	if !res.OK() {
		return &ToolResult{Content: res.Message(), IsError: true}, nil
	}
	return &ToolResult{Content: formatGrammar(res.Data)}, nil
}

// Formatting functions

func formatCapabilities(caps praxis.Capabilities) string {
	return fmt.Sprintf("Capabilities:\n  prompt: %s\n  translator: %s\n  rewriter: %s",
		caps.Prompt, caps.Translator, caps.Rewriter)
}

func formatScenario(ref string, sc praxis.Scenario, fallback bool) string {
	var sb strings.Builder
	if ref == "" {
		ref = sc.ID
	}
	fmt.Fprintf(&sb, "[%s] %s (%s, %s)\n\n", ref, sc.Title, sc.Specialty, sc.Difficulty)
	fmt.Fprintf(&sb, "%s\n\nChief complaint: %s\n", sc.Description, sc.ChiefComplaint)
	if v := sc.VitalSigns; v != nil {
		fmt.Fprintf(&sb, "Vital signs: BP %s, HR %d, RR %d, Temp %.1f°C, SpO2 %.0f%%\n", v.BP, v.HR, v.RR, v.Temp, v.SpO2)
	}
	if fallback {
		sb.WriteString("\n(bundled scenario: AI capability unavailable)\n")
	}
	fmt.Fprintf(&sb, "\nUse praxis_start_dialogue with scenario %q to begin the consultation.", ref)
	return sb.String()
}

func formatReply(r praxis.DialogueResponse, fallback bool) string {
	var sb strings.Builder
	sb.WriteString("Patient: " + r.Message)
	if r.Emotion != "" {
		fmt.Fprintf(&sb, "\n(%s)", r.Emotion)
	}
	if len(r.Suggestions) > 0 {
		sb.WriteString("\n\nSuggested questions:")
		for _, q := range r.Suggestions {
			sb.WriteString("\n  - " + q)
		}
	}
	if fallback {
		sb.WriteString("\n\n(canned reply: AI capability unavailable)")
	}
	return sb.String()
}

func formatGrammar(g praxis.GrammarCheckResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Score: %d/100\n", g.Score)
	if len(g.Suggestions) == 0 {
		sb.WriteString("No issues found.")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Corrected: %s\n\n%d suggestions:\n", g.CorrectedText, len(g.Suggestions))
	for _, s := range g.Suggestions {
		fmt.Fprintf(&sb, "  - [%s] %s (at %d-%d)\n", s.Type, s.Explanation, s.Position.Start, s.Position.End)
	}
	return strings.TrimRight(sb.String(), "\n")
}
