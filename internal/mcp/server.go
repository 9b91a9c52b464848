package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered. The
// data source answers queries; the commander drives the live session.
func New(ds DataSource, cmd Commander, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Obsidian Fitness", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Workout tracking server. Query training history, personal records, and volume trends, or drive a live gym session: start a workout from a template, log sets as they happen, and run rest timers between sets."),
	)

	h := &handlers{ds: ds, cmd: cmd, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolListTemplates, Handler: h.listTemplates},
		server.ServerTool{Tool: toolStartWorkout, Handler: h.startWorkout},
		server.ServerTool{Tool: toolLogSet, Handler: h.logSet},
		server.ServerTool{Tool: toolFinishWorkout, Handler: h.finishWorkout},
		server.ServerTool{Tool: toolDiscardWorkout, Handler: h.discardWorkout},
		server.ServerTool{Tool: toolStartRestTimer, Handler: h.startRestTimer},
		server.ServerTool{Tool: toolExtendRestTimer, Handler: h.extendRestTimer},
		server.ServerTool{Tool: toolGetExerciseHistory, Handler: h.getExerciseHistory},
		server.ServerTool{Tool: toolGetPersonalRecords, Handler: h.getPersonalRecords},
		server.ServerTool{Tool: toolGetVolumeSummary, Handler: h.getVolumeSummary},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resActiveSession, Handler: h.activeSession},
		server.ServerResource{Resource: resTemplates, Handler: h.templates},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	cmd Commander
	log *slog.Logger
}

// --- Resource definitions ---

var resActiveSession = mcp.NewResource(
	"fitness://session/active",
	"Active Session",
	mcp.WithResourceDescription("The current workout session with logged sets and timer states, or a null session when nothing is active"),
	mcp.WithMIMEType("application/json"),
)

var resTemplates = mcp.NewResource(
	"fitness://templates",
	"Workout Templates",
	mcp.WithResourceDescription("All workout templates from the vault library with their exercise prescriptions"),
	mcp.WithMIMEType("application/json"),
)
