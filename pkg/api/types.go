// Package api implements the HTTP REST API and Prometheus metrics endpoint.
package api

// Response is the standard JSON response envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse holds daemon status information.
type StatusResponse struct {
	Uptime    string   `json:"uptime"`
	Path      string   `json:"path"`
	LoadedAt  string   `json:"loaded_at"`
	Hostname  string   `json:"hostname,omitempty"`
	MultiVDOM bool     `json:"multi_vdom"`
	VDOMs     []string `json:"vdoms,omitempty"`
	Sections  int      `json:"sections"`
	History   int      `json:"history"`
}

// TextOutput wraps rendered configuration text.
type TextOutput struct {
	Output string `json:"output"`
}

// HistoryItem describes one committed snapshot.
type HistoryItem struct {
	Index   int    `json:"index"`
	Time    string `json:"time"`
	Comment string `json:"comment,omitempty"`
}

// ChangeEntry is one difference between two configurations.
type ChangeEntry struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	Line string `json:"line"`
}

// LoadRequest replaces the active configuration.
type LoadRequest struct {
	Config  string `json:"config"`
	Comment string `json:"comment,omitempty"`
}

// LogEntry is a log message returned by the logs endpoints.
type LogEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}
