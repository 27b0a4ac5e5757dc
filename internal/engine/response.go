// Package engine implements the execution engine: command resolution,
// the transition gate, phase-jump confirmation, plugin dispatch, and
// materialization on success.
package engine

import "github.com/argus-sh/argus/internal/plugin"

// Action is one closed-set intent a host may act on. Hosts must
// ignore unknown action types.
type Action struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Response is the engine's public, never-throws result of a single
// Dispatch call.
type Response struct {
	Message    string             `json:"message"`
	Actions    []Action           `json:"actions,omitempty"`
	Success    bool               `json:"success"`
	StatusCode plugin.StatusCode  `json:"statusCode"`
	UIHints    map[string]any     `json:"ui_hints,omitempty"`
}

func ok(message string) Response {
	return Response{Message: message, Success: true, StatusCode: plugin.StatusOK}
}

func blocked(code plugin.StatusCode, message string) Response {
	return Response{Message: message, Success: false, StatusCode: code}
}

func unknown(message string) Response {
	return Response{Message: message, Success: false, StatusCode: plugin.StatusUnknown}
}

func errored(message string) Response {
	return Response{Message: message, Success: false, StatusCode: plugin.StatusError}
}
