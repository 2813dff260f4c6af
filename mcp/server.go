// Package mcp serves the JUnit analysis tools to an AI-assistant host over
// the Model Context Protocol: JSON-RPC 2.0, one message per line, on a
// byte stream that is usually stdio.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/harness-community/mcp-devtools/junit"
)

// maxMessageBytes bounds a single protocol line; inline XML arguments
// count against it.
const maxMessageBytes = 10 << 20

// Server handles the MCP lifecycle and method dispatch. Logging goes
// through the logrus standard logger, which must never be pointed at the
// protocol output stream.
type Server struct {
	name     string
	version  string
	defaults junit.Options

	in  io.Reader
	out io.Writer
}

// NewServer returns a server bound to stdin and stdout with the given
// analysis defaults.
func NewServer(name, version string, defaults junit.Options) *Server {
	return &Server{
		name:     name,
		version:  version,
		defaults: defaults,
		in:       os.Stdin,
		out:      os.Stdout,
	}
}

// Run serves requests until the input stream closes or the context is
// cancelled. Cancellation is observed between messages.
func (s *Server) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"Name":    s.name,
		"Version": s.version,
	}).Info("MCP server listening on stdio")

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s.handleLine(line)
	}
	if err := scanner.Err(); err != nil {
		return errors.New("failed to read protocol stream: " + err.Error())
	}
	logrus.Info("Input stream closed, shutting down")
	return nil
}

func (s *Server) handleLine(line []byte) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		logrus.WithError(err).Warn("Dropping unparseable message")
		s.reply(errorResponse(nil, codeParseError, "parse error: "+err.Error()))
		return
	}
	// Notifications carry no id and get no response.
	if req.isNotification() {
		logrus.WithField("Method", req.Method).Debug("Ignoring notification")
		return
	}
	s.reply(s.dispatch(req))
}

// dispatch routes one request to its handler and always produces a
// response carrying the request id.
func (s *Server) dispatch(req Request) Response {
	logrus.WithField("Method", req.Method).Debug("Handling request")
	if req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "missing method")
	}
	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, s.initializeResult())
	case "ping":
		return resultResponse(req.ID, struct{}{})
	case "tools/list":
		return resultResponse(req.ID, toolsListResult{Tools: s.tools()})
	case "tools/call":
		return s.callTool(req)
	case "prompts/list":
		return resultResponse(req.ID, promptsListResult{Prompts: s.prompts()})
	case "prompts/get":
		return s.getPrompt(req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) reply(resp Response) {
	if err := json.NewEncoder(s.out).Encode(resp); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResponse struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

func (s *Server) initializeResult() initializeResponse {
	return initializeResponse{
		ProtocolVersion: protocolVersion,
		Capabilities: map[string]any{
			"tools":   map[string]any{},
			"prompts": map[string]any{},
		},
		ServerInfo: serverInfo{Name: s.name, Version: s.version},
	}
}
