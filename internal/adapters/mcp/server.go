// Package mcpadapter exposes the scoring generator as Model Context Protocol
// tools over stdio.
package mcpadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/report"
	"github.com/kirillkom/deepfake-scan/internal/core/scoring"
)

const (
	serverName      = "deepfake-scan"
	defaultMaxBytes = 50 << 20
)

// Generator is satisfied by *scoring.Generator.
type Generator interface {
	Generate(ctx context.Context, req scoring.Request) domain.AnalysisResult
}

type Server struct {
	generator Generator
	maxBytes  int64
	now       func() time.Time
}

func New(generator Generator, maxBytes int64) *Server {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Server{generator: generator, maxBytes: maxBytes, now: time.Now}
}

// MCPServer registers the tools on a fresh protocol server.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))
	srv.AddTool(analyzeTool(), s.handleAnalyze)
	srv.AddTool(reportTool(), s.handleReport)
	return srv
}

func (s *Server) ServeStdio(version string) error {
	return server.ServeStdio(s.MCPServer(version))
}

func mediaArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("path",
			mcp.Description("Local path of the media file. Either path or data_base64 is required."),
		),
		mcp.WithString("data_base64",
			mcp.Description("Base64-encoded media payload."),
		),
		mcp.WithString("file_name",
			mcp.Description("File name used for seeding when data_base64 is given."),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Media kind of the payload."),
			mcp.Enum(string(domain.MediaImage), string(domain.MediaVideo), string(domain.MediaAudio)),
		),
		mcp.WithBoolean("force_authentic",
			mcp.Description("Treat the media as a verified live capture."),
		),
	}
}

func analyzeTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Score a media file and return the analysis result as JSON."),
	}, mediaArgs()...)
	return mcp.NewTool("analyze_media", opts...)
}

func reportTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Score a media file and return the plain-text analysis report."),
	}, mediaArgs()...)
	return mcp.NewTool("render_report", opts...)
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := s.scoringRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := s.generator.Generate(ctx, req)
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := s.scoringRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := s.generator.Generate(ctx, req)
	return mcp.NewToolResultText(report.Render(result, s.now())), nil
}

func (s *Server) scoringRequest(request mcp.CallToolRequest) (scoring.Request, error) {
	rawKind, err := request.RequireString("kind")
	if err != nil {
		return scoring.Request{}, err
	}
	kind, err := domain.ParseMediaKind(rawKind)
	if err != nil {
		return scoring.Request{}, err
	}

	path := strings.TrimSpace(request.GetString("path", ""))
	encoded := strings.TrimSpace(request.GetString("data_base64", ""))

	var (
		data     []byte
		fileName string
	)
	switch {
	case path != "":
		data, err = s.readFile(path)
		if err != nil {
			return scoring.Request{}, err
		}
		fileName = filepath.Base(path)
	case encoded != "":
		data, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return scoring.Request{}, domain.WrapError(domain.ErrInvalidInput, "decode data_base64", err)
		}
		if int64(len(data)) > s.maxBytes {
			return scoring.Request{}, domain.WrapError(domain.ErrInvalidInput, "decode data_base64", fmt.Errorf("payload exceeds %d bytes", s.maxBytes))
		}
		fileName = strings.TrimSpace(request.GetString("file_name", ""))
	default:
		return scoring.Request{}, domain.WrapError(domain.ErrInvalidInput, "read media", errors.New("either path or data_base64 is required"))
	}
	if fileName == "" {
		fileName = "media.bin"
	}

	return scoring.Request{
		Kind:           kind,
		FileName:       fileName,
		Data:           data,
		ForceAuthentic: request.GetBool("force_authentic", false),
	}, nil
}

func (s *Server) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open media", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read media", fmt.Errorf("file exceeds %d bytes", s.maxBytes))
	}
	return data, nil
}
