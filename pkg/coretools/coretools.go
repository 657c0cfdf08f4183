// Package coretools provides the built-in tools that the CLI and the gateway
// register for every turn: the current time and read-only access to a
// workspace directory.
package coretools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/harun/agentcore/pkg/toolexecutor"
)

const (
	// ToolCurrentTime reports the current time.
	ToolCurrentTime = "current_time"
	// ToolReadFile reads a workspace file.
	ToolReadFile = "read_file"
	// ToolListFiles lists a workspace directory.
	ToolListFiles = "list_files"

	defaultMaxBytes = 200000
	maxListEntries  = 500
)

// Names returns the names of every built-in tool.
func Names() []string {
	return []string{ToolCurrentTime, ToolReadFile, ToolListFiles}
}

// Options configures core tool registration.
type Options struct {
	// WorkspaceRoot confines read_file and list_files. Both tools are skipped
	// when it is empty.
	WorkspaceRoot string
	// Enabled restricts registration to the named tools; nil registers all.
	Enabled []string
	// Now overrides the clock for current_time.
	Now func() time.Time
}

// RegisterCoreTools registers the enabled built-in tools.
func RegisterCoreTools(executor *toolexecutor.ToolExecutor, opts Options) error {
	if executor == nil {
		return errors.New("tool executor is required")
	}

	var root string
	if opts.WorkspaceRoot != "" {
		abs, err := filepath.Abs(opts.WorkspaceRoot)
		if err != nil {
			return fmt.Errorf("failed to resolve workspace root: %w", err)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace root: %w", err)
		}
		root = abs
	}

	enabled := make(map[string]bool)
	for _, name := range opts.Enabled {
		enabled[name] = true
	}
	wants := func(name string) bool {
		return opts.Enabled == nil || enabled[name]
	}

	var tools []toolexecutor.ToolDefinition
	if wants(ToolCurrentTime) {
		tools = append(tools, currentTimeTool(opts.Now))
	}
	if root != "" {
		if wants(ToolReadFile) {
			tools = append(tools, readFileTool(root))
		}
		if wants(ToolListFiles) {
			tools = append(tools, listFilesTool(root))
		}
	}

	for _, tool := range tools {
		if err := executor.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func currentTimeTool(now func() time.Time) toolexecutor.ToolDefinition {
	if now == nil {
		now = time.Now
	}
	return toolexecutor.ToolDefinition{
		Name:        ToolCurrentTime,
		Description: "Get the current date and time, optionally in an IANA timezone such as Asia/Tokyo.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "timezone", Type: "string", Description: "IANA timezone name (default UTC)", Required: false},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			loc := time.UTC
			if tz, _ := args["timezone"].(string); strings.TrimSpace(tz) != "" {
				l, err := time.LoadLocation(strings.TrimSpace(tz))
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q", tz)
				}
				loc = l
			}
			return now().In(loc).Format(time.RFC3339), nil
		},
	}
}

func readFileTool(root string) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        ToolReadFile,
		Description: "Read a text file from the workspace.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "path", Type: "string", Description: "File path relative to the workspace", Required: true},
			{Name: "max_bytes", Type: "number", Description: "Maximum bytes to read (default 200000)", Required: false, Default: defaultMaxBytes},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			pathValue, _ := args["path"].(string)
			target, err := resolvePathInWorkspace(root, pathValue)
			if err != nil {
				return "", err
			}

			maxBytes := int64(defaultMaxBytes)
			if raw, ok := args["max_bytes"].(float64); ok && raw > 0 {
				maxBytes = int64(raw)
			}

			data, truncated, err := readFileWithLimit(target, maxBytes)
			if err != nil {
				return "", err
			}
			if truncated {
				return fmt.Sprintf("%s\n[truncated after %d bytes]", data, len(data)), nil
			}
			return string(data), nil
		},
	}
}

func listFilesTool(root string) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        ToolListFiles,
		Description: "List the entries of a workspace directory. Directories end with a slash.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "path", Type: "string", Description: "Directory relative to the workspace (default the workspace itself)", Required: false},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			pathValue, _ := args["path"].(string)
			if strings.TrimSpace(pathValue) == "" {
				pathValue = "."
			}
			target, err := resolvePathInWorkspace(root, pathValue)
			if err != nil {
				return "", err
			}

			entries, err := os.ReadDir(target)
			if err != nil {
				return "", err
			}

			names := make([]string, 0, len(entries))
			for _, entry := range entries {
				name := entry.Name()
				if entry.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			sort.Strings(names)

			if len(names) == 0 {
				return "(empty directory)", nil
			}
			if len(names) > maxListEntries {
				omitted := len(names) - maxListEntries
				names = append(names[:maxListEntries], fmt.Sprintf("[%d more entries]", omitted))
			}
			return strings.Join(names, "\n"), nil
		},
	}
}

func readFileWithLimit(path string, limit int64) ([]byte, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, false, err
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("%s is a directory", filepath.Base(path))
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, file, limit+1); err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	if int64(buf.Len()) > limit {
		return buf.Bytes()[:limit], true, nil
	}
	return buf.Bytes(), false, nil
}

// resolvePathInWorkspace returns the absolute path for pathValue, rejecting
// anything that resolves outside root, including through symlinks.
func resolvePathInWorkspace(root string, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", fmt.Errorf("path is required")
	}
	if strings.Contains(pathValue, "://") {
		return "", fmt.Errorf("path must be a local file")
	}

	candidate := pathValue
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !within(root, candidate) {
		return "", fmt.Errorf("path %q is outside workspace root", pathValue)
	}

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path %q does not exist", pathValue)
		}
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}
	if !within(realRoot, resolved) {
		return "", fmt.Errorf("path %q is outside workspace root", pathValue)
	}

	return resolved, nil
}

func within(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
