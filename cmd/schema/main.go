package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/opencode-ai/lintwatch/internal/analyzer"
	"github.com/opencode-ai/lintwatch/internal/config"
)

func main() {
	schema := generateSchema()

	// Pretty print the schema
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(schema); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding schema: %v\n", err)
		os.Exit(1)
	}
}

func stringArray(description string, def []string) map[string]any {
	s := map[string]any{
		"type":        "array",
		"description": description,
		"items": map[string]any{
			"type": "string",
		},
	}
	if def != nil {
		s["default"] = def
	}
	return s
}

func generateSchema() map[string]any {
	schema := map[string]any{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "lintwatch Configuration",
		"description": "Configuration schema for .lintwatch.json",
		"type":        "object",
		"properties":  map[string]any{},
	}
	props := schema["properties"].(map[string]any)

	props["data"] = map[string]any{
		"type":        "object",
		"description": "Storage configuration",
		"properties": map[string]any{
			"directory": map[string]any{
				"type":        "string",
				"description": "Directory for debug logs and panic reports",
				"default":     ".lintwatch",
			},
		},
	}

	props["wd"] = map[string]any{
		"type":        "string",
		"description": "Working directory for the application",
	}

	props["debug"] = map[string]any{
		"type":        "boolean",
		"description": "Enable debug logging",
		"default":     false,
	}

	known := make([]string, 0, len(analyzer.BuiltinAnalyzers))
	for _, def := range analyzer.BuiltinAnalyzers {
		known = append(known, def.Name)
	}

	props["analyzer"] = map[string]any{
		"type":        "object",
		"description": "The external analysis tool run on every save",
		"properties": map[string]any{
			"name": map[string]any{
				"description": "Built-in analyzer name, or any name when command is set",
				"default":     config.DefaultAnalyzer,
				"anyOf": []map[string]any{
					{"type": "string", "enum": known},
					{"type": "string"},
				},
			},
			"command": map[string]any{
				"type":        "string",
				"description": "Executable to run instead of the built-in one; absolute or resolved against installDir and PATH",
			},
			"args":       stringArray("Extra arguments placed before the document path", nil),
			"extensions": stringArray("File extensions the analyzer handles (e.g. [\".js\", \".mjs\"])", nil),
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regular expression with file, line, column and message groups, applied to each output line",
				"default":     analyzer.DefaultPattern,
			},
			"installDir": map[string]any{
				"type":        "string",
				"description": "Directory the tool runs in and is installed into; defaults to the directory of the lintwatch binary",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Seconds before a run is killed and reported as a tool error",
				"default":     config.DefaultTimeout,
				"minimum":     1,
			},
		},
	}

	props["analysis"] = map[string]any{
		"type":        "object",
		"description": "How saves are scheduled",
		"properties": map[string]any{
			"async": map[string]any{
				"type":        "boolean",
				"description": "Run analysis on background workers instead of the notification loop",
				"default":     true,
			},
			"maxConcurrent": map[string]any{
				"type":        "integer",
				"description": "Maximum analyzer processes running at once",
				"default":     config.DefaultMaxConcurrent,
				"minimum":     1,
			},
		},
	}

	props["watch"] = map[string]any{
		"type":        "object",
		"description": "Files tracked by the watch command",
		"properties": map[string]any{
			"include": stringArray("Glob patterns, relative to the watched directory, of files to track", []string{"**/*.js"}),
			"exclude": stringArray("Glob patterns of files and directories to ignore", []string{"**/node_modules/**", "**/.git/**"}),
			"debounce": map[string]any{
				"type":        "integer",
				"description": "Milliseconds writes must be quiet before a file is analyzed",
				"default":     config.DefaultDebounce,
				"minimum":     0,
			},
		},
	}

	props["provider"] = map[string]any{
		"type":        "object",
		"description": "How diagnostics are labelled in the host",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Provider name shown next to each diagnostic and in tool error messages",
				"default":     config.DefaultProviderName,
			},
		},
	}

	return schema
}
