package bridge

import "github.com/opencode-ai/lintwatch/internal/lifecycle"

// Host to bridge.

type initializeParams struct {
	ClientName string `json:"clientName,omitempty"`
	RootPath   string `json:"rootPath,omitempty"`
}

type firstLockParams struct {
	Cookie    lifecycle.Cookie   `json:"cookie"`
	Path      string             `json:"path"`
	LockType  lifecycle.LockType `json:"lockType"`
	ReadLocks uint32             `json:"readLocks"`
	EditLocks uint32             `json:"editLocks"`
}

type lastUnlockParams struct {
	Cookie             lifecycle.Cookie   `json:"cookie"`
	LockType           lifecycle.LockType `json:"lockType"`
	ReadLocksRemaining uint32             `json:"readLocksRemaining"`
	EditLocksRemaining uint32             `json:"editLocksRemaining"`
}

type cookieParams struct {
	Cookie lifecycle.Cookie `json:"cookie"`
}

type attributeChangeParams struct {
	Cookie     lifecycle.Cookie `json:"cookie"`
	Attributes uint32           `json:"attributes"`
	// NewPath is set when the change is a rename.
	NewPath string `json:"newPath,omitempty"`
}

type windowShowParams struct {
	Cookie    lifecycle.Cookie `json:"cookie"`
	FirstShow bool             `json:"firstShow"`
}

type activateParams struct {
	ID string `json:"id"`
}

// Bridge to host.

type statusResult struct {
	Status lifecycle.Status `json:"status"`
}

type initializeResult struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Provider     string       `json:"provider"`
	Capabilities capabilities `json:"capabilities"`
}

type capabilities struct {
	DocumentTable bool `json:"documentTable"`
	Activate      bool `json:"activate"`
	Navigate      bool `json:"navigate"`
}

type addDiagnosticParams struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

type removeDiagnosticParams struct {
	ID string `json:"id"`
}

type navigateParams struct {
	Document string `json:"document"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}
