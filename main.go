package main

import (
	"github.com/opencode-ai/lintwatch/cmd"
	"github.com/opencode-ai/lintwatch/internal/logging"
)

func main() {
	defer logging.RecoverPanic("main", nil)

	cmd.Execute()
}
