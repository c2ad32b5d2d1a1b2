package actions

import "github.com/stake-plus/sevenkey-bot/src/actions/core"

type (
	// Manager re-exports the core.Manager for consumers outside the actions package.
	Manager = core.Manager
	// Module re-exports the core.Module interface.
	Module = core.Module
)
