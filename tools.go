//go:build tools
// +build tools

// Package tools pins the mockgen binary used by go:generate.
package chat_board

import (
	_ "go.uber.org/mock/mockgen"
)
