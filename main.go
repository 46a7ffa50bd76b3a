// Package main is the entry point for the autopush CLI.
package main

import (
	"github.com/huangsam/autopush/cmd"
	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/internal/iocache"
)

func main() {
	cmd.SetHistoryManager(iocache.Manager)

	err := cmd.Execute()

	iocache.CloseStores()
	_ = cmd.Logger().Sync()

	if err != nil {
		contract.LogFatal("command error", err)
	}
}
