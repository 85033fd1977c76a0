package main

import (
	"medauth-backend/cmd/portal-cli/commands"
	"medauth-backend/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
