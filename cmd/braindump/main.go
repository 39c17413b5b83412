// braindump is the Slack brain dump bot.
package main

import (
	"os"

	"github.com/steveyegge/braindump/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
