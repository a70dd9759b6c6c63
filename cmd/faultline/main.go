// faultline — safety-gated fault injection for device controllers.
// Runs injection campaigns, the continuous safety monitor, gate
// dry-runs, scenario screening, and audit trail verification.
package main

import "github.com/faultline/faultline/internal/cli"

func main() {
	cli.Execute()
}
