package runner

import (
	"github.com/projectdiscovery/gologger"
)

const banner = `
       _             __
  ___ (_)__  ___ _  / /____  ___
 / _ \/ / _ \/ _ '/ / __/ _ \/ _ \
/ .__/_/_//_/\_, /  \__/\___/ .__/
/_/         /___/          /_/
`

// version is the current version of pingtop, overridden at build time via ldflags
var version = "v0.1.0"

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s %s\n", banner, version)
	gologger.Print().Msgf("\t\tprojectdiscovery.io\n\n")
}
