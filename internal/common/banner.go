package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the daemon startup banner
func PrintBanner(version string) {
	banner.PrintSimple("Opsd", version)
}
