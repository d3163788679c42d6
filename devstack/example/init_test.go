package example

import (
	"testing"

	"github.com/wevest/wevest-devstack/devstack/presets"
)

// TestMain ensures the orchestrator is setup correctly for this package.
func TestMain(m *testing.M) {
	presets.DoMain(m)
}
