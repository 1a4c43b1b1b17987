package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "dev (unknown) built unknown", String())
	assert.Equal(t, Info{Version: "dev", Commit: "unknown", BuildTime: "unknown"}, Get())
}
