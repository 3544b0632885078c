package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String("overlay-bridge")
	if !strings.HasPrefix(s, "overlay-bridge "+Version()) {
		t.Errorf("String = %q", s)
	}
	if !strings.Contains(s, runtime.GOOS) {
		t.Errorf("String = %q, missing GOOS", s)
	}
}
