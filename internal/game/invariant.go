//go:build !debug

package game

import (
	"fmt"

	"that-night/internal/logger"
)

// invariant reports a broken consistency rule. Release builds log and carry
// on; build with -tags debug to panic instead.
func invariant(ok bool, format string, args ...any) {
	if ok {
		return
	}
	logger.Log.Errorf("invariant violated: %s", fmt.Sprintf(format, args...))
}
