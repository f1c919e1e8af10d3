// Package testutils provides helper functions for testing.
package testutils

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

// FlagTestCase describes an expected flag on a cobra command.
type FlagTestCase struct {
	Name           string
	Short          string
	FilenameExts   []string
	PersistentFlag bool
	BaseCmd        *cobra.Command
}

// FlagTestHelper asserts that a command carries the described flag.
func FlagTestHelper(t *testing.T, tc FlagTestCase) {
	t.Helper()

	var flag *pflag.Flag
	if tc.PersistentFlag {
		flag = tc.BaseCmd.PersistentFlags().Lookup(tc.Name)
	} else {
		flag = tc.BaseCmd.Flags().Lookup(tc.Name)
	}
	assert.NotNil(t, flag, "Flag %s should be registered", tc.Name)
	if flag == nil {
		return
	}
	assert.Equal(t, tc.Short, flag.Shorthand, "Unexpected shorthand for flag %s", tc.Name)

	if tc.FilenameExts != nil {
		assert.Equal(t, tc.FilenameExts, flag.Annotations[cobra.BashCompFilenameExt],
			"Flag %s should complete to filenames", tc.Name)
	}
}
