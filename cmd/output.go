package cmd

import "io"

// Command output goes through the root command so tests can capture it
// with SetOut/SetErr.

func outWriter() io.Writer {
	return rootCmd.OutOrStdout()
}

func errWriter() io.Writer {
	return rootCmd.ErrOrStderr()
}
