package testutil

import "os"

// Setenv sets an environment variable until the test finishes, and returns
// the value.
func Setenv(c Cleanuper, name, value string) string {
	saveEnv(c, name)
	Must(os.Setenv(name, value))
	return value
}

// Unsetenv removes an environment variable until the test finishes.
func Unsetenv(c Cleanuper, name string) {
	saveEnv(c, name)
	Must(os.Unsetenv(name))
}

func saveEnv(c Cleanuper, name string) {
	if old, ok := os.LookupEnv(name); ok {
		c.Cleanup(func() { os.Setenv(name, old) })
	} else {
		c.Cleanup(func() { os.Unsetenv(name) })
	}
}
