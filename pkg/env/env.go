// Package env keeps names of environment variables with special significance
// to lsh.
package env

// Environment variables with special significance to lsh.
//
// Note that some of these env vars may be significant only in special
// circumstances, such as when running unit tests.
const (
	HOME                = "HOME"
	IFS                 = "IFS"
	LSH_TEST_CHILD      = "LSH_TEST_CHILD"
	LSH_TEST_TIME_SCALE = "LSH_TEST_TIME_SCALE"
	OLDPWD              = "OLDPWD"
	PATH                = "PATH"
	PS1                 = "PS1"
	PS2                 = "PS2"
	PS3                 = "PS3"
	PWD                 = "PWD"
	REPLY               = "REPLY"
	SHLVL               = "SHLVL"
	XDG_CONFIG_HOME     = "XDG_CONFIG_HOME"
	XDG_DATA_HOME       = "XDG_DATA_HOME"
)
