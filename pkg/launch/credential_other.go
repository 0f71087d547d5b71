//go:build !unix

package launch

import "os/exec"

// setCredential is a no-op where processes cannot switch users at start.
func setCredential(cmd *exec.Cmd, uid, self int) {}
