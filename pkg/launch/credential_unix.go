//go:build unix

package launch

import (
	"os/exec"
	"syscall"

	"github.com/usbhost/usbhost-go/pkg/registry"
)

// setCredential makes cmd run as uid. Handler users carry a group of the
// same number. Nothing changes when uid is unset or already ours.
func setCredential(cmd *exec.Cmd, uid, self int) {
	if uid == registry.NoUID || uid == self {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = &syscall.Credential{
		Uid:         uint32(uid),
		Gid:         uint32(uid),
		NoSetGroups: true,
	}
}
