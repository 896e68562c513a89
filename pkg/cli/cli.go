package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

// ConfirmRestore asks the operator before a snapshot is loaded into a
// database, since the load overwrites whatever the target currently holds.
// Declining is not an error.
func ConfirmRestore(host string, snapshotPath string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Load snapshot %s into %s", snapshotPath, host),
		IsConfirm: true,
		Stdout:    os.Stderr,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
