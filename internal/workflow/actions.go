package workflow

import (
	"os"
	"strings"
)

// Action identifiers the host menu dispatches on. Fixed set, no
// runtime registration.
const (
	ActionEncryptFile   = "encrypt_file"
	ActionEncryptFiles  = "encrypt_files"
	ActionEncryptFolder = "encrypt_folder"
	ActionEncryptBundle = "encrypt_bundle"
	ActionDecrypt       = "decrypt"
)

// ActionInfo describes one menu entry offered for a selection.
type ActionInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Mode  Mode   `json:"mode"`
}

// Applicable returns the actions valid for a selection. Decrypt is
// offered only when every selected path carries the cipher suffix;
// encrypt variants depend on file-vs-folder shape and count.
func Applicable(selection []string, cipherSuffix string) []ActionInfo {
	if len(selection) == 0 {
		return nil
	}

	dotted := "." + cipherSuffix
	allEncrypted := true
	allFiles := true
	allDirs := true
	for _, path := range selection {
		if !strings.HasSuffix(path, dotted) {
			allEncrypted = false
		}
		info, err := os.Lstat(path)
		if err != nil {
			return nil
		}
		if info.IsDir() {
			allFiles = false
		} else {
			allDirs = false
		}
	}

	if allEncrypted && allFiles {
		return []ActionInfo{{ID: ActionDecrypt, Label: "Decrypt", Mode: ModeDecrypt}}
	}

	var actions []ActionInfo
	switch {
	case len(selection) == 1 && allDirs:
		actions = append(actions, ActionInfo{ID: ActionEncryptFolder, Label: "Encrypt Folder", Mode: ModeEncrypt})
	case len(selection) == 1 && allFiles:
		actions = append(actions, ActionInfo{ID: ActionEncryptFile, Label: "Encrypt File", Mode: ModeEncrypt})
	default:
		actions = append(actions,
			ActionInfo{ID: ActionEncryptFiles, Label: "Encrypt Each", Mode: ModeEncrypt},
			ActionInfo{ID: ActionEncryptBundle, Label: "Encrypt as Bundle", Mode: ModeEncrypt})
	}
	return actions
}

// ModeFor maps an action id to its pipeline mode; ok is false for
// unknown ids.
func ModeFor(actionID string) (Mode, bool) {
	switch actionID {
	case ActionEncryptFile, ActionEncryptFiles, ActionEncryptFolder, ActionEncryptBundle:
		return ModeEncrypt, true
	case ActionDecrypt:
		return ModeDecrypt, true
	default:
		return "", false
	}
}
