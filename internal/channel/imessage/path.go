package imessage

import (
	"os"
	"path/filepath"
)

// defaultDBPath returns the real on-disk location of the Messages chat
// database (requires the Full Disk Access privacy grant to read).
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Messages", "chat.db")
}
