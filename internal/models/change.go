package models

// FileChange is one entry of the file-bridge change log.
type FileChange struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"` // WRITE | DELETE | RESTORE | BACKUP
	Path      string `json:"path"`
}
