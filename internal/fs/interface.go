package fs

// FileStore is the capability contract over the local folder tier:
// import drop folders, the archive folder and the export folder.
type FileStore interface {
	// ListCandidates enumerates regular files directly inside folder
	// whose extension (case-insensitive, without dot) is in exts. Paths
	// are returned absolute, sorted by name.
	ListCandidates(folder string, exts []string) ([]string, error)

	// ReadBytes reads the whole file.
	ReadBytes(path string) ([]byte, error)

	// MoveToArchive relocates path into archiveFolder, creating the
	// folder if needed. An existing file of the same name is overwritten.
	MoveToArchive(path string, archiveFolder string) error

	// WriteExportFile writes data to folder/fileName, creating the folder
	// if needed.
	WriteExportFile(folder string, fileName string, data []byte) error

	// FolderExists reports whether folder exists and is a directory.
	FolderExists(folder string) bool
}
