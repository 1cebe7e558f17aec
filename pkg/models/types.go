package models

// Status values written to the report artifact. These exact strings are the
// wire format of the Status column; the row highlighter matches them
// case-sensitively.
const (
	StatusCopied           = "Copied"
	StatusAlreadyCopied    = "Already Copied"
	StatusVerified         = "Verified"
	StatusSizeMismatch     = "Size Mismatch"
	StatusChecksumMismatch = "Checksum Mismatch"
	StatusMissingInternal  = "Missing in Folder 1"
	StatusMissingExternal  = "Missing in Folder 2"
)

// DateCopiedLayout is the timestamp format stored in the
// "Date Copied to Folder 1" column.
const DateCopiedLayout = "2006-01-02 15:04:05"

// RunTimestampLayout names backup files and audit sheets. It must stay
// filename-safe on every platform.
const RunTimestampLayout = "2006-01-02_15-04-05"

// FileRecord is one row of the report's primary sheet. RelativePath is the
// stable identity of the file across runs; the destination inside the
// internal tree is always internalRoot/RelativePath. The existence flags
// are live probes, recomputed on every run.
type FileRecord struct {
	RelativePath   string
	SourcePath     string
	DateCopied     string // DateCopiedLayout; empty means never copied
	ExistsInternal bool
	ExistsExternal bool
}

// AuditRecord is one row of a run's audit sheet.
type AuditRecord struct {
	Timestamp    string
	RelativePath string
	Status       string
}

// Project holds the persisted configuration of one sync pair.
type Project struct {
	Name         string
	InternalPath string // Folder 1, the mirror being filled
	ExternalPath string // Folder 2, the source of truth
	ReportPath   string
	KeepBackups  int
	ChecksumAlgo string
}
