package consts

// Recommended permissions for the files and directories the downloader creates.
const (
	// ** World Readable **
	// Media directories and files
	PermsGenericDir = 0o755
	PermsMediaFile  = 0o644
	PermsLogFile    = 0o644

	// ** Private **
	// Sensitive files - owner only
	PermsCookieFile = 0o600 // Private cookie files
	PermsDBFile     = 0o600 // Job history database
)
