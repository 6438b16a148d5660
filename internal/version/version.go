package version

// Set at build time via -ldflags.
var (
	Version = "development"
	Commit  = ""
)

func GetVersion() string {
	return Version
}

func GetCommit() string {
	return Commit
}
