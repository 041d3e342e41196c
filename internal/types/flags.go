package types

// GlobalFlags holds flag values shared by every command.
type GlobalFlags struct {
	DeviceURL    string
	RemoteDir    string
	LocalDir     string
	OutputFormat OutputFormat
	JSON         bool
	Quiet        bool
	Verbose      bool
	Debug        bool
	Config       string
}
