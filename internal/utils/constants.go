package utils

import "time"

// Device endpoints
const (
	DefaultDeviceURL = "http://flashair"
	CommandPath      = "/command.cgi"
	ThumbnailPath    = "/thumbnail.cgi"
	UploadPath       = "/upload.cgi"
	ConfigPath       = "/config.cgi"
)

// Sync defaults
const (
	DefaultRemoteDir = "/DCIM/100__TSB"
	DefaultLocalDir  = "."
)

// Transfer tuning
const (
	// TransferChunkSize is the streamed read size in bytes for both
	// directions.
	TransferChunkSize = 500000

	// MonitorIdleSleep is how long the monitor worker waits after a step
	// that produced no arrivals.
	MonitorIdleSleep = 300 * time.Millisecond
)

// UploadMinFirmware is the oldest device firmware whose upload.cgi is
// usable from a host.
const UploadMinFirmware = "2.00.02"

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// DefaultMastercode is the device's factory MASTERCODE, used when neither
// the keyring nor the caller supplies one.
const DefaultMastercode = "BEEFBEEFBEEF"

// KeyringService namespaces mastercode entries in the OS keyring.
const KeyringService = "airsync"

// Schema version
const SchemaVersion = "1.0"
