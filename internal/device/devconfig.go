package device

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"

	"github.com/seltzinger/airsync/internal/utils"
)

// WifiMode is the card's wireless operating mode. Values 0-3 take effect
// immediately, 4-6 on the next boot.
type WifiMode int

const (
	WifiAccessPoint       WifiMode = 0
	WifiStation           WifiMode = 2
	WifiPassthrough       WifiMode = 3
	WifiAccessPointOnBoot WifiMode = 4
	WifiStationOnBoot     WifiMode = 5
	WifiPassthroughOnBoot WifiMode = 6
)

func (m WifiMode) valid() bool {
	switch m {
	case WifiAccessPoint, WifiStation, WifiPassthrough,
		WifiAccessPointOnBoot, WifiStationOnBoot, WifiPassthroughOnBoot:
		return true
	}
	return false
}

func (m WifiMode) String() string {
	switch m {
	case WifiAccessPoint:
		return "access-point"
	case WifiStation:
		return "station"
	case WifiPassthrough:
		return "passthrough"
	case WifiAccessPointOnBoot:
		return "access-point (on boot)"
	case WifiStationOnBoot:
		return "station (on boot)"
	case WifiPassthroughOnBoot:
		return "passthrough (on boot)"
	}
	return fmt.Sprintf("wifi mode %d", int(m))
}

// DriveMode controls the card's WebDAV drive feature.
type DriveMode int

const (
	DriveDisabled  DriveMode = 0
	DriveReadOnly  DriveMode = 1
	DriveReadWrite DriveMode = 2
)

// Param is a config.cgi parameter key. The set is closed; Settings
// construction rejects anything else.
type Param string

const (
	ParamWifiTimeout     Param = "APPAUTOTIME"
	ParamAppInfo         Param = "APPINFO"
	ParamWifiMode        Param = "APPMODE"
	ParamWifiKey         Param = "APPNETWORKKEY"
	ParamWifiSSID        Param = "APPSSID"
	ParamPassthroughKey  Param = "BRGNETWORKKEY"
	ParamPassthroughSSID Param = "BRGSSID"
	ParamBootscreenPath  Param = "CIPATH"
	ParamMastercode      Param = "MASTERCODE"
	ParamClearMastercode Param = "CLEARCODE"
	ParamTimezone        Param = "TIMEZONE"
	ParamDriveMode       Param = "WEBDAV"
)

// ParamError reports a config parameter failing validation.
type ParamError struct {
	Param  Param
	Value  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s value %q: %s", e.Param, e.Value, e.Reason)
}

// paramSpecs maps each parameter to its normalizing validator. Inputs are
// caller-facing strings (seconds, hours, mode numbers); outputs are the
// wire values config.cgi expects.
var paramSpecs = map[Param]func(string) (string, error){
	ParamWifiTimeout:     processTimeout,
	ParamAppInfo:         processAppInfo,
	ParamWifiMode:        processWifiMode,
	ParamWifiKey:         processNetworkKey(ParamWifiKey),
	ParamWifiSSID:        processSSID(ParamWifiSSID),
	ParamPassthroughKey:  processNetworkKey(ParamPassthroughKey),
	ParamPassthroughSSID: processSSID(ParamPassthroughSSID),
	ParamBootscreenPath:  func(v string) (string, error) { return v, nil },
	ParamMastercode:      processMastercode,
	ParamClearMastercode: func(string) (string, error) { return "1", nil },
	ParamTimezone:        processTimezone,
	ParamDriveMode:       processDriveMode,
}

func processTimeout(v string) (string, error) {
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "", &ParamError{Param: ParamWifiTimeout, Value: v, Reason: "not a number of seconds"}
	}
	ms := int64(seconds * 1000)
	if ms < 60000 || ms > 4294967294 {
		return "", &ParamError{Param: ParamWifiTimeout, Value: v, Reason: "must be between 60 and 4294967 seconds"}
	}
	return strconv.FormatInt(ms, 10), nil
}

func processAppInfo(v string) (string, error) {
	if len(v) < 1 || len(v) > 16 {
		return "", &ParamError{Param: ParamAppInfo, Value: v, Reason: "must be 1 to 16 characters"}
	}
	return v, nil
}

func processWifiMode(v string) (string, error) {
	n, err := strconv.Atoi(v)
	if err != nil || !WifiMode(n).valid() {
		return "", &ParamError{Param: ParamWifiMode, Value: v, Reason: "must be one of 0, 2, 3 (immediate) or 4, 5, 6 (on boot)"}
	}
	return strconv.Itoa(n), nil
}

func processNetworkKey(p Param) func(string) (string, error) {
	return func(v string) (string, error) {
		if len(v) > 63 {
			return "", &ParamError{Param: p, Value: v, Reason: "must be at most 63 characters"}
		}
		return v, nil
	}
}

func processSSID(p Param) func(string) (string, error) {
	return func(v string) (string, error) {
		if len(v) < 1 || len(v) > 32 {
			return "", &ParamError{Param: p, Value: v, Reason: "must be 1 to 32 characters"}
		}
		return v, nil
	}
}

func processMastercode(v string) (string, error) {
	if len(v) != 12 {
		return "", &ParamError{Param: ParamMastercode, Value: v, Reason: "must be exactly 12 hex characters"}
	}
	code := strings.ToUpper(v)
	for _, r := range code {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return "", &ParamError{Param: ParamMastercode, Value: v, Reason: "must be exactly 12 hex characters"}
		}
	}
	return code, nil
}

func processTimezone(v string) (string, error) {
	hours, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "", &ParamError{Param: ParamTimezone, Value: v, Reason: "not a number of hours"}
	}
	// The card counts the offset in 15-minute units.
	offset := int(hours * 4)
	if offset < -48 || offset > 36 {
		return "", &ParamError{Param: ParamTimezone, Value: v, Reason: "must be between -12 and +9 hours"}
	}
	return strconv.Itoa(offset), nil
}

func processDriveMode(v string) (string, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < int(DriveDisabled) || n > int(DriveReadWrite) {
		return "", &ParamError{Param: ParamDriveMode, Value: v, Reason: "must be 0 (off), 1 (read only) or 2 (read-write)"}
	}
	return strconv.Itoa(n), nil
}

// Settings is a validated set of config.cgi parameters ready to apply.
type Settings struct {
	values url.Values
}

// NewSettings validates params into a Settings. Validation happens here,
// up front, so an invalid combination never reaches the card.
func NewSettings(params map[Param]string) (*Settings, error) {
	values := url.Values{}
	for p, v := range params {
		process, ok := paramSpecs[p]
		if !ok {
			return nil, &ParamError{Param: p, Value: v, Reason: "unknown parameter"}
		}
		out, err := process(v)
		if err != nil {
			return nil, err
		}
		values.Set(string(p), out)
	}
	return &Settings{values: values}, nil
}

// Values returns a copy of the encoded parameters.
func (s *Settings) Values() url.Values {
	values := url.Values{}
	for k, vs := range s.values {
		values[k] = append([]string(nil), vs...)
	}
	return values
}

// ApplyConfig sends settings to config.cgi. Every write needs the
// MASTERCODE; when the caller did not set one, the code stored for this
// device is used.
func (c *Client) ApplyConfig(ctx context.Context, s *Settings) error {
	values := s.Values()
	if values.Get(string(ParamMastercode)) == "" {
		values.Set(string(ParamMastercode), LoadMastercode(c.host))
	}
	body, err := c.getText(ctx, utils.ConfigPath, values)
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) != successBody {
		return fmt.Errorf("device rejected configuration: %q", strings.TrimSpace(body))
	}
	return nil
}

// StoreMastercode saves the card's admin code in the OS keyring, keyed by
// device host.
func StoreMastercode(host, code string) error {
	normalized, err := processMastercode(code)
	if err != nil {
		return err
	}
	return keyring.Set(utils.KeyringService, host, normalized)
}

// LoadMastercode returns the stored admin code for host. Without a stored
// code, or without a usable keyring, the factory default applies.
func LoadMastercode(host string) string {
	code, err := keyring.Get(utils.KeyringService, host)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			log.WithError(err).Debug("keyring unavailable, using factory mastercode")
		}
		return utils.DefaultMastercode
	}
	return code
}
