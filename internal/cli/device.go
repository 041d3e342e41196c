package cli

import (
	"errors"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seltzinger/airsync/internal/device"
	"github.com/seltzinger/airsync/internal/utils"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Inspect and configure the card",
}

var deviceInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show card identity and capabilities",
	Args:  cobra.NoArgs,
	RunE:  runDeviceInfo,
}

var deviceConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Write card configuration parameters",
	Long: `Write one or more config.cgi parameters. Values are validated before
anything is sent; the card applies the whole set in one request. Writes
need the card's mastercode, taken from the OS keyring unless --mastercode
is given (see "airsync device unlock").`,
	Args: cobra.NoArgs,
	RunE: runDeviceConfig,
}

var deviceUnlockCmd = &cobra.Command{
	Use:   "unlock CODE",
	Short: "Store the card's mastercode in the OS keyring",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeviceUnlock,
}

var deviceDeleteCmd = &cobra.Command{
	Use:   "delete PATH",
	Short: "Delete a file on the card",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeviceDelete,
}

var (
	devWifiTimeout     string
	devAppInfo         string
	devWifiMode        string
	devWifiKey         string
	devSSID            string
	devPassthroughKey  string
	devPassthroughSSID string
	devBootscreen      string
	devMastercode      string
	devClearMastercode bool
	devTimezone        string
	devDriveMode       string
)

func init() {
	deviceConfigCmd.Flags().StringVar(&devWifiTimeout, "wifi-timeout", "", "Wireless auto-off timeout in seconds (60 to 4294967)")
	deviceConfigCmd.Flags().StringVar(&devAppInfo, "app-info", "", "Free-form application info string (1 to 16 characters)")
	deviceConfigCmd.Flags().StringVar(&devWifiMode, "wifi-mode", "", "Wireless mode: 0 AP, 2 station, 3 passthrough; 4/5/6 the same on boot")
	deviceConfigCmd.Flags().StringVar(&devWifiKey, "wifi-key", "", "Wireless network key")
	deviceConfigCmd.Flags().StringVar(&devSSID, "ssid", "", "Wireless SSID (1 to 32 characters)")
	deviceConfigCmd.Flags().StringVar(&devPassthroughKey, "passthrough-key", "", "Passthrough network key")
	deviceConfigCmd.Flags().StringVar(&devPassthroughSSID, "passthrough-ssid", "", "Passthrough SSID")
	deviceConfigCmd.Flags().StringVar(&devBootscreen, "bootscreen", "", "Path to the browser boot screen image on the card")
	deviceConfigCmd.Flags().StringVar(&devMastercode, "mastercode", "", "Mastercode to set (12 hex characters)")
	deviceConfigCmd.Flags().BoolVar(&devClearMastercode, "clear-mastercode", false, "Clear the stored mastercode on the card")
	deviceConfigCmd.Flags().StringVar(&devTimezone, "timezone", "", "UTC offset in hours (-12 to +9, 15-minute steps)")
	deviceConfigCmd.Flags().StringVar(&devDriveMode, "drive-mode", "", "WebDAV drive: 0 off, 1 read only, 2 read-write")

	deviceCmd.AddCommand(deviceInfoCmd)
	deviceCmd.AddCommand(deviceConfigCmd)
	deviceCmd.AddCommand(deviceUnlockCmd)
	deviceCmd.AddCommand(deviceDeleteCmd)
	rootCmd.AddCommand(deviceCmd)
}

// DeviceInfo is the card's identity and capability summary.
type DeviceInfo struct {
	URL           string `json:"url"`
	SSID          string `json:"ssid"`
	MAC           string `json:"mac"`
	Firmware      string `json:"firmware"`
	WifiMode      string `json:"wifiMode"`
	UploadCapable bool   `json:"uploadCapable"`
	RemoteDir     string `json:"remoteDir"`
	FileCount     int    `json:"fileCount"`
}

func (i *DeviceInfo) Headers() []string {
	return []string{"Property", "Value"}
}

func (i *DeviceInfo) Rows() [][]string {
	return [][]string{
		{"URL", i.URL},
		{"SSID", i.SSID},
		{"MAC", i.MAC},
		{"Firmware", i.Firmware},
		{"Wifi mode", i.WifiMode},
		{"Host uploads", strconv.FormatBool(i.UploadCapable)},
		{"Files in " + i.RemoteDir, strconv.Itoa(i.FileCount)},
	}
}

func (i *DeviceInfo) EmptyMessage() string {
	return "No device information"
}

func runDeviceInfo(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	client := newDeviceClient()
	ctx, cancel := opCtx()
	defer cancel()

	info := &DeviceInfo{URL: client.BaseURL(), RemoteDir: flags.RemoteDir}

	var err error
	if info.SSID, err = client.SSID(ctx); err != nil {
		return fail(out, "device.info", err)
	}
	if info.MAC, err = client.MACAddress(ctx); err != nil {
		return fail(out, "device.info", err)
	}
	if info.Firmware, err = client.FirmwareVersion(ctx); err != nil {
		return fail(out, "device.info", err)
	}
	mode, err := client.CurrentWifiMode(ctx)
	if err != nil {
		return fail(out, "device.info", err)
	}
	info.WifiMode = mode.String()
	if info.UploadCapable, err = client.SupportsUpload(ctx); err != nil {
		return fail(out, "device.info", err)
	}
	if info.FileCount, err = client.CountFiles(ctx, flags.RemoteDir); err != nil {
		return fail(out, "device.info", err)
	}

	return out.WriteSuccess("device.info", info)
}

// ConfigApplied lists the parameters a config write changed. Values are
// deliberately not echoed; some of them are credentials.
type ConfigApplied struct {
	Applied []string `json:"applied"`
}

func (c *ConfigApplied) Headers() []string {
	return []string{"Parameter"}
}

func (c *ConfigApplied) Rows() [][]string {
	rows := make([][]string, 0, len(c.Applied))
	for _, p := range c.Applied {
		rows = append(rows, []string{p})
	}
	return rows
}

func (c *ConfigApplied) EmptyMessage() string {
	return "No parameters applied"
}

func runDeviceConfig(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	stringParams := []struct {
		flag  string
		param device.Param
		value *string
	}{
		{"wifi-timeout", device.ParamWifiTimeout, &devWifiTimeout},
		{"app-info", device.ParamAppInfo, &devAppInfo},
		{"wifi-mode", device.ParamWifiMode, &devWifiMode},
		{"wifi-key", device.ParamWifiKey, &devWifiKey},
		{"ssid", device.ParamWifiSSID, &devSSID},
		{"passthrough-key", device.ParamPassthroughKey, &devPassthroughKey},
		{"passthrough-ssid", device.ParamPassthroughSSID, &devPassthroughSSID},
		{"bootscreen", device.ParamBootscreenPath, &devBootscreen},
		{"mastercode", device.ParamMastercode, &devMastercode},
		{"timezone", device.ParamTimezone, &devTimezone},
		{"drive-mode", device.ParamDriveMode, &devDriveMode},
	}

	params := map[device.Param]string{}
	for _, p := range stringParams {
		if cmd.Flags().Changed(p.flag) {
			params[p.param] = *p.value
		}
	}
	if devClearMastercode {
		params[device.ParamClearMastercode] = "1"
	}
	if len(params) == 0 {
		return failCode(out, "device.config", utils.ErrCodeInvalidArgument,
			errors.New("no parameters given"))
	}

	settings, err := device.NewSettings(params)
	if err != nil {
		return fail(out, "device.config", err)
	}

	client := newDeviceClient()
	ctx, cancel := opCtx()
	defer cancel()
	if err := client.ApplyConfig(ctx, settings); err != nil {
		return fail(out, "device.config", err)
	}

	applied := make([]string, 0, len(params))
	for p := range params {
		applied = append(applied, string(p))
	}
	sort.Strings(applied)

	return out.WriteSuccess("device.config", &ConfigApplied{Applied: applied})
}

// UnlockResult names the host a mastercode was stored for.
type UnlockResult struct {
	Host string `json:"host"`
}

func (r *UnlockResult) Headers() []string {
	return []string{"Host"}
}

func (r *UnlockResult) Rows() [][]string {
	return [][]string{{r.Host}}
}

func (r *UnlockResult) EmptyMessage() string {
	return "No mastercode stored"
}

func runDeviceUnlock(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	client := newDeviceClient()
	if err := device.StoreMastercode(client.Host(), args[0]); err != nil {
		return fail(out, "device.unlock", err)
	}

	out.Log("mastercode stored for %s", client.Host())
	return out.WriteSuccess("device.unlock", &UnlockResult{Host: client.Host()})
}

// DeleteResult names the remote path a delete removed.
type DeleteResult struct {
	Path string `json:"path"`
}

func (r *DeleteResult) Headers() []string {
	return []string{"Deleted"}
}

func (r *DeleteResult) Rows() [][]string {
	return [][]string{{r.Path}}
}

func (r *DeleteResult) EmptyMessage() string {
	return "Nothing deleted"
}

func runDeviceDelete(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	client := newDeviceClient()
	ctx, cancel := opCtx()
	defer cancel()
	if err := client.Delete(ctx, args[0]); err != nil {
		return fail(out, "device.delete", err)
	}

	return out.WriteSuccess("device.delete", &DeleteResult{Path: args[0]})
}
